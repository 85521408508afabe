package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trackmyrvu/rvutracker/internal/api/handlers"
	"github.com/trackmyrvu/rvutracker/internal/api/routes"
	"github.com/trackmyrvu/rvutracker/internal/application/services"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, "info")
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.ServerAddr()
			}
			return runServer(ctx, a, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default SERVER_HOST:SERVER_PORT)")
	return cmd
}

// buildHandler wires handlers and middleware around the app's services.
func buildHandler(a *app) http.Handler {
	catalogHandler := handlers.NewCatalogHandler(a.catalog, a.cfg.Catalog.SearchLimit)

	var (
		analyticsHandler *handlers.AnalyticsHandler
		visitHandler     *handlers.VisitHandler
		favoriteHandler  *handlers.FavoriteHandler
	)
	if a.visits != nil {
		analyticsHandler = handlers.NewAnalyticsHandler(a.analytics, a.visits)
		visitHandler = handlers.NewVisitHandler(a.visits, a.analytics)
		favoriteHandler = handlers.NewFavoriteHandler(a.favorites)
	}

	router := routes.NewRouter(
		catalogHandler,
		analyticsHandler,
		visitHandler,
		favoriteHandler,
		a.cfg.Server.AllowedOrigins,
		a.metrics,
	)
	return router.SetupRoutes()
}

func runServer(ctx context.Context, a *app, addr string) error {
	services.NewCacheWarmingService(a.catalog, a.visits, a.favorites, a.analytics).WarmCache(ctx)

	server := &http.Server{
		Addr:         addr,
		Handler:      buildHandler(a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Bool("backend", a.visits != nil).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
