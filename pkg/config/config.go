package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	API       APIConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
	OTEL      OTELConfig
}

// ServerConfig holds configuration for the local JSON API
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// APIConfig holds Track My RVU backend configuration
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// CatalogConfig holds bundled reference catalog configuration
type CatalogConfig struct {
	Path        string
	SearchLimit int
}

// CacheConfig holds local cache store configuration
type CacheConfig struct {
	Backend       string
	Dir           string
	Namespace     string
	SchemaVersion int
	VisitsMaxAge  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AnalyticsConfig holds aggregation configuration
type AnalyticsConfig struct {
	WeekStart time.Weekday
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Cache backends
const (
	CacheBackendFile   = "file"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("RVU_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "127.0.0.1"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		API: APIConfig{
			BaseURL: getEnv("RVU_API_BASE_URL", "https://www.trackmyrvu.com/api"),
			Token:   getEnv("RVU_API_TOKEN", ""),
			Timeout: getEnvAsDuration("RVU_API_TIMEOUT", 30*time.Second),
		},
		Catalog: CatalogConfig{
			Path:        getEnv("RVU_CATALOG_PATH", "rvu.csv"),
			SearchLimit: getEnvAsInt("RVU_SEARCH_LIMIT", 100),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendFile)),
			Dir:           getEnv("CACHE_DIR", defaultCacheDir()),
			Namespace:     getEnv("CACHE_NAMESPACE", "com.trackmyrvu.cache"),
			SchemaVersion: getEnvAsInt("CACHE_SCHEMA_VERSION", 4),
			VisitsMaxAge:  getEnvAsDuration("CACHE_VISITS_MAX_AGE", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Analytics: AnalyticsConfig{
			WeekStart: getEnvAsWeekday("ANALYTICS_WEEK_START", time.Sunday),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "rvutracker"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	switch cfg.Cache.Backend {
	case CacheBackendFile, CacheBackendRedis, CacheBackendMemory:
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	return cfg, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerAddr returns the listen address for the local API
func (c *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether console logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "rvutracker"
	}
	return ".rvutracker-cache"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var values []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func getEnvAsWeekday(key string, defaultValue time.Weekday) time.Weekday {
	if value := os.Getenv(key); value != "" {
		if day, ok := weekdays[strings.ToLower(strings.TrimSpace(value))]; ok {
			return day
		}
	}
	return defaultValue
}
