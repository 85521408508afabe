package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trackmyrvu/rvutracker/internal/api/handlers"
	"github.com/trackmyrvu/rvutracker/internal/application/services"
	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

const testCatalog = `HCPCS,DESCRIPTION,STATUS,RVU
99213,Office visit,A,1.5
99214,"Office visit, moderate",A,1.92
G0438,Annual wellness visit,A,2.43
`

func newCatalog() *services.CatalogService {
	return services.NewCatalogService(fstest.MapFS{"rvu.csv": &fstest.MapFile{Data: []byte(testCatalog)}}, "rvu.csv")
}

var fixedNow = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func newAnalytics() *services.AnalyticsService {
	return services.NewAnalyticsService(providers.ClockFunc(func() time.Time { return fixedNow }), time.Sunday)
}

type MockVisitService struct {
	mock.Mock
}

func (m *MockVisitService) Load(ctx context.Context) ([]entities.Visit, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entities.Visit), args.Error(1)
}

func (m *MockVisitService) Refresh(ctx context.Context) ([]entities.Visit, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entities.Visit), args.Error(1)
}

func (m *MockVisitService) Visits() []entities.Visit {
	args := m.Called()
	return args.Get(0).([]entities.Visit)
}

func (m *MockVisitService) Create(ctx context.Context, draft entities.VisitDraft) (*entities.Visit, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Visit), args.Error(1)
}

func (m *MockVisitService) Update(ctx context.Context, id string, draft entities.VisitDraft) (*entities.Visit, error) {
	args := m.Called(ctx, id, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Visit), args.Error(1)
}

func (m *MockVisitService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) Refresh(ctx context.Context) ([]entities.Favorite, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entities.Favorite), args.Error(1)
}

func (m *MockFavoriteService) Entries() []entities.FavoriteEntry {
	return m.Called().Get(0).([]entities.FavoriteEntry)
}

func (m *MockFavoriteService) Add(ctx context.Context, hcpcs string) (*entities.Favorite, error) {
	args := m.Called(ctx, hcpcs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Favorite), args.Error(1)
}

func (m *MockFavoriteService) Remove(ctx context.Context, hcpcs string) error {
	return m.Called(ctx, hcpcs).Error(0)
}

func (m *MockFavoriteService) Toggle(ctx context.Context, hcpcs string) (bool, error) {
	args := m.Called(ctx, hcpcs)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoriteService) Reorder(ctx context.Context, codes []string) error {
	return m.Called(ctx, codes).Error(0)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestCatalogHandler_SearchCodes(t *testing.T) {
	handler := handlers.NewCatalogHandler(newCatalog(), 100)

	req := httptest.NewRequest("GET", "/api/codes?q=99213", nil)
	w := httptest.NewRecorder()
	handler.SearchCodes(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Codes         []entities.ProcedureCode `json:"codes"`
		Count         int                      `json:"count"`
		CatalogLoaded bool                     `json:"catalog_loaded"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.CatalogLoaded)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "99213", body.Codes[0].Code)
	assert.Equal(t, 1.5, body.Codes[0].WorkRVU)
}

func TestCatalogHandler_SearchCodesBadLimit(t *testing.T) {
	handler := handlers.NewCatalogHandler(newCatalog(), 100)

	req := httptest.NewRequest("GET", "/api/codes?q=office&limit=abc", nil)
	w := httptest.NewRecorder()
	handler.SearchCodes(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandler_SearchWithMissingCatalog(t *testing.T) {
	catalog := services.NewCatalogService(fstest.MapFS{}, "rvu.csv")
	handler := handlers.NewCatalogHandler(catalog, 100)

	req := httptest.NewRequest("GET", "/api/codes?q=99213", nil)
	w := httptest.NewRecorder()
	handler.SearchCodes(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, false, body["catalog_loaded"])
}

func TestCatalogHandler_GetCode(t *testing.T) {
	handler := handlers.NewCatalogHandler(newCatalog(), 100)

	req := httptest.NewRequest("GET", "/api/codes/g0438", nil)
	req.SetPathValue("code", "g0438")
	w := httptest.NewRecorder()
	handler.GetCode(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var code entities.ProcedureCode
	require.NoError(t, json.NewDecoder(w.Body).Decode(&code))
	assert.Equal(t, "G0438", code.Code)

	req = httptest.NewRequest("GET", "/api/codes/00000", nil)
	req.SetPathValue("code", "00000")
	w = httptest.NewRecorder()
	handler.GetCode(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsHandler_SetPeriodAndSelection(t *testing.T) {
	analytics := newAnalytics()
	analytics.SetVisits([]entities.Visit{
		{ID: "1", Date: "2026-02-10", Procedures: []entities.VisitProcedure{{HCPCS: "99213", WorkRVU: 1.5, Quantity: 2}}},
		{ID: "2", Date: "2026-02-12", IsNoShow: true},
	})
	handler := handlers.NewAnalyticsHandler(analytics, new(MockVisitService))

	req := httptest.NewRequest("PUT", "/api/analytics/period", strings.NewReader(`{"period":"Weekly"}`))
	w := httptest.NewRecorder()
	handler.SetPeriod(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snap entities.AnalyticsSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, entities.PeriodWeekly, snap.Period)
	assert.Equal(t, 3.0, snap.TotalRVU)
	require.Len(t, snap.Summaries, 1)
	assert.Equal(t, "Feb 8-Feb 14", snap.Summaries[0].PeriodLabel)

	req = httptest.NewRequest("POST", "/api/analytics/selection", strings.NewReader(`{"index":0}`))
	w = httptest.NewRecorder()
	handler.SelectBucket(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	require.NotNil(t, snap.SelectedIndex)
	assert.Equal(t, 0, *snap.SelectedIndex)

	req = httptest.NewRequest("DELETE", "/api/analytics/selection", nil)
	w = httptest.NewRecorder()
	handler.ClearSelection(w, req)
	snap = entities.AnalyticsSnapshot{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Nil(t, snap.SelectedIndex)
}

func TestAnalyticsHandler_Validation(t *testing.T) {
	handler := handlers.NewAnalyticsHandler(newAnalytics(), new(MockVisitService))

	tests := []struct {
		name   string
		call   func(w http.ResponseWriter, r *http.Request)
		body   string
		status int
	}{
		{"unknown period", handler.SetPeriod, `{"period":"hourly"}`, http.StatusBadRequest},
		{"malformed body", handler.SetPeriod, `{`, http.StatusBadRequest},
		{"bad start", handler.SetDateRange, `{"start":"02/01/2026","end":"2026-02-10"}`, http.StatusBadRequest},
		{"reversed range", handler.SetDateRange, `{"start":"2026-02-10","end":"2026-02-01"}`, http.StatusBadRequest},
		{"valid range", handler.SetDateRange, `{"start":"2026-02-01","end":"2026-02-10"}`, http.StatusOK},
		{"negative index", handler.SelectBucket, `{"index":-1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			tt.call(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAnalyticsHandler_RefreshAuthExpired(t *testing.T) {
	visits := new(MockVisitService)
	cached := []entities.Visit{{ID: "1", Date: "2026-02-10"}}
	visits.On("Refresh", mock.Anything).Return(cached, apperrors.NewAuthExpiredError("session expired"))

	analytics := newAnalytics()
	handler := handlers.NewAnalyticsHandler(analytics, visits)

	req := httptest.NewRequest("POST", "/api/analytics/refresh", nil)
	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, analytics.FilteredVisits(), 1, "cached visits stay visible")
}

func TestVisitHandler_CreateVisit(t *testing.T) {
	visits := new(MockVisitService)
	analytics := newAnalytics()
	handler := handlers.NewVisitHandler(visits, analytics)

	created := &entities.Visit{ID: "7", Date: "2026-02-14", Procedures: []entities.VisitProcedure{{HCPCS: "99213", WorkRVU: 1.5, Quantity: 1}}}
	visits.On("Create", mock.Anything, mock.MatchedBy(func(d entities.VisitDraft) bool {
		return d.Date == "2026-02-14" && len(d.Procedures) == 1
	})).Return(created, nil)
	visits.On("Visits").Return([]entities.Visit{*created})

	body := `{"date":"2026-02-14","procedures":[{"hcpcs":"99213","quantity":1}],"is_no_show":false}`
	req := httptest.NewRequest("POST", "/api/visits", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.CreateVisit(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1.5, analytics.TotalRVU())
	visits.AssertExpectations(t)
}

func TestVisitHandler_CreateVisitValidationError(t *testing.T) {
	visits := new(MockVisitService)
	handler := handlers.NewVisitHandler(visits, nil)
	visits.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.NewValidationError("visit date cannot be in the future"))

	req := httptest.NewRequest("POST", "/api/visits", strings.NewReader(`{"date":"2030-01-01","procedures":[]}`))
	w := httptest.NewRecorder()
	handler.CreateVisit(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "visit date cannot be in the future", decodeBody(t, w)["error"])
}

func TestVisitHandler_ListVisitsServerError(t *testing.T) {
	visits := new(MockVisitService)
	handler := handlers.NewVisitHandler(visits, nil)
	visits.On("Load", mock.Anything).Return([]entities.Visit{}, apperrors.NewServerError(500, "database unavailable"))

	req := httptest.NewRequest("GET", "/api/visits", nil)
	w := httptest.NewRecorder()
	handler.ListVisits(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "database unavailable")
}

func TestVisitHandler_DeleteVisit(t *testing.T) {
	visits := new(MockVisitService)
	handler := handlers.NewVisitHandler(visits, newAnalytics())
	visits.On("Delete", mock.Anything, "3").Return(nil)
	visits.On("Visits").Return([]entities.Visit{})

	req := httptest.NewRequest("DELETE", "/api/visits/3", nil)
	req.SetPathValue("id", "3")
	w := httptest.NewRecorder()
	handler.DeleteVisit(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	visits.AssertExpectations(t)
}

func TestFavoriteHandler_AddFavorite(t *testing.T) {
	favorites := new(MockFavoriteService)
	handler := handlers.NewFavoriteHandler(favorites)
	favorites.On("Add", mock.Anything, "99213").Return(&entities.Favorite{ID: "1", HCPCS: "99213"}, nil)

	req := httptest.NewRequest("POST", "/api/favorites", strings.NewReader(`{"hcpcs":"99213"}`))
	w := httptest.NewRecorder()
	handler.AddFavorite(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "99213", decodeBody(t, w)["hcpcs"])
}

func TestFavoriteHandler_AddUnknownField(t *testing.T) {
	handler := handlers.NewFavoriteHandler(new(MockFavoriteService))

	req := httptest.NewRequest("POST", "/api/favorites", strings.NewReader(`{"code":"99213"}`))
	w := httptest.NewRecorder()
	handler.AddFavorite(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavoriteHandler_ToggleAndReorder(t *testing.T) {
	favorites := new(MockFavoriteService)
	handler := handlers.NewFavoriteHandler(favorites)
	favorites.On("Toggle", mock.Anything, "99214").Return(true, nil)
	favorites.On("Reorder", mock.Anything, []string{"99214", "99213"}).Return(nil)
	favorites.On("Entries").Return([]entities.FavoriteEntry{
		{Favorite: entities.Favorite{ID: "2", HCPCS: "99214"}, Known: true},
		{Favorite: entities.Favorite{ID: "1", HCPCS: "99213", SortOrder: 1}, Known: true},
	})

	req := httptest.NewRequest("POST", "/api/favorites/99214/toggle", nil)
	req.SetPathValue("hcpcs", "99214")
	w := httptest.NewRecorder()
	handler.ToggleFavorite(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["favorited"])

	req = httptest.NewRequest("PATCH", "/api/favorites/reorder", strings.NewReader(`{"hcpcs":["99214","99213"]}`))
	w = httptest.NewRecorder()
	handler.ReorderFavorites(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["count"])
	favorites.AssertExpectations(t)
}

func TestFavoriteHandler_RemoveNetworkError(t *testing.T) {
	favorites := new(MockFavoriteService)
	handler := handlers.NewFavoriteHandler(favorites)
	favorites.On("Remove", mock.Anything, "99213").Return(apperrors.NewNetworkError("request failed", assert.AnError))

	req := httptest.NewRequest("DELETE", "/api/favorites/99213", nil)
	req.SetPathValue("hcpcs", "99213")
	w := httptest.NewRecorder()
	handler.RemoveFavorite(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
