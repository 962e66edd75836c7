package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/expensio/backend/src/config"
	"github.com/username/expensio/backend/src/models"
	"github.com/username/expensio/backend/src/services"
)

type stubSyncService struct {
	result *models.SyncResult
	err    error
}

func (s *stubSyncService) Sync(ctx context.Context, userID, connectionID int64) (*models.SyncResult, error) {
	return s.result, s.err
}

type stubSummaryService struct{}

func (stubSummaryService) GetSpendingByCategory(userID int64, month string) ([]models.CategoryTotal, error) {
	return nil, nil
}
func (stubSummaryService) GetTotalSpending(userID int64, month string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubSummaryService) InvalidateUserCache(userID int64) {}

func syncRequest(t *testing.T, svc services.SyncService) *httptest.ResponseRecorder {
	t.Helper()
	config.Cfg = &config.AppConfig{SyncTimeout: time.Second}

	handler := NewConnectionHandler(nil, svc, stubSummaryService{})
	router := chi.NewRouter()
	router.Post("/api/connections/{id}/sync", handler.HandleSyncConnection)

	req := httptest.NewRequest(http.MethodPost, "/api/connections/7/sync", nil)
	req = req.WithContext(context.WithValue(req.Context(), userIDContextKey, int64(1)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleSyncConnectionSuccess(t *testing.T) {
	svc := &stubSyncService{result: &models.SyncResult{Added: 2, Modified: 1, Removed: 0, TotalProcessed: 3}}
	rr := syncRequest(t, svc)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"added":2,"modified":1,"removed":0,"total_processed":3}`, rr.Body.String())
}

func TestHandleSyncConnectionErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown connection", services.ErrConnectionNotFound, http.StatusNotFound},
		{"inactive connection", fmt.Errorf("%w (status: error)", services.ErrConnectionNotActive), http.StatusConflict},
		{"provider failure", &services.ProviderError{Err: errors.New("rate limited")}, http.StatusBadGateway},
		{"persistence failure", &services.PersistenceError{Op: "persist sync cursor", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := syncRequest(t, &stubSyncService{err: tc.err})
			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestHandleSyncConnectionRejectsBadID(t *testing.T) {
	config.Cfg = &config.AppConfig{SyncTimeout: time.Second}
	handler := NewConnectionHandler(nil, &stubSyncService{}, stubSummaryService{})
	router := chi.NewRouter()
	router.Post("/api/connections/{id}/sync", handler.HandleSyncConnection)

	req := httptest.NewRequest(http.MethodPost, "/api/connections/not-a-number/sync", nil)
	req = req.WithContext(context.WithValue(req.Context(), userIDContextKey, int64(1)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSyncConnectionRequiresAuth(t *testing.T) {
	config.Cfg = &config.AppConfig{SyncTimeout: time.Second}
	handler := NewConnectionHandler(nil, &stubSyncService{}, stubSummaryService{})
	router := chi.NewRouter()
	router.Post("/api/connections/{id}/sync", handler.HandleSyncConnection)

	req := httptest.NewRequest(http.MethodPost, "/api/connections/7/sync", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
