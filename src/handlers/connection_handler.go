// backend/src/handlers/connection_handler.go
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/expensio/backend/src/config"
	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/model"
	"github.com/username/expensio/backend/src/services"
	"github.com/username/expensio/backend/src/utils"
)

// ConnectionHandler serves the bank connection endpoints, including the
// sync trigger.
type ConnectionHandler struct {
	db          *sql.DB
	syncService services.SyncService
	summaries   services.SummaryService
}

func NewConnectionHandler(db *sql.DB, syncService services.SyncService, summaries services.SummaryService) *ConnectionHandler {
	return &ConnectionHandler{
		db:          db,
		syncService: syncService,
		summaries:   summaries,
	}
}

func connectionIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *ConnectionHandler) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	connections, err := model.ListBankConnections(h.db, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list bank connections", "error", err)
		utils.SendJSONError(w, "Failed to list bank connections", http.StatusInternalServerError)
		return
	}
	if connections == nil {
		connections = []model.BankConnection{}
	}
	utils.SendJSON(w, connections, http.StatusOK)
}

func (h *ConnectionHandler) HandleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	connectionID, err := connectionIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid connection id", http.StatusBadRequest)
		return
	}

	if err := model.DeleteBankConnection(h.db, connectionID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Bank connection not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete bank connection", "connectionID", connectionID, "error", err)
		utils.SendJSONError(w, "Failed to delete bank connection", http.StatusInternalServerError)
		return
	}

	// The FK cascade dropped the connection's transactions with it.
	h.summaries.InvalidateUserCache(userID)
	logger.InfoFromContext(r.Context(), "Bank connection deleted", "connectionID", connectionID)

	w.WriteHeader(http.StatusNoContent)
}

// HandleSyncConnection triggers one sync attempt for the connection and
// returns the resulting counts.
func (h *ConnectionHandler) HandleSyncConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	connectionID, err := connectionIDFromURL(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid connection id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.Cfg.SyncTimeout)
	defer cancel()

	result, err := h.syncService.Sync(ctx, userID, connectionID)
	if err != nil {
		h.sendSyncError(w, r, connectionID, err)
		return
	}

	utils.SendJSON(w, result, http.StatusOK)
}

func (h *ConnectionHandler) sendSyncError(w http.ResponseWriter, r *http.Request, connectionID int64, err error) {
	ctxLogger := logger.FromContext(r.Context())

	var providerErr *services.ProviderError
	var persistenceErr *services.PersistenceError

	switch {
	case errors.Is(err, services.ErrConnectionNotFound):
		utils.SendJSONError(w, "Bank connection not found or access denied", http.StatusNotFound)
	case errors.Is(err, services.ErrConnectionNotActive):
		ctxLogger.Warn("Sync refused for inactive connection", "connectionID", connectionID)
		utils.SendJSONError(w, "Bank connection requires re-authorization", http.StatusConflict)
	case errors.As(err, &providerErr):
		ctxLogger.Error("Sync failed at the aggregator", "connectionID", connectionID, "error", err)
		utils.SendJSONError(w, "Bank data provider request failed; try again later", http.StatusBadGateway)
	case errors.As(err, &persistenceErr):
		ctxLogger.Error("Sync failed persisting data", "connectionID", connectionID, "error", err)
		utils.SendJSONError(w, "Failed to save synced transactions", http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		ctxLogger.Warn("Sync attempt timed out or was cancelled", "connectionID", connectionID, "error", err)
		utils.SendJSONError(w, "Sync did not complete in time; retry later", http.StatusGatewayTimeout)
	default:
		ctxLogger.Error("Sync failed", "connectionID", connectionID, "error", err)
		utils.SendJSONError(w, "Sync failed", http.StatusInternalServerError)
	}
}
