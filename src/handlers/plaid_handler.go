// backend/src/handlers/plaid_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/model"
	"github.com/username/expensio/backend/src/plaid"
	"github.com/username/expensio/backend/src/security/validation"
	"github.com/username/expensio/backend/src/utils"
)

// PlaidHandler covers the link flow: creating a link token for the Plaid
// Link UI and exchanging the resulting public token for a stored bank
// connection.
type PlaidHandler struct {
	plaidClient *plaid.Client
	db          *sql.DB
}

func NewPlaidHandler(plaidClient *plaid.Client, db *sql.DB) *PlaidHandler {
	return &PlaidHandler{
		plaidClient: plaidClient,
		db:          db,
	}
}

func (h *PlaidHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	linkToken, err := h.plaidClient.CreateLinkToken(r.Context(), strconv.FormatInt(userID, 10))
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create link token", "error", err)
		utils.SendJSONError(w, "Failed to create link token", http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, map[string]string{"link_token": linkToken}, http.StatusOK)
}

type exchangeTokenRequest struct {
	PublicToken     string `json:"public_token"`
	InstitutionName string `json:"institution_name"`
}

func (h *PlaidHandler) HandleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req exchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		utils.SendJSONError(w, "Missing public_token", http.StatusBadRequest)
		return
	}

	institutionName, err := validation.SanitizeInstitutionName(req.InstitutionName)
	if err != nil {
		utils.SendJSONError(w, "Invalid institution_name", http.StatusBadRequest)
		return
	}

	accessToken, itemID, err := h.plaidClient.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to exchange public token", "error", err)
		utils.SendJSONError(w, "Failed to exchange token", http.StatusBadGateway)
		return
	}

	conn := &model.BankConnection{
		UserID:           userID,
		PlaidItemID:      itemID,
		PlaidAccessToken: accessToken,
		InstitutionName:  institutionName,
	}
	if err := conn.CreateBankConnection(h.db); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to save bank connection", "error", err)
		utils.SendJSONError(w, "Failed to save bank connection", http.StatusInternalServerError)
		return
	}

	logger.InfoFromContext(r.Context(), "Bank connection created", "connectionID", conn.ID, "institution", conn.InstitutionName)

	utils.SendJSON(w, map[string]any{
		"connection_id":    conn.ID,
		"institution_name": conn.InstitutionName,
	}, http.StatusCreated)
}
