// backend/src/handlers/transaction_handler.go
package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/models"
	"github.com/username/expensio/backend/src/security/validation"
	"github.com/username/expensio/backend/src/services"
	"github.com/username/expensio/backend/src/utils"
)

const defaultTransactionLimit = 100
const maxTransactionLimit = 500

type TransactionHandler struct {
	db        *sql.DB
	summaries services.SummaryService
}

func NewTransactionHandler(db *sql.DB, summaries services.SummaryService) *TransactionHandler {
	return &TransactionHandler{
		db:        db,
		summaries: summaries,
	}
}

// HandleGetTransactions lists the caller's transactions, newest first.
// Optional query params: month (YYYY-MM), category, search (matched against
// name and merchant name), limit.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	query := `
		SELECT id, bank_connection_id, plaid_transaction_id, name, merchant_name,
		       amount, currency, date, category, pending
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}

	if month := r.URL.Query().Get("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			utils.SendJSONError(w, "Invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		query += " AND date >= ? AND date < ?"
		args = append(args, t.Format("2006-01-02"), t.AddDate(0, 1, 0).Format("2006-01-02"))
	}

	if category := r.URL.Query().Get("category"); category != "" {
		if !models.IsValidCategory(category) {
			utils.SendJSONError(w, "Unknown category", http.StatusBadRequest)
			return
		}
		query += " AND category = ?"
		args = append(args, category)
	}

	if search := r.URL.Query().Get("search"); search != "" {
		// LIKE is case-insensitive for ASCII in SQLite, matching the
		// original case-insensitive search behavior.
		pattern := "%" + search + "%"
		query += " AND (name LIKE ? OR merchant_name LIKE ?)"
		args = append(args, pattern, pattern)
	}

	limit := defaultTransactionLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > maxTransactionLimit {
			utils.SendJSONError(w, fmt.Sprintf("Invalid limit, expected 1-%d", maxTransactionLimit), http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	query += " ORDER BY date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.Query(query, args...)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Error querying transactions", "error", err)
		utils.SendJSONError(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amountStr string
		var pending int
		if err := rows.Scan(&tx.ID, &tx.BankConnectionID, &tx.PlaidTransactionID, &tx.Name,
			&tx.MerchantName, &amountStr, &tx.Currency, &tx.Date, &tx.Category, &pending); err != nil {
			logger.ErrorFromContext(r.Context(), "Error scanning transaction", "error", err)
			utils.SendJSONError(w, "Failed to fetch transactions", http.StatusInternalServerError)
			return
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			logger.ErrorFromContext(r.Context(), "Stored transaction amount is unparsable", "id", tx.ID, "amount", amountStr)
			utils.SendJSONError(w, "Failed to fetch transactions", http.StatusInternalServerError)
			return
		}
		tx.Amount = amount
		tx.Pending = pending != 0
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		logger.ErrorFromContext(r.Context(), "Error iterating transactions", "error", err)
		utils.SendJSONError(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	utils.SendJSON(w, transactions, http.StatusOK)
}

// HandleGetSpendingSummary returns per-category totals for a month plus the
// overall spend (positive totals only). Defaults to the current month.
func (h *TransactionHandler) HandleGetSpendingSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	} else if err := validation.ValidateMonth(month); err != nil {
		utils.SendJSONError(w, "Invalid month, expected YYYY-MM", http.StatusBadRequest)
		return
	}

	byCategory, err := h.summaries.GetSpendingByCategory(userID, month)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to compute spending summary", "month", month, "error", err)
		utils.SendJSONError(w, "Failed to compute spending summary", http.StatusInternalServerError)
		return
	}

	total, err := h.summaries.GetTotalSpending(userID, month)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to compute total spending", "month", month, "error", err)
		utils.SendJSONError(w, "Failed to compute spending summary", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]any{
		"month":       month,
		"by_category": byCategory,
		"total":       total,
	}, http.StatusOK)
}
