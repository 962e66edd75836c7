package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a bank transaction as stored locally after reconciliation.
// PlaidTransactionID is assigned by the aggregator and is the idempotency
// key: there is never more than one stored row per id.
//
// Amount keeps Plaid's sign convention: positive = money out (expense),
// negative = money in (credit or refund).
type Transaction struct {
	ID                 int64           `json:"id,omitempty"`
	UserID             int64           `json:"-"`
	BankConnectionID   int64           `json:"bank_connection_id"`
	PlaidTransactionID string          `json:"plaid_transaction_id"`
	Name               string          `json:"name"`
	MerchantName       sql.NullString  `json:"-"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Date               string          `json:"date"` // calendar day, YYYY-MM-DD
	Category           string          `json:"category"`
	Pending            bool            `json:"pending"`
	CreatedAt          time.Time       `json:"-"`
	UpdatedAt          time.Time       `json:"-"`
}

// transactionJSON mirrors Transaction for serialization, flattening the
// nullable merchant name.
type transactionJSON struct {
	ID                 int64           `json:"id,omitempty"`
	BankConnectionID   int64           `json:"bank_connection_id"`
	PlaidTransactionID string          `json:"plaid_transaction_id"`
	Name               string          `json:"name"`
	MerchantName       *string         `json:"merchant_name"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Date               string          `json:"date"`
	Category           string          `json:"category"`
	Pending            bool            `json:"pending"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	out := transactionJSON{
		ID:                 t.ID,
		BankConnectionID:   t.BankConnectionID,
		PlaidTransactionID: t.PlaidTransactionID,
		Name:               t.Name,
		Amount:             t.Amount,
		Currency:           t.Currency,
		Date:               t.Date,
		Category:           t.Category,
		Pending:            t.Pending,
	}
	if t.MerchantName.Valid {
		out.MerchantName = &t.MerchantName.String
	}
	return json.Marshal(out)
}

// ChangeSet is the added/modified/removed output of draining all pages of
// one sync attempt. It is ephemeral and only ever consumed as a whole.
type ChangeSet struct {
	Added    []PlaidTransaction
	Modified []PlaidTransaction
	Removed  []string // Plaid transaction ids
}

// Empty reports whether the change set carries no work at all.
func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// SyncResult summarizes one completed sync attempt. It is returned to the
// caller and never persisted.
type SyncResult struct {
	Added          int `json:"added"`
	Modified       int `json:"modified"`
	Removed        int `json:"removed"`
	TotalProcessed int `json:"total_processed"`
}

// CategoryTotal is one row of the per-category spending summary.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}
