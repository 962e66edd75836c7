package models

import "github.com/shopspring/decimal"

// PlaidTransaction is a transaction as it arrives on the wire from Plaid's
// /transactions/sync endpoint. Category carries Plaid's coarse category
// hints in priority order (most general first).
type PlaidTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	Name            string          `json:"name"`
	MerchantName    string          `json:"merchant_name,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	ISOCurrencyCode string          `json:"iso_currency_code,omitempty"`
	Date            string          `json:"date"` // YYYY-MM-DD
	Pending         bool            `json:"pending"`
	Category        []string        `json:"category,omitempty"`
}

// PlaidRemovedTransaction identifies a transaction Plaid has retracted.
type PlaidRemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// PlaidSyncResponse is one page of Plaid's incremental change stream.
// NextCursor is only safe to persist after the final page of the attempt
// has been consumed (HasMore == false).
type PlaidSyncResponse struct {
	Added      []PlaidTransaction        `json:"added"`
	Modified   []PlaidTransaction        `json:"modified"`
	Removed    []PlaidRemovedTransaction `json:"removed"`
	NextCursor string                    `json:"next_cursor"`
	HasMore    bool                      `json:"has_more"`
}
