package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/expensio/backend/src/categorizer"
	"github.com/username/expensio/backend/src/models"
)

func newTestWriter(t *testing.T) (*reconciliationWriter, func() int) {
	t.Helper()
	db := newTestDB(t)
	writer := &reconciliationWriter{db: db, cat: categorizer.NewDefault()}
	return writer, func() int { return countTransactions(t, db) }
}

func TestApplyIsIdempotent(t *testing.T) {
	writer, rowCount := newTestWriter(t)

	changes := &models.ChangeSet{
		Added: []models.PlaidTransaction{
			plaidTx("t1", "Shell Gas"),
			plaidTx("t2", "Whole Foods Market"),
		},
	}

	upserted, _, err := writer.apply(1, 10, changes)
	require.NoError(t, err)
	assert.Equal(t, 2, upserted)
	assert.Equal(t, 2, rowCount())

	// Re-applying the exact same change set ends in the same state.
	upserted, _, err = writer.apply(1, 10, changes)
	require.NoError(t, err)
	assert.Equal(t, 2, upserted)
	assert.Equal(t, 2, rowCount())
}

func TestApplyOverwritesOnModify(t *testing.T) {
	writer, rowCount := newTestWriter(t)

	_, _, err := writer.apply(1, 10, &models.ChangeSet{
		Added: []models.PlaidTransaction{plaidTx("t1", "Pending Charge")},
	})
	require.NoError(t, err)

	modified := models.PlaidTransaction{
		TransactionID: "t1",
		Name:          "Shell Gas",
		MerchantName:  "Shell",
		Amount:        decimal.RequireFromString("42.10"),
		Date:          "2024-03-02",
	}
	_, _, err = writer.apply(1, 10, &models.ChangeSet{
		Modified: []models.PlaidTransaction{modified},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rowCount(), "modify must overwrite, never duplicate")

	var name, merchantName, amount, date, category string
	err = writer.db.QueryRow(`
		SELECT name, merchant_name, amount, date, category
		FROM transactions WHERE plaid_transaction_id = 't1'`).
		Scan(&name, &merchantName, &amount, &date, &category)
	require.NoError(t, err)
	assert.Equal(t, "Shell Gas", name)
	assert.Equal(t, "Shell", merchantName)
	assert.Equal(t, "42.10", amount)
	assert.Equal(t, "2024-03-02", date)
	assert.Equal(t, models.CategoryTransportation, category)
}

func TestApplyKeepsOneRowPerExternalID(t *testing.T) {
	writer, rowCount := newTestWriter(t)

	// The same external id appearing in both added and modified within one
	// change set still results in exactly one stored row (last write wins).
	changes := &models.ChangeSet{
		Added:    []models.PlaidTransaction{plaidTx("t1", "First Form")},
		Modified: []models.PlaidTransaction{plaidTx("t1", "Final Form")},
	}
	_, _, err := writer.apply(1, 10, changes)
	require.NoError(t, err)
	assert.Equal(t, 1, rowCount())

	var name string
	require.NoError(t, writer.db.QueryRow(
		`SELECT name FROM transactions WHERE plaid_transaction_id = 't1'`).Scan(&name))
	assert.Equal(t, "Final Form", name)
}

func TestApplyClassifiesUpserts(t *testing.T) {
	writer, _ := newTestWriter(t)

	tx := plaidTx("t1", "Starbucks Coffee #204")
	tx.Category = []string{"Food and Drink"}
	_, _, err := writer.apply(1, 10, &models.ChangeSet{Added: []models.PlaidTransaction{tx}})
	require.NoError(t, err)

	var category string
	require.NoError(t, writer.db.QueryRow(
		`SELECT category FROM transactions WHERE plaid_transaction_id = 't1'`).Scan(&category))
	assert.Equal(t, models.CategoryCoffee, category, "rule table outranks provider hints")
}

func TestApplyDefaultsCurrency(t *testing.T) {
	writer, _ := newTestWriter(t)

	tx := plaidTx("t1", "Corner Store")
	tx.ISOCurrencyCode = ""
	_, _, err := writer.apply(1, 10, &models.ChangeSet{Added: []models.PlaidTransaction{tx}})
	require.NoError(t, err)

	var currency string
	require.NoError(t, writer.db.QueryRow(
		`SELECT currency FROM transactions WHERE plaid_transaction_id = 't1'`).Scan(&currency))
	assert.Equal(t, "USD", currency)
}

func TestDeleteRemovedIsScopedToOwner(t *testing.T) {
	writer, rowCount := newTestWriter(t)

	now := time.Now()
	_, err := writer.db.Exec(`
		INSERT INTO transactions (user_id, bank_connection_id, plaid_transaction_id, name, amount, currency, date, category, pending, created_at, updated_at)
		VALUES (2, 20, 'other-user-tx', 'Coffee', '5', 'USD', '2024-03-01', 'Coffee', 0, ?, ?)`, now, now)
	require.NoError(t, err)

	_, deleted, err := writer.apply(1, 10, &models.ChangeSet{Removed: []string{"other-user-tx"}})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted, "user 1 cannot delete user 2's transaction")
	assert.Equal(t, 1, rowCount())
}

func TestApplyRemovesRetractedTransactions(t *testing.T) {
	writer, rowCount := newTestWriter(t)

	_, _, err := writer.apply(1, 10, &models.ChangeSet{
		Added: []models.PlaidTransaction{plaidTx("t1", "One"), plaidTx("t2", "Two")},
	})
	require.NoError(t, err)

	_, deleted, err := writer.apply(1, 10, &models.ChangeSet{Removed: []string{"t1", "never-existed"}})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, rowCount())
}
