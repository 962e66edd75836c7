package services

import (
	"database/sql"
	"time"

	"github.com/username/expensio/backend/src/categorizer"
	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/models"
)

// reconciliationWriter applies a ChangeSet to the local store as an
// idempotent batch: added and modified transactions are upserted keyed on
// plaid_transaction_id, removed ids are deleted. Re-applying the same
// ChangeSet leaves the store in the same end state.
type reconciliationWriter struct {
	db  *sql.DB
	cat *categorizer.Categorizer
}

const upsertTransactionQuery = `
INSERT INTO transactions
	(user_id, bank_connection_id, plaid_transaction_id, name, merchant_name,
	 amount, currency, date, category, pending, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (plaid_transaction_id) DO UPDATE SET
	name = excluded.name,
	merchant_name = excluded.merchant_name,
	amount = excluded.amount,
	currency = excluded.currency,
	date = excluded.date,
	category = excluded.category,
	pending = excluded.pending,
	updated_at = excluded.updated_at`

// apply writes the change set and returns the number of rows upserted and
// the number of removals that actually deleted a row. Upserts are a single
// DB transaction and any failure aborts the attempt; removals are
// best-effort afterwards — a removed transaction lingering locally is a
// lesser failure than discarding an otherwise-successful reconciliation.
//
// Deliberately not cancellable: once reconciliation starts it runs to
// completion rather than leave a half-applied batch.
func (w *reconciliationWriter) apply(userID int64, connectionID int64, changes *models.ChangeSet) (upserted int, deleted int, err error) {
	if err := w.upsertAll(userID, connectionID, changes); err != nil {
		return 0, 0, err
	}
	upserted = len(changes.Added) + len(changes.Modified)

	deleted = w.deleteRemoved(userID, changes.Removed)
	return upserted, deleted, nil
}

func (w *reconciliationWriter) upsertAll(userID int64, connectionID int64, changes *models.ChangeSet) error {
	toUpsert := make([]models.PlaidTransaction, 0, len(changes.Added)+len(changes.Modified))
	toUpsert = append(toUpsert, changes.Added...)
	toUpsert = append(toUpsert, changes.Modified...)
	if len(toUpsert) == 0 {
		return nil
	}

	txDB, err := w.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "begin reconciliation", Err: err}
	}
	defer func() {
		if err != nil {
			txDB.Rollback()
		}
	}()

	stmt, err := txDB.Prepare(upsertTransactionQuery)
	if err != nil {
		return &PersistenceError{Op: "prepare upsert", Err: err}
	}
	defer stmt.Close()

	now := time.Now()
	for _, tx := range toUpsert {
		var merchantName sql.NullString
		if tx.MerchantName != "" {
			merchantName = sql.NullString{String: tx.MerchantName, Valid: true}
		}
		currency := tx.ISOCurrencyCode
		if currency == "" {
			currency = "USD"
		}
		category := w.cat.Categorize(tx.Name, tx.MerchantName, tx.Category)

		if _, err = stmt.Exec(
			userID, connectionID, tx.TransactionID, tx.Name, merchantName,
			tx.Amount.String(), currency, tx.Date, category, tx.Pending, now, now,
		); err != nil {
			return &PersistenceError{Op: "upsert transaction", Err: err}
		}
	}

	if err = txDB.Commit(); err != nil {
		return &PersistenceError{Op: "commit reconciliation", Err: err}
	}
	return nil
}

// deleteRemoved drops transactions the aggregator retracted, scoped to the
// owner. Failures are logged and skipped, never escalated.
func (w *reconciliationWriter) deleteRemoved(userID int64, removedIDs []string) int {
	deleted := 0
	for _, plaidTransactionID := range removedIDs {
		res, err := w.db.Exec(
			`DELETE FROM transactions WHERE plaid_transaction_id = ? AND user_id = ?`,
			plaidTransactionID, userID)
		if err != nil {
			logger.L.Warn("Failed to delete removed transaction; it will linger until a later sync",
				"userID", userID, "plaidTransactionID", plaidTransactionID, "error", err)
			continue
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			deleted++
		}
	}
	return deleted
}
