package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/username/expensio/backend/src/models"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE bank_connections (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id            INTEGER NOT NULL,
    institution_name   TEXT    NOT NULL DEFAULT 'Unknown Bank',
    plaid_item_id      TEXT    NOT NULL,
    plaid_access_token TEXT    NOT NULL,
    cursor             TEXT,
    status             TEXT    NOT NULL DEFAULT 'active',
    last_synced_at     TIMESTAMP,
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE transactions (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id              INTEGER NOT NULL,
    bank_connection_id   INTEGER NOT NULL,
    plaid_transaction_id TEXT    NOT NULL UNIQUE,
    name                 TEXT    NOT NULL,
    merchant_name        TEXT,
    amount               TEXT    NOT NULL,
    currency             TEXT    NOT NULL DEFAULT 'USD',
    date                 TEXT    NOT NULL,
    category             TEXT    NOT NULL DEFAULT 'Uncategorized',
    pending              INTEGER NOT NULL DEFAULT 0,
    created_at           TIMESTAMP NOT NULL,
    updated_at           TIMESTAMP NOT NULL
);`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestConnection(t *testing.T, db *sql.DB, userID int64, cursor, status string) int64 {
	t.Helper()
	var cursorArg any
	if cursor != "" {
		cursorArg = cursor
	}
	res, err := db.Exec(`
		INSERT INTO bank_connections (user_id, institution_name, plaid_item_id, plaid_access_token, cursor, status, created_at)
		VALUES (?, 'Test Bank', 'item-1', 'access-token-1', ?, ?, ?)`,
		userID, cursorArg, status, time.Now())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func countTransactions(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n))
	return n
}

func storedCursor(t *testing.T, db *sql.DB, connectionID int64) string {
	t.Helper()
	var cursor sql.NullString
	require.NoError(t, db.QueryRow(`SELECT cursor FROM bank_connections WHERE id = ?`, connectionID).Scan(&cursor))
	return cursor.String
}

// fakePlaidClient serves a scripted sequence of sync pages. failAt is the
// 1-based call index that fails (0 = never); onCall runs before each page
// is served.
type fakePlaidClient struct {
	pages   []*models.PlaidSyncResponse
	failAt  int
	failErr error
	calls   int
	cursors []string
	onCall  func(call int)
}

func (f *fakePlaidClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*models.PlaidSyncResponse, error) {
	f.calls++
	f.cursors = append(f.cursors, cursor)
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if f.failAt != 0 && f.calls == f.failAt {
		return nil, f.failErr
	}
	return f.pages[f.calls-1], nil
}
