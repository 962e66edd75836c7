package model

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
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
	)`)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBankConnectionLifecycle(t *testing.T) {
	db := newTestDB(t)

	conn := &BankConnection{
		UserID:           1,
		PlaidItemID:      "item-1",
		PlaidAccessToken: "access-1",
		InstitutionName:  "First Bank",
	}
	require.NoError(t, conn.CreateBankConnection(db))
	require.NotZero(t, conn.ID)
	assert.Equal(t, ConnectionStatusActive, conn.Status)

	loaded, err := GetBankConnectionByID(db, conn.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "First Bank", loaded.InstitutionName)
	assert.Equal(t, "access-1", loaded.PlaidAccessToken)
	assert.False(t, loaded.Cursor.Valid, "new connection has never synced")
	assert.False(t, loaded.LastSyncedAt.Valid)

	// Owner scoping: the same id under another user is invisible.
	_, err = GetBankConnectionByID(db, conn.ID, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	syncedAt := time.Now()
	require.NoError(t, UpdateSyncCursor(db, conn.ID, 1, "cursor-1", syncedAt))
	loaded, err = GetBankConnectionByID(db, conn.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "cursor-1", loaded.Cursor.String)
	assert.True(t, loaded.LastSyncedAt.Valid)

	require.NoError(t, UpdateConnectionStatus(db, conn.ID, 1, ConnectionStatusError))
	loaded, err = GetBankConnectionByID(db, conn.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ConnectionStatusError, loaded.Status)

	require.NoError(t, DeleteBankConnection(db, conn.ID, 1))
	_, err = GetBankConnectionByID(db, conn.ID, 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListBankConnections(t *testing.T) {
	db := newTestDB(t)

	for _, name := range []string{"Bank A", "Bank B"} {
		conn := &BankConnection{UserID: 1, PlaidItemID: "item-" + name, PlaidAccessToken: "tok", InstitutionName: name}
		require.NoError(t, conn.CreateBankConnection(db))
		time.Sleep(5 * time.Millisecond) // distinct created_at ordering
	}
	other := &BankConnection{UserID: 2, PlaidItemID: "item-x", PlaidAccessToken: "tok", InstitutionName: "Other"}
	require.NoError(t, other.CreateBankConnection(db))

	connections, err := ListBankConnections(db, 1)
	require.NoError(t, err)
	require.Len(t, connections, 2)
	assert.Equal(t, "Bank B", connections[0].InstitutionName, "newest first")
	assert.Equal(t, "Bank A", connections[1].InstitutionName)
}

func TestDeleteBankConnectionScopedToOwner(t *testing.T) {
	db := newTestDB(t)

	conn := &BankConnection{UserID: 1, PlaidItemID: "item-1", PlaidAccessToken: "tok"}
	require.NoError(t, conn.CreateBankConnection(db))

	err := DeleteBankConnection(db, conn.ID, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = GetBankConnectionByID(db, conn.ID, 1)
	assert.NoError(t, err, "foreign delete must not touch the row")
}
