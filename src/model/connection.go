package model

import (
	"database/sql"
	"time"
)

// Connection statuses. A connection whose credential was revoked by the
// provider is parked in "error" until the user re-links; syncs short-circuit.
const (
	ConnectionStatusActive  = "active"
	ConnectionStatusError   = "error"
	ConnectionStatusRevoked = "revoked"
)

type BankConnection struct {
	ID               int64          `json:"id"`
	UserID           int64          `json:"-"`
	InstitutionName  string         `json:"institution_name"`
	PlaidItemID      string         `json:"-"`
	PlaidAccessToken string         `json:"-"`
	Cursor           sql.NullString `json:"-"`
	Status           string         `json:"status"`
	LastSyncedAt     NullTime       `json:"last_synced_at"`
	CreatedAt        time.Time      `json:"created_at"`
}

// NullTime is an alias for sql.NullTime for better JSON handling.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

// CreateBankConnection inserts a freshly linked connection. The cursor is
// left NULL so the first sync starts a full catch-up.
func (c *BankConnection) CreateBankConnection(db *sql.DB) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = ConnectionStatusActive
	}
	if c.InstitutionName == "" {
		c.InstitutionName = "Unknown Bank"
	}

	query := `
	INSERT INTO bank_connections (user_id, institution_name, plaid_item_id, plaid_access_token, cursor, status, created_at)
	VALUES (?, ?, ?, ?, NULL, ?, ?)`
	res, err := db.Exec(query, c.UserID, c.InstitutionName, c.PlaidItemID, c.PlaidAccessToken, c.Status, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetBankConnectionByID fetches a connection scoped to its owner. Returns
// sql.ErrNoRows both when the id is unknown and when it belongs to another
// user, so callers cannot distinguish the two.
func GetBankConnectionByID(db *sql.DB, id int64, userID int64) (*BankConnection, error) {
	query := `
	SELECT id, user_id, institution_name, plaid_item_id, plaid_access_token, cursor, status, last_synced_at, created_at
	FROM bank_connections
	WHERE id = ? AND user_id = ?`
	row := db.QueryRow(query, id, userID)

	var conn BankConnection
	var lastSyncedAt sql.NullTime
	err := row.Scan(&conn.ID, &conn.UserID, &conn.InstitutionName, &conn.PlaidItemID,
		&conn.PlaidAccessToken, &conn.Cursor, &conn.Status, &lastSyncedAt, &conn.CreatedAt)
	if err != nil {
		return nil, err
	}
	conn.LastSyncedAt = NullTime(lastSyncedAt)
	return &conn, nil
}

// ListBankConnections returns all connections for a user, newest first.
func ListBankConnections(db *sql.DB, userID int64) ([]BankConnection, error) {
	query := `
	SELECT id, user_id, institution_name, plaid_item_id, plaid_access_token, cursor, status, last_synced_at, created_at
	FROM bank_connections
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []BankConnection
	for rows.Next() {
		var conn BankConnection
		var lastSyncedAt sql.NullTime
		if err := rows.Scan(&conn.ID, &conn.UserID, &conn.InstitutionName, &conn.PlaidItemID,
			&conn.PlaidAccessToken, &conn.Cursor, &conn.Status, &lastSyncedAt, &conn.CreatedAt); err != nil {
			return nil, err
		}
		conn.LastSyncedAt = NullTime(lastSyncedAt)
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}

// UpdateSyncCursor persists the cursor reached after a fully drained sync
// attempt, together with the sync timestamp.
func UpdateSyncCursor(db *sql.DB, id int64, userID int64, cursor string, syncedAt time.Time) error {
	_, err := db.Exec(`
	UPDATE bank_connections
	SET cursor = ?, last_synced_at = ?
	WHERE id = ? AND user_id = ?`, cursor, syncedAt, id, userID)
	return err
}

// UpdateConnectionStatus moves a connection between active/error/revoked.
func UpdateConnectionStatus(db *sql.DB, id int64, userID int64, status string) error {
	_, err := db.Exec(`
	UPDATE bank_connections
	SET status = ?
	WHERE id = ? AND user_id = ?`, status, id, userID)
	return err
}

// DeleteBankConnection removes a connection and, through the FK cascade,
// every transaction that came from it.
func DeleteBankConnection(db *sql.DB, id int64, userID int64) error {
	res, err := db.Exec(`DELETE FROM bank_connections WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
