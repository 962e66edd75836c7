package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/username/expensio/backend/src/categorizer"
	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/model"
	"github.com/username/expensio/backend/src/models"
	"github.com/username/expensio/backend/src/plaid"
)

type syncServiceImpl struct {
	db        *sql.DB
	fetcher   *pageFetcher
	writer    *reconciliationWriter
	summaries SummaryService

	// Per-connection locks: concurrent sync attempts for the same
	// connection would race on the shared cursor (both read the old one,
	// both persist a new one, one attempt's progress is silently lost).
	mu        sync.Mutex
	connLocks map[int64]*sync.Mutex
}

func NewSyncService(db *sql.DB, client PlaidAPI, cat *categorizer.Categorizer, summaries SummaryService) SyncService {
	return &syncServiceImpl{
		db:        db,
		fetcher:   &pageFetcher{client: client},
		writer:    &reconciliationWriter{db: db, cat: cat},
		summaries: summaries,
		connLocks: make(map[int64]*sync.Mutex),
	}
}

// connectionLock returns the mutex guarding sync attempts for one
// connection, creating it on first use. Locks are never removed; the map
// grows with the number of distinct connections synced by this process.
func (s *syncServiceImpl) connectionLock(connectionID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.connLocks[connectionID]
	if !ok {
		lock = &sync.Mutex{}
		s.connLocks[connectionID] = lock
	}
	return lock
}

// Sync runs one full sync attempt for a connection: load, drain all pages,
// reconcile, persist cursor. On any failure before the cursor update the
// connection's stored state is untouched, so the caller can simply retry
// the whole attempt later.
func (s *syncServiceImpl) Sync(ctx context.Context, userID int64, connectionID int64) (*models.SyncResult, error) {
	lock := s.connectionLock(connectionID)
	lock.Lock()
	defer lock.Unlock()

	log := logger.FromContext(ctx)

	conn, err := model.GetBankConnectionByID(s.db, connectionID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectionNotFound
		}
		return nil, &PersistenceError{Op: "load connection", Err: err}
	}

	if conn.Status != model.ConnectionStatusActive {
		return nil, fmt.Errorf("%w (status: %s)", ErrConnectionNotActive, conn.Status)
	}

	changes, newCursor, err := s.fetcher.drain(ctx, conn.PlaidAccessToken, conn.Cursor.String)
	if err != nil {
		// A revoked credential means every future attempt fails the same
		// way; park the connection so syncs short-circuit until re-link.
		var apiErr *plaid.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode == plaid.ErrorCodeItemLoginRequired {
			if stErr := model.UpdateConnectionStatus(s.db, conn.ID, userID, model.ConnectionStatusError); stErr != nil {
				log.Error("Failed to mark connection as errored after revoked credential", "connectionID", conn.ID, "error", stErr)
			} else {
				log.Warn("Connection credential revoked by provider; connection parked until re-authorization", "connectionID", conn.ID)
			}
		}
		return nil, err
	}

	upserted, deleted, err := s.writer.apply(userID, conn.ID, changes)
	if err != nil {
		// Cursor stays untouched: a retry re-fetches from the old cursor
		// and the idempotent upsert absorbs the duplicates.
		return nil, err
	}

	// last_synced_at rides along with the cursor in one statement. Losing
	// the cursor is not correctness-breaking (the next attempt re-syncs
	// from the previous epoch and reconciliation is idempotent) but it
	// forces a full catch-up, so the failure is surfaced.
	if err := model.UpdateSyncCursor(s.db, conn.ID, userID, newCursor, time.Now()); err != nil {
		return nil, &PersistenceError{Op: "persist sync cursor", Err: err}
	}

	if s.summaries != nil {
		s.summaries.InvalidateUserCache(userID)
	}

	log.Info("Sync attempt completed",
		"connectionID", conn.ID,
		"added", len(changes.Added),
		"modified", len(changes.Modified),
		"removed", len(changes.Removed),
		"deleted", deleted,
		"newCursor", newCursor != "")

	return &models.SyncResult{
		Added:          len(changes.Added),
		Modified:       len(changes.Modified),
		Removed:        len(changes.Removed),
		TotalProcessed: upserted,
	}, nil
}
