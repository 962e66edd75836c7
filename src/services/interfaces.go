package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/expensio/backend/src/models"
)

// Define common service errors
var (
	// ErrConnectionNotFound covers both an unknown connection id and one
	// owned by a different user; callers cannot tell the two apart.
	ErrConnectionNotFound = errors.New("bank connection not found or access denied")

	// ErrConnectionNotActive means the connection is parked in error or
	// revoked state and needs re-authorization before it can sync.
	ErrConnectionNotActive = errors.New("bank connection is not active")
)

// ProviderError wraps a failed aggregator call. The attempt aborted before
// any local state was touched, so retrying the whole sync later is safe.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("aggregator request failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed datastore write. Reconciliation is
// idempotent, so a retry re-fetches and re-applies the same changes.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PlaidAPI is the slice of the Plaid client the sync service depends on.
type PlaidAPI interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*models.PlaidSyncResponse, error)
}

// SyncService drives one sync attempt per call: drain all pages from the
// aggregator, reconcile them into the store, then persist the new cursor.
// Attempts for the same connection are serialized; different connections
// may sync concurrently.
type SyncService interface {
	Sync(ctx context.Context, userID int64, connectionID int64) (*models.SyncResult, error)
}

// SummaryService serves the read-side spending aggregates, cached per user
// and month until the next sync or deletion invalidates them.
type SummaryService interface {
	GetSpendingByCategory(userID int64, month string) ([]models.CategoryTotal, error)
	GetTotalSpending(userID int64, month string) (decimal.Decimal, error)
	InvalidateUserCache(userID int64)
}
