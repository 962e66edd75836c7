package services

import (
	"context"

	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/models"
)

// pageFetcher drains Plaid's cursor-paginated change stream for one sync
// attempt. It never persists cursors itself: the caller only gets the final
// cursor once every page has been consumed, because Plaid's protocol makes
// intermediate cursors unsafe to store — persisting one after a partial
// drain would permanently strand the unprocessed tail of the stream.
type pageFetcher struct {
	client PlaidAPI
}

// drain repeatedly calls /transactions/sync until has_more is false,
// accumulating every page into a single ChangeSet. cursor is empty for a
// connection that has never synced. Any page failure aborts the whole
// attempt; the partial ChangeSet and cursor are discarded.
func (f *pageFetcher) drain(ctx context.Context, accessToken, cursor string) (*models.ChangeSet, string, error) {
	changes := &models.ChangeSet{}
	hasMore := true
	pages := 0

	for hasMore {
		// Cooperative cancellation point between pages. Once a page is
		// handed to reconciliation the batch runs to completion instead.
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		page, err := f.client.SyncTransactions(ctx, accessToken, cursor)
		if err != nil {
			return nil, "", &ProviderError{Err: err}
		}

		changes.Added = append(changes.Added, page.Added...)
		changes.Modified = append(changes.Modified, page.Modified...)
		for _, removed := range page.Removed {
			changes.Removed = append(changes.Removed, removed.TransactionID)
		}

		cursor = page.NextCursor
		hasMore = page.HasMore
		pages++
	}

	logger.FromContext(ctx).Debug("Drained aggregator change stream",
		"pages", pages,
		"added", len(changes.Added),
		"modified", len(changes.Modified),
		"removed", len(changes.Removed))

	return changes, cursor, nil
}
