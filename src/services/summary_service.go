package services

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/models"
)

const (
	ckSpendingByCategory   = "summary_user_%d_month_%s"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type summaryServiceImpl struct {
	db          *sql.DB
	reportCache *cache.Cache
}

func NewSummaryService(db *sql.DB, reportCache *cache.Cache) SummaryService {
	return &summaryServiceImpl{
		db:          db,
		reportCache: reportCache,
	}
}

// monthBounds turns "YYYY-MM" into a [start, end) date range.
func monthBounds(month string) (string, string, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q (want YYYY-MM): %w", month, err)
	}
	return t.Format("2006-01-02"), t.AddDate(0, 1, 0).Format("2006-01-02"), nil
}

// GetSpendingByCategory sums non-pending transaction amounts per category
// for the month, highest spend first. Pending transactions are excluded
// because they are still provisional.
func (s *summaryServiceImpl) GetSpendingByCategory(userID int64, month string) ([]models.CategoryTotal, error) {
	cacheKey := fmt.Sprintf(ckSpendingByCategory, userID, month)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.CategoryTotal), nil
	}

	start, end, err := monthBounds(month)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT category, amount
		FROM transactions
		WHERE user_id = ? AND pending = 0 AND date >= ? AND date < ?`,
		userID, start, end)
	if err != nil {
		return nil, &PersistenceError{Op: "query spending summary", Err: err}
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, amountStr string
		if err := rows.Scan(&category, &amountStr); err != nil {
			return nil, &PersistenceError{Op: "scan spending summary", Err: err}
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			logger.L.Warn("Skipping transaction with unparsable amount in summary", "userID", userID, "amount", amountStr, "error", err)
			continue
		}
		if category == "" {
			category = models.CategoryUncategorized
		}
		totals[category] = totals[category].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate spending summary", Err: err}
	}

	summary := make([]models.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		summary = append(summary, models.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(summary, func(i, j int) bool {
		if !summary[i].Total.Equal(summary[j].Total) {
			return summary[i].Total.GreaterThan(summary[j].Total)
		}
		return summary[i].Category < summary[j].Category
	})

	s.reportCache.Set(cacheKey, summary, DefaultCacheExpiration)
	return summary, nil
}

// GetTotalSpending sums the positive per-category totals for the month.
// Positive amounts are money out; credits and refunds don't offset spend.
func (s *summaryServiceImpl) GetTotalSpending(userID int64, month string) (decimal.Decimal, error) {
	byCategory, err := s.GetSpendingByCategory(userID, month)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, entry := range byCategory {
		if entry.Total.IsPositive() {
			total = total.Add(entry.Total)
		}
	}
	return total, nil
}

// InvalidateUserCache drops every cached summary for the user. Called after
// a sync or deletion changes the underlying transactions.
func (s *summaryServiceImpl) InvalidateUserCache(userID int64) {
	prefix := fmt.Sprintf("summary_user_%d_", userID)
	for key := range s.reportCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.reportCache.Delete(key)
		}
	}
}
