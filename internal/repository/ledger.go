package repository

import (
	"context"
	"time"

	"garden-bot/internal/model"
)

// Ledger records balance changes for history and rankings.
// Ledger writes are best effort: a failure is logged by the caller and
// never undoes the balance change it describes.
type Ledger interface {
	Record(ctx context.Context, userID int64, amount int64, txType string, description *string) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
	GetDailyTotals(ctx context.Context, txType string, date time.Time, limit int) ([]*model.DailyRank, error)
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.Add(24 * time.Hour)
}
