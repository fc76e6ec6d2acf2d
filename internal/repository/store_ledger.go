package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"garden-bot/internal/model"
	"garden-bot/internal/store"
)

// StoreLedger keeps transactions as records in a RecordStore. It backs the
// ledger when the bot runs on the single-file store.
type StoreLedger struct {
	store store.RecordStore
	clock clockwork.Clock
}

// NewStoreLedger creates a new StoreLedger instance.
func NewStoreLedger(s store.RecordStore, clock clockwork.Clock) *StoreLedger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StoreLedger{store: s, clock: clock}
}

// Record implements Ledger.
func (l *StoreLedger) Record(ctx context.Context, userID int64, amount int64, txType string, description *string) error {
	tx := model.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   l.clock.Now(),
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	if _, err := l.store.Save(ctx, model.CollectionTransactions, store.Record{Key: tx.ID, Data: data}); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (l *StoreLedger) all(ctx context.Context) ([]*model.Transaction, error) {
	recs, err := l.store.LoadAll(ctx, model.CollectionTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	txs := make([]*model.Transaction, 0, len(recs))
	for _, rec := range recs {
		var tx model.Transaction
		if err := json.Unmarshal(rec.Data, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", rec.Key, err)
		}
		txs = append(txs, &tx)
	}
	return txs, nil
}

// GetByUserID retrieves transactions for a user, newest first.
func (l *StoreLedger) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	txs, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.Transaction
	for _, tx := range txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetDailyTotals sums one transaction type per user for a date, highest first.
func (l *StoreLedger) GetDailyTotals(ctx context.Context, txType string, date time.Time, limit int) ([]*model.DailyRank, error) {
	txs, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	start, end := dayBounds(date)
	totals := make(map[int64]int64)
	for _, tx := range txs {
		if tx.Type != txType || tx.CreatedAt.Before(start) || !tx.CreatedAt.Before(end) {
			continue
		}
		totals[tx.UserID] += tx.Amount
	}

	ranks := make([]*model.DailyRank, 0, len(totals))
	for userID, total := range totals {
		ranks = append(ranks, &model.DailyRank{UserID: userID, Total: total})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Total != ranks[j].Total {
			return ranks[i].Total > ranks[j].Total
		}
		return ranks[i].UserID < ranks[j].UserID
	})
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}
