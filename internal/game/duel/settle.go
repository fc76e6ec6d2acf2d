package duel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"garden-bot/internal/model"
	"garden-bot/internal/repository"
)

// DefaultReward is paid to the winner of a duel.
const DefaultReward int64 = 1000

// Settlement pays out a finished contest. It is called at most once per
// contest, by whoever performed the Ended transition.
type Settlement interface {
	Settle(ctx context.Context, s Snapshot) (int64, error)
}

// RewardSettlement credits a fixed reward to the winner's player record.
// A failed payment is not retried and the contest result stands.
type RewardSettlement struct {
	players *repository.PlayerRepository
	ledger  repository.Ledger
	reward  int64
}

// NewRewardSettlement creates a new RewardSettlement instance.
func NewRewardSettlement(players *repository.PlayerRepository, ledger repository.Ledger, reward int64) *RewardSettlement {
	if reward <= 0 {
		reward = DefaultReward
	}
	return &RewardSettlement{players: players, ledger: ledger, reward: reward}
}

// Settle pays the winner and returns the amount paid. No winner pays nothing.
func (r *RewardSettlement) Settle(ctx context.Context, s Snapshot) (int64, error) {
	if !s.HasWinner() {
		return 0, nil
	}

	_, err := r.players.Update(ctx, s.Winner, func(p *model.PlayerRecord) error {
		p.Coins += r.reward
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to pay duel reward: %w", err)
	}

	if r.ledger != nil {
		desc := "决斗胜利 " + s.SessionID
		if err := r.ledger.Record(ctx, s.Winner, r.reward, model.TxTypeDuelReward, &desc); err != nil {
			log.Warn().Err(err).
				Str("session_id", s.SessionID).
				Int64("user_id", s.Winner).
				Msg("Failed to record duel reward transaction")
		}
	}
	return r.reward, nil
}
