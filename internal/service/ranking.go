package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"garden-bot/internal/model"
	"garden-bot/internal/repository"
)

// RankingService handles ranking and leaderboard operations.
type RankingService struct {
	players  *repository.PlayerRepository
	ledger   repository.Ledger
	timezone *time.Location
	clock    clockwork.Clock
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(
	players *repository.PlayerRepository,
	ledger repository.Ledger,
	timezone *time.Location,
	clock clockwork.Clock,
) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RankingService{
		players:  players,
		ledger:   ledger,
		timezone: timezone,
		clock:    clock,
	}
}

// GetTopPlayers retrieves the top players by coins.
func (s *RankingService) GetTopPlayers(ctx context.Context, limit int) ([]*model.PlayerRecord, error) {
	return s.players.GetTopPlayers(ctx, limit)
}

// GetDailyDuelWinners retrieves today's top duel earners.
func (s *RankingService) GetDailyDuelWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.GetDailyDuelWinnersForDate(ctx, s.clock.Now().In(s.timezone), limit)
}

// GetDailyDuelWinnersForDate retrieves top duel earners for a specific date.
func (s *RankingService) GetDailyDuelWinnersForDate(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	ranks, err := s.ledger.GetDailyTotals(ctx, model.TxTypeDuelReward, date, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range ranks {
		p, err := s.players.Get(ctx, r.UserID)
		if err != nil {
			log.Debug().Err(err).Int64("user_id", r.UserID).Msg("Ranked player has no record")
			continue
		}
		r.Username = p.Username
	}
	return ranks, nil
}
