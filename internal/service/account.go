// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"garden-bot/internal/model"
	"garden-bot/internal/repository"
)

// Common errors for account operations.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")

	errDailyCooldown = errors.New("daily reward on cooldown")
)

// AccountService handles player account operations.
type AccountService struct {
	players     *repository.PlayerRepository
	ledger      repository.Ledger
	dailyReward int64
	cooldownHrs int
	clock       clockwork.Clock
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	players *repository.PlayerRepository,
	ledger repository.Ledger,
	dailyReward int64,
	cooldownHours int,
	clock clockwork.Clock,
) *AccountService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AccountService{
		players:     players,
		ledger:      ledger,
		dailyReward: dailyReward,
		cooldownHrs: cooldownHours,
		clock:       clock,
	}
}

// record writes a ledger entry. Ledger failures never undo the balance change.
func record(ctx context.Context, ledger repository.Ledger, userID, amount int64, txType string, desc *string) {
	if ledger == nil {
		return
	}
	if err := ledger.Record(ctx, userID, amount, txType, desc); err != nil {
		log.Warn().Err(err).
			Int64("user_id", userID).
			Str("type", txType).
			Msg("Failed to record transaction")
	}
}

// EnsurePlayer ensures a player exists, creating one if necessary.
// Returns the player and whether it was newly created.
func (s *AccountService) EnsurePlayer(ctx context.Context, userID int64, username string) (*model.PlayerRecord, bool, error) {
	p, created, err := s.players.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure player: %w", err)
	}

	if created {
		desc := "新玩家初始金币"
		record(ctx, s.ledger, userID, p.Coins, model.TxTypeInitial, &desc)
		log.Info().Int64("user_id", userID).Str("username", username).Msg("New player created")
		return p, true, nil
	}

	if username != "" && p.Username != username {
		updated, err := s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
			p.Username = username
			return nil
		})
		if err != nil {
			// Non-fatal, the player still exists
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to update username")
			p.Username = username
			return p, false, nil
		}
		p = updated
	}

	return p, false, nil
}

// GetBalance retrieves a player's current coins.
func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	p, err := s.players.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return p.Coins, nil
}

// GetPlayer retrieves a player by Telegram ID.
func (s *AccountService) GetPlayer(ctx context.Context, userID int64) (*model.PlayerRecord, error) {
	return s.players.Get(ctx, userID)
}

// UpdateBalance adds amount (may be negative) to a player's coins and
// records a transaction. The balance never goes below zero.
func (s *AccountService) UpdateBalance(ctx context.Context, userID int64, amount int64, txType string, description *string) (*model.PlayerRecord, error) {
	p, err := s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
		if p.Coins+amount < 0 {
			return ErrInsufficientBalance
		}
		p.Coins += amount
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	record(ctx, s.ledger, userID, amount, txType, description)
	return p, nil
}

// GiftAll adds amount to every stored player and returns how many were paid.
// Players whose update fails are skipped and logged.
func (s *AccountService) GiftAll(ctx context.Context, amount int64, description *string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	players, err := s.players.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list players: %w", err)
	}

	var count int64
	for _, p := range players {
		if _, err := s.players.Update(ctx, p.UserID, func(p *model.PlayerRecord) error {
			p.Coins += amount
			return nil
		}); err != nil {
			log.Warn().Err(err).Int64("user_id", p.UserID).Msg("Failed to gift player")
			continue
		}
		record(ctx, s.ledger, p.UserID, amount, model.TxTypeAdminGift, description)
		count++
	}
	return count, nil
}

// dailyClaimEligibility reports whether a claim made at lastClaim (unix
// seconds, 0 = never) allows a new claim at now, and how long is left if not.
func dailyClaimEligibility(lastClaim int64, cooldownHours int, now time.Time) (bool, time.Duration) {
	if lastClaim == 0 {
		return true, 0
	}

	cooldown := time.Duration(cooldownHours) * time.Hour
	nextClaimTime := time.Unix(lastClaim, 0).Add(cooldown)

	if !now.Before(nextClaimTime) {
		return true, 0
	}
	return false, nextClaimTime.Sub(now)
}

// ClaimDaily attempts to claim the daily reward for a player.
// Returns:
// - success: whether the claim was successful
// - message: a message describing the result (remaining time if failed)
// - error: any error that occurred
func (s *AccountService) ClaimDaily(ctx context.Context, userID int64) (bool, string, error) {
	var remaining time.Duration

	_, err := s.players.Update(ctx, userID, func(p *model.PlayerRecord) error {
		now := s.clock.Now()
		ok, left := dailyClaimEligibility(p.LastDailyClaim, s.cooldownHrs, now)
		if !ok {
			remaining = left
			return errDailyCooldown
		}
		p.Coins += s.dailyReward
		p.LastDailyClaim = now.Unix()
		return nil
	})
	if err != nil && !errors.Is(err, errDailyCooldown) {
		return false, "", fmt.Errorf("failed to claim daily reward: %w", err)
	}

	if err != nil {
		hours := int(remaining.Hours())
		minutes := int(remaining.Minutes()) % 60
		seconds := int(remaining.Seconds()) % 60
		msg := fmt.Sprintf("请等待 %d小时%d分%d秒 后再领取", hours, minutes, seconds)
		return false, msg, nil
	}

	desc := "每日签到奖励"
	record(ctx, s.ledger, userID, s.dailyReward, model.TxTypeDaily, &desc)

	msg := fmt.Sprintf("签到成功！获得 %d 金币", s.dailyReward)
	return true, msg, nil
}
