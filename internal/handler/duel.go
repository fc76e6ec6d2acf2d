package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/game/duel"
	"garden-bot/internal/service"
)

// Callback data prefixes for duel buttons
const (
	CallbackDuelAttack = "duel_atk:" // duel_atk:<session>:<move index>
	CallbackDuelDefend = "duel_def:" // duel_def:<session>
)

// messageEditor is the part of *tele.Bot used to update a duel message
// outside of a handler.
type messageEditor interface {
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// DuelHandler handles /battle and the move buttons.
type DuelHandler struct {
	engine         *duel.Engine
	accountService *service.AccountService

	mu       sync.Mutex
	messages map[string]*tele.Message // session id -> duel message
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(engine *duel.Engine, accountService *service.AccountService) *DuelHandler {
	return &DuelHandler{
		engine:         engine,
		accountService: accountService,
		messages:       make(map[string]*tele.Message),
	}
}

// BindTimeouts updates the duel message when the turn clock ends a duel.
func (h *DuelHandler) BindTimeouts(editor messageEditor) {
	h.engine.OnTimeout(func(s duel.Snapshot) {
		msg := h.takeMessage(s.SessionID)
		if msg == nil {
			return
		}
		if _, err := editor.Edit(msg, renderDuel(s, nil, 0)); err != nil {
			log.Warn().Err(err).Str("session_id", s.SessionID).Msg("Failed to update timed out duel")
		}
	})
}

func (h *DuelHandler) rememberMessage(sessionID string, msg *tele.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[sessionID] = msg
}

func (h *DuelHandler) takeMessage(sessionID string) *tele.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := h.messages[sessionID]
	delete(h.messages, sessionID)
	return msg
}

// HandleBattle handles /battle sent as a reply to the opponent's message.
func (h *DuelHandler) HandleBattle(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	target := replyTarget(c)
	if target == nil {
		return c.Reply("❌ 用法: 回复对手的消息，然后发送 /battle")
	}
	if target.IsBot {
		return c.Reply("❌ 不能和机器人决斗")
	}

	challenger, _, err := h.accountService.EnsurePlayer(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}
	if _, ok := challenger.Active(); !ok && target.ID != sender.ID {
		return c.Reply("❌ 你还没有出战宠物，先发送 /explore 收服一只")
	}
	if _, _, err := h.accountService.EnsurePlayer(ctx, target.ID, displayName(target)); err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	snap, err := h.engine.Challenge(ctx, sender.ID, target.ID)
	if err != nil {
		switch {
		case errors.Is(err, duel.ErrSelfChallenge):
			return c.Reply("❌ 不能和自己决斗")
		case errors.Is(err, duel.ErrNoActiveCreature):
			return c.Reply(fmt.Sprintf("❌ @%s 还没有出战宠物", displayName(target)))
		case errors.Is(err, duel.ErrAlreadyInContest):
			return c.Reply("❌ 有一方正在决斗中")
		}
		log.Error().Err(err).Int64("challenger", sender.ID).Int64("target", target.ID).Msg("Create duel failed")
		return c.Reply("❌ 发起决斗失败，请稍后重试")
	}

	sent, err := c.Bot().Send(chat, renderDuel(snap, nil, 0), duelKeyboard(snap))
	if err != nil {
		log.Error().Err(err).Str("session_id", snap.SessionID).Msg("Failed to send duel message")
		h.engine.Cancel(snap.SessionID)
		return c.Reply("❌ 发起决斗失败，请稍后重试")
	}
	h.rememberMessage(snap.SessionID, sent)
	return nil
}

// HandleDuelCallback handles attack and defend buttons.
func (h *DuelHandler) HandleDuelCallback(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	sessionID, choice, ok := parseDuelCallback(callbackData(c))
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
	}

	out, err := h.engine.ApplyMove(ctx, sessionID, sender.ID, choice)
	if err != nil {
		text := "❌ 操作失败"
		switch {
		case errors.Is(err, duel.ErrNotYourTurn):
			text = "⏳ 还没轮到你"
		case errors.Is(err, duel.ErrContestAlreadyEnded):
			text = "🏁 决斗已经结束"
		case errors.Is(err, duel.ErrSessionNotFound):
			text = "❌ 决斗已过期或不存在"
		case errors.Is(err, duel.ErrInvalidMoveChoice):
			text = "❌ 无效技能"
		default:
			log.Error().Err(err).Str("session_id", sessionID).Msg("Duel move failed")
		}
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}

	_ = c.Respond(&tele.CallbackResponse{})

	if out.Ended {
		h.takeMessage(sessionID)
		return c.Edit(renderOutcome(out, sender.ID))
	}
	return c.Edit(renderDuel(out.Snapshot, &out.Effect, sender.ID), duelKeyboard(out.Snapshot))
}

// parseDuelCallback decodes duel_atk:<session>:<i> and duel_def:<session>.
func parseDuelCallback(data string) (string, duel.MoveChoice, bool) {
	switch {
	case strings.HasPrefix(data, CallbackDuelAttack):
		rest := strings.TrimPrefix(data, CallbackDuelAttack)
		i := strings.LastIndex(rest, ":")
		if i <= 0 {
			return "", duel.MoveChoice{}, false
		}
		idx, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return "", duel.MoveChoice{}, false
		}
		return rest[:i], duel.Attack(idx), true

	case strings.HasPrefix(data, CallbackDuelDefend):
		sessionID := strings.TrimPrefix(data, CallbackDuelDefend)
		if sessionID == "" {
			return "", duel.MoveChoice{}, false
		}
		return sessionID, duel.Defend(), true
	}
	return "", duel.MoveChoice{}, false
}

// duelKeyboard offers the turn holder's moves plus Defend.
func duelKeyboard(s duel.Snapshot) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	holder, ok := s.Contestant(s.TurnHolder)
	if !ok {
		return markup
	}

	var rows []tele.Row
	for i, m := range holder.Creature.Moves {
		label := fmt.Sprintf("⚔️ %s (%d)", m.Name, m.Damage)
		rows = append(rows, markup.Row(markup.Data(label, fmt.Sprintf("%s%s:%d", CallbackDuelAttack, s.SessionID, i))))
	}
	rows = append(rows, markup.Row(markup.Data("🛡️ 防御", CallbackDuelDefend+s.SessionID)))
	markup.Inline(rows...)
	return markup
}

func hpLine(c duel.Contestant) string {
	return fmt.Sprintf("@%s 的 %s ❤️ %d/%d", c.Name, c.Creature.Name, c.HP, c.BaseHP)
}

// renderDuel formats the duel board. effect describes the move actorID just made.
func renderDuel(s duel.Snapshot, effect *duel.Effect, actorID int64) string {
	msg := "⚔️ 宠物决斗\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += hpLine(s.Contestants[0]) + "\n"
	msg += hpLine(s.Contestants[1]) + "\n"
	msg += "━━━━━━━━━━━━━━━\n"

	if effect != nil {
		if actor, ok := s.Contestant(actorID); ok {
			switch effect.Kind {
			case duel.KindAttack:
				msg += fmt.Sprintf("💥 %s 使用 %s，造成 %d 点伤害\n", actor.Creature.Name, effect.MoveName, effect.Damage)
			case duel.KindDefend:
				msg += fmt.Sprintf("🛡️ %s 防御，恢复 %d 点生命\n", actor.Creature.Name, effect.Healed)
			}
		}
	}

	switch {
	case s.Status == duel.StatusActive:
		holder, _ := s.Contestant(s.TurnHolder)
		msg += fmt.Sprintf("第 %d 回合，轮到 @%s 行动", s.Round+1, holder.Name)
	case s.Reason == duel.EndTimeout:
		msg += "⏰ 决斗超时，没有胜者"
	case s.HasWinner():
		winner, _ := s.Contestant(s.Winner)
		msg += fmt.Sprintf("🏆 @%s 获胜！", winner.Name)
	}
	return msg
}

func renderOutcome(out *duel.Outcome, actorID int64) string {
	msg := renderDuel(out.Snapshot, &out.Effect, actorID)
	switch {
	case out.RewardErr != nil:
		msg += "\n⚠️ 奖励发放失败，请联系管理员"
	case out.Reward > 0:
		msg += fmt.Sprintf("\n💰 奖励 %d 金币", out.Reward)
	}
	return msg
}
