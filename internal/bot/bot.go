package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"garden-bot/internal/config"
	"garden-bot/internal/game/duel"
	"garden-bot/internal/handler"
	"garden-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	private *PrivateUsers

	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
	rankingHandler *handler.RankingHandler
	shopHandler    *handler.ShopHandler
	gardenHandler  *handler.GardenHandler
	duelHandler    *handler.DuelHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	RankingService *service.RankingService
	GardenService  *service.GardenService
	DuelEngine     *duel.Engine
	Clock          clockwork.Clock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		private: NewPrivateUsers(),

		accountHandler: handler.NewAccountHandler(deps.AccountService, deps.RankingService),
		adminHandler:   handler.NewAdminHandler(deps.AccountService),
		rankingHandler: handler.NewRankingHandler(deps.RankingService),
		shopHandler:    handler.NewShopHandler(deps.GardenService, deps.AccountService),
		gardenHandler:  handler.NewGardenHandler(deps.GardenService, deps.AccountService, deps.Config.Garden.TameCooldown, deps.Clock),
		duelHandler:    handler.NewDuelHandler(deps.DuelEngine, deps.AccountService),
	}
	b.duelHandler.BindTimeouts(teleBot)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.private))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	// Account
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/my", b.accountHandler.HandleMy)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/daily_top", b.rankingHandler.HandleDailyTop)

	// Admin
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)
	adminGroup.Handle("/admin_gift_all", b.adminHandler.HandleAdminGiftAll)

	// Garden
	b.bot.Handle("/explore", b.gardenHandler.HandleExplore)
	b.bot.Handle("/tame", b.gardenHandler.HandleTame)
	b.bot.Handle("/feed", b.gardenHandler.HandleFeed)
	b.bot.Handle("/active", b.gardenHandler.HandleActive)
	b.bot.Handle("/bag", b.shopHandler.HandleBag)

	// Duel
	b.bot.Handle("/battle", b.duelHandler.HandleBattle)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleStart routes /start to the shop in private chat and to the account
// greeting in groups.
func (b *Bot) handleStart(c tele.Context) error {
	chat := c.Chat()
	if chat != nil && chat.Type == tele.ChatPrivate {
		return b.shopHandler.HandleShopStart(c)
	}
	return b.accountHandler.HandleStart(c)
}

// handleCallback routes inline button presses by data prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Buttons carry their full payload in the unique part, which telebot
	// prefixes with \f.
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	switch {
	case strings.HasPrefix(data, "shop_"):
		return b.shopHandler.HandleShopCallback(c)
	case strings.HasPrefix(data, handler.CallbackDuelAttack), strings.HasPrefix(data, handler.CallbackDuelDefend):
		return b.duelHandler.HandleDuelCallback(c)
	case strings.HasPrefix(data, "garden_"):
		return b.gardenHandler.HandleGardenCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unrouted callback")
	return c.Respond()
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
