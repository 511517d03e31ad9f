package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"metacards/internal/catalog"
	"metacards/internal/storage"
)

// Options carries the collaborators the conversation needs besides storage
type Options struct {
	Catalog   *catalog.Catalog
	Images    ImageSource
	Scheduler Scheduler
	Timing    Timing
}

// NewBot creates a new Telegram bot
func NewBot(token string, db storage.Storage, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	b := newBot(&telegramGateway{api: api}, db, opts, logger)
	b.api = api
	return b, nil
}

func newBot(gw Gateway, db storage.Storage, opts Options, logger *zap.Logger) *Bot {
	return &Bot{
		gw:        gw,
		db:        db,
		cards:     opts.Catalog,
		images:    opts.Images,
		scheduler: opts.Scheduler,
		timing:    opts.Timing,
		sessions:  newSessionRegistry(),
		randIntN:  rand.IntN,
		now:       time.Now,
		baseCtx:   context.Background(),
		logger:    logger,
	}
}

// GetAPI returns the bot API
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// ActiveSessions reports how many users are mid-ritual
func (b *Bot) ActiveSessions() int {
	return b.sessions.count()
}

// Wait blocks until all queued updates and fired follow-ups have been handled
func (b *Bot) Wait() {
	b.sessions.wait()
}
