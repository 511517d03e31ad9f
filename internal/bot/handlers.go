package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HandleUpdate queues an update on its sender's worker. Updates from one user
// are handled in order; different users are handled in parallel.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		message := update.Message
		b.sessions.enqueue(message.From.ID, func() { b.handleMessage(ctx, message) })
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		query := update.CallbackQuery
		b.sessions.enqueue(query.From.ID, func() { b.handleCallbackQuery(ctx, query) })
	default:
		b.logger.Debug("Ignoring update", zap.Int("update_id", update.UpdateID))
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage",
				zap.Any("panic", r),
				zap.Int64("user_id", message.From.ID),
			)
			b.sendText(message.Chat.ID, textInternalError, nil)
		}
	}()

	userID := message.From.ID

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(ctx, message)
		case "reset":
			b.handleReset(ctx, message)
		default:
			// Any command interrupts an ongoing ritual
			b.dropSession(userID)
			b.sendText(message.Chat.ID, textUnknownCommand, nil)
		}
		return
	}

	session := b.sessions.get(userID)
	if session == nil || session.Step != StepWaitingForRequest {
		b.logger.Debug("Ignoring out-of-state message", zap.Int64("user_id", userID))
		return
	}
	b.handleRequestText(ctx, message, session)
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery",
				zap.Any("panic", r),
				zap.Int64("user_id", query.From.ID),
				zap.String("callback_data", query.Data),
			)
			if query.Message != nil {
				b.sendText(query.Message.Chat.ID, textInternalError, nil)
			}
		}
	}()

	// Answer the callback query to remove loading state
	if err := b.gw.AnswerCallback(query.ID); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	// Inline-mode callbacks carry no message and cannot belong to a ritual
	if query.Message == nil {
		return
	}

	data := query.Data
	switch {
	case data == callbackDraw:
		b.handleDrawCallback(ctx, query)
	case data == callbackNeedHints:
		b.handleHintsCallback(ctx, query)
	case data == callbackInsights:
		b.handleInsightsCallback(ctx, query)
	case strings.HasPrefix(data, callbackDescribePfx):
		b.handleDescribeCallback(query)
	default:
		b.logger.Debug("Unknown callback data", zap.String("callback_data", data))
		b.sendText(query.Message.Chat.ID, textInvalidAction, nil)
	}
}

// dropSession discards the user's session and invalidates scheduled work
func (b *Bot) dropSession(userID int64) *Session {
	b.scheduler.Cancel(followUpKey(userID))
	b.scheduler.Cancel(hintKey(userID))
	return b.sessions.remove(userID)
}
