package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleStart greets the user and opens a fresh session awaiting a request
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	if old := b.dropSession(userID); old != nil {
		b.clearKeyboard(old.ChatID, old.PromptMessageID)
	}

	greeting := fmt.Sprintf(textGreetingNew, message.From.FirstName)
	_, known, err := b.db.GetDisplayName(ctx, userID)
	switch {
	case err != nil:
		b.logger.Error("Failed to look up user", zap.Error(err), zap.Int64("user_id", userID))
	case known:
		greeting = textGreetingReturning
	default:
		if err := b.db.UpsertUser(ctx, userID, message.From.FirstName); err != nil {
			b.logger.Error("Failed to save user", zap.Error(err), zap.Int64("user_id", userID))
		}
	}

	b.sessions.put(&Session{
		UserID:            userID,
		ChatID:            chatID,
		Step:              StepWaitingForRequest,
		LastInteractionAt: b.now(),
		Generation:        b.sessions.newGeneration(),
	})
	if err := b.db.ClearInFlightRequest(ctx, userID); err != nil {
		b.logger.Error("Failed to clear current request", zap.Error(err), zap.Int64("user_id", userID))
	}

	b.sendText(chatID, greeting, nil)
	pause(ctx, b.timing.GreetingPause)
	b.sendText(chatID, textRequestPrompt, nil)

	b.logger.Info("Session started", zap.Int64("user_id", userID), zap.Bool("returning", known))
}

// handleReset discards the session and the stored in-flight request
func (b *Bot) handleReset(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	b.dropSession(userID)
	if err := b.db.ClearInFlightRequest(ctx, userID); err != nil {
		b.logger.Error("Failed to clear current request", zap.Error(err), zap.Int64("user_id", userID))
	}
	b.sendText(message.Chat.ID, textReset, nil)
}

// handleRequestText stores the user's request and offers the draw button
func (b *Bot) handleRequestText(ctx context.Context, message *tgbotapi.Message, session *Session) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		b.sendText(message.Chat.ID, textRequestEmpty, nil)
		return
	}

	if err := b.db.SetInFlightRequest(ctx, session.UserID, text); err != nil {
		b.logger.Error("Failed to store current request", zap.Error(err), zap.Int64("user_id", session.UserID))
	}

	session.RequestText = text
	session.ChatID = message.Chat.ID
	session.Step = StepRequestReceived
	session.LastInteractionAt = b.now()

	b.sendText(message.Chat.ID, textRequestReceived, drawKeyboard())
}
