package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"metacards/internal/models"
)

// captionLimit is Telegram's maximum photo caption length in characters
const captionLimit = 1024

// sendText sends a message and logs failures; the returned id is 0 on failure
func (b *Bot) sendText(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) int {
	id, err := b.gw.SendText(chatID, text, keyboard)
	if err != nil {
		b.logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
		return 0
	}
	return id
}

func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.gw.ClearKeyboard(chatID, messageID); err != nil {
		b.logger.Warn("Failed to clear keyboard", zap.Error(err), zap.Int("message_id", messageID))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.gw.DeleteMessage(chatID, messageID); err != nil {
		b.logger.Warn("Failed to delete message", zap.Error(err), zap.Int("message_id", messageID))
	}
}

// pause waits d or until ctx is done, reporting whether the full delay elapsed
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func drawKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(buttonDraw, callbackDraw)),
	)
	return &kb
}

func feedbackKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonNeedHints, callbackNeedHints),
			tgbotapi.NewInlineKeyboardButtonData(buttonGotInsights, callbackInsights),
		),
	)
	return &kb
}

func insightsKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(buttonGotInsights, callbackInsights)),
	)
	return &kb
}

// describeToken builds the callback data for a full description lookup
func describeToken(card models.Card) string {
	return callbackDescribePfx + card.Type.String() + ":" + strconv.Itoa(card.ID)
}

// cardCaption renders the photo caption. Long descriptions are cut to the caption
// limit and get a button that sends the full text.
func cardCaption(card models.Card) (string, *tgbotapi.InlineKeyboardMarkup) {
	caption := card.Name
	if card.Description != "" {
		if caption != "" {
			caption += "\n\n"
		}
		caption += card.Description
	}
	if utf8.RuneCountInString(caption) <= captionLimit {
		return caption, nil
	}

	runes := []rune(caption)
	caption = string(runes[:captionLimit-1]) + "…"
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(buttonDescribe, describeToken(card))),
	)
	return caption, &kb
}

func fullDescription(card models.Card) string {
	return fmt.Sprintf("%s\n\n%s", card.Name, card.Description)
}

func photoFilename(card models.Card) string {
	return fmt.Sprintf("%d_%s.png", card.ID, card.Type)
}
