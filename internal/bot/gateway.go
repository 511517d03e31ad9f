package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Gateway is the outbound side of the bot: everything the conversation sends to a chat
type Gateway interface {
	SendText(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	SendPhoto(chatID int64, filename string, data []byte, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	ClearKeyboard(chatID int64, messageID int) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID string) error
}

// telegramGateway sends through the Bot API client
type telegramGateway struct {
	api *tgbotapi.BotAPI
}

func (g *telegramGateway) SendText(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

func (g *telegramGateway) SendPhoto(chatID int64, filename string, data []byte, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	photo.Caption = caption
	if keyboard != nil {
		photo.ReplyMarkup = *keyboard
	}
	sent, err := g.api.Send(photo)
	if err != nil {
		return 0, fmt.Errorf("send photo %s: %w", filename, err)
	}
	return sent.MessageID, nil
}

func (g *telegramGateway) ClearKeyboard(chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := g.api.Request(edit); err != nil {
		return fmt.Errorf("clear keyboard: %w", err)
	}
	return nil
}

func (g *telegramGateway) DeleteMessage(chatID int64, messageID int) error {
	if _, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (g *telegramGateway) AnswerCallback(callbackID string) error {
	if _, err := g.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
