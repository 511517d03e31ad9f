package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"metacards/internal/catalog"
	"metacards/internal/models"
)

var errMalformedToken = errors.New("malformed callback token")

// handleDrawCallback draws, delivers and records one block card and one resource card
func (b *Bot) handleDrawCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	session := b.sessions.get(userID)
	if session == nil {
		b.sendText(chatID, textSessionLost, nil)
		return
	}
	if session.Step != StepRequestReceived {
		b.logger.Debug("Ignoring draw outside request_received",
			zap.Int64("user_id", userID),
			zap.Stringer("step", session.Step),
		)
		return
	}

	block, resource, err := b.cards.Draw(b.randIntN)
	if err != nil {
		b.logger.Warn("Draw aborted", zap.Error(err), zap.Int64("user_id", userID))
		if errors.Is(err, catalog.ErrNoCards) {
			b.sendText(chatID, textCardsUnavailable, nil)
		} else {
			b.sendText(chatID, textInternalError, nil)
		}
		return
	}

	cards := []models.Card{block, resource}
	images, failed := b.fetchImages(ctx, cards)
	if len(failed) > 0 {
		names := make([]string, len(failed))
		for i, card := range failed {
			names[i] = card.Type.String()
		}
		b.sendText(chatID, fmt.Sprintf(textImageUnavailable, strings.Join(names, " and ")), nil)
		return
	}

	// The draw button stays usable until the images are in hand
	b.clearKeyboard(chatID, query.Message.MessageID)

	for i, card := range cards {
		if i > 0 {
			pause(ctx, b.timing.CardInterval)
		}
		caption, keyboard := cardCaption(card)
		if _, err := b.gw.SendPhoto(chatID, photoFilename(card), images[i], caption, keyboard); err != nil {
			b.logger.Error("Failed to send card",
				zap.Error(err),
				zap.Int64("user_id", userID),
				zap.Int("card_id", card.ID),
			)
			b.sendText(chatID, fmt.Sprintf(textDeliveryFailed, card.Type), drawKeyboard())
			return
		}
	}

	draw := models.CompletedDraw{
		UserID:                  userID,
		RequestText:             session.RequestText,
		BlockCardID:             block.ID,
		ResourceCardID:          resource.ID,
		BlockCardDescription:    block.Description,
		ResourceCardDescription: resource.Description,
		RequestedAt:             b.now(),
	}
	if _, err := b.db.AppendCompletedDraw(ctx, draw); err != nil {
		b.logger.Error("Failed to save draw", zap.Error(err), zap.Int64("user_id", userID))
	}
	if err := b.db.ClearInFlightRequest(ctx, userID); err != nil {
		b.logger.Error("Failed to clear current request", zap.Error(err), zap.Int64("user_id", userID))
	}

	b.advance(session, StepWaitingForFeedback)
	session.BlockCard = &block
	session.ResourceCard = &resource
	session.Generation = b.sessions.newGeneration()
	b.scheduleFollowUp(session)

	b.logger.Info("Cards drawn",
		zap.Int64("user_id", userID),
		zap.Int("block_card_id", block.ID),
		zap.Int("resource_card_id", resource.ID),
	)
}

// fetchImages loads all images concurrently and returns the cards whose image failed
func (b *Bot) fetchImages(ctx context.Context, cards []models.Card) ([][]byte, []models.Card) {
	images := make([][]byte, len(cards))
	errs := make([]error, len(cards))

	var g errgroup.Group
	for i, card := range cards {
		g.Go(func() error {
			images[i], errs[i] = b.images.Fetch(ctx, card.ImageURL)
			return nil
		})
	}
	_ = g.Wait()

	var failed []models.Card
	for i, err := range errs {
		if err != nil {
			b.logger.Warn("Card image unavailable",
				zap.Error(err),
				zap.Int("card_id", cards[i].ID),
				zap.String("image_url", cards[i].ImageURL),
			)
			failed = append(failed, cards[i])
		}
	}
	return images, failed
}

// handleHintsCallback sends one hint question per drawn card
func (b *Bot) handleHintsCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	session := b.sessions.get(userID)
	if session == nil {
		b.sendText(chatID, textSessionLost, nil)
		return
	}
	if !b.advance(session, StepHintsSent) {
		return
	}

	b.deleteMessage(chatID, query.Message.MessageID)
	session.PromptMessageID = 0

	hints := b.pickHints(session)
	switch len(hints) {
	case 0:
		b.sendText(chatID, textNoHints, insightsKeyboard())
		return
	case 1:
		b.sendText(chatID, hints[0], insightsKeyboard())
		return
	}

	b.sendText(chatID, hints[0], nil)
	if b.timing.HintInterval <= 0 {
		b.sendText(chatID, hints[1], insightsKeyboard())
		return
	}

	gen := session.Generation
	second := hints[1]
	b.scheduler.After(hintKey(userID), b.timing.HintInterval, func() {
		b.sessions.enqueue(userID, func() { b.sendPendingHint(userID, gen, second) })
	})
}

// pickHints renders "<card name>: <question>" for each drawn card with hints of its type
func (b *Bot) pickHints(session *Session) []string {
	var hints []string
	for _, card := range []*models.Card{session.BlockCard, session.ResourceCard} {
		if card == nil {
			continue
		}
		if q, ok := b.cards.RandomHint(card.Type, b.randIntN); ok {
			hints = append(hints, card.Name+": "+q.Question)
		}
	}
	return hints
}

func (b *Bot) sendPendingHint(userID int64, gen uint64, text string) {
	session := b.sessions.get(userID)
	if session == nil || session.Generation != gen || session.Step != StepHintsSent {
		b.logger.Debug("Dropping stale hint", zap.Int64("user_id", userID))
		return
	}
	b.sendText(session.ChatID, text, insightsKeyboard())
}

// handleInsightsCallback closes the ritual
func (b *Bot) handleInsightsCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if session := b.sessions.get(userID); session != nil && !canTransition(session.Step, StepDone) {
		b.logger.Debug("Ignoring insights outside feedback",
			zap.Int64("user_id", userID),
			zap.Stringer("step", session.Step),
		)
		return
	}

	b.clearKeyboard(chatID, query.Message.MessageID)
	b.dropSession(userID)
	b.sendText(chatID, textClosing, nil)
	b.logger.Info("Session completed", zap.Int64("user_id", userID))
}

// handleDescribeCallback sends the untruncated description of a card
func (b *Bot) handleDescribeCallback(query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID

	card, err := b.cardFromToken(query.Data)
	switch {
	case errors.Is(err, errMalformedToken):
		b.logger.Debug("Malformed describe token", zap.String("callback_data", query.Data))
		b.sendText(chatID, textInvalidAction, nil)
	case err != nil:
		b.logger.Warn("Describe lookup failed", zap.Error(err))
		b.sendText(chatID, textCardNotFound, nil)
	default:
		b.sendText(chatID, fullDescription(card), nil)
	}
}

// cardFromToken resolves "describe:<type>:<id>" to a card of that type
func (b *Bot) cardFromToken(data string) (models.Card, error) {
	parts := strings.Split(strings.TrimPrefix(data, callbackDescribePfx), ":")
	if len(parts) != 2 {
		return models.Card{}, errMalformedToken
	}
	cardType, err := models.ParseCardType(parts[0])
	if err != nil {
		return models.Card{}, fmt.Errorf("%w: %v", errMalformedToken, err)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return models.Card{}, fmt.Errorf("%w: bad id %q", errMalformedToken, parts[1])
	}

	card, err := b.cards.Card(id)
	if err != nil {
		return models.Card{}, err
	}
	if card.Type != cardType {
		return models.Card{}, fmt.Errorf("card %d is not a %s card: %w", id, cardType, catalog.ErrCardNotFound)
	}
	return card, nil
}

// advance moves the session forward if the transition is allowed
func (b *Bot) advance(session *Session, to Step) bool {
	if !canTransition(session.Step, to) {
		b.logger.Debug("Ignoring out-of-step action",
			zap.Int64("user_id", session.UserID),
			zap.Stringer("from", session.Step),
			zap.Stringer("to", to),
		)
		return false
	}
	session.Step = to
	session.LastInteractionAt = b.now()
	return true
}
