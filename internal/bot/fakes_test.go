package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"metacards/internal/catalog"
	"metacards/internal/imagefetch"
	"metacards/internal/models"
	"metacards/internal/storage/stubs"
)

type outbound struct {
	kind      string // "text" or "photo"
	chatID    int64
	messageID int
	text      string
	filename  string
	keyboard  *tgbotapi.InlineKeyboardMarkup
}

// fakeGateway records everything the bot sends
type fakeGateway struct {
	mu            sync.Mutex
	nextID        int
	sent          []outbound
	cleared       []int
	deleted       []int
	answered      []string
	failPhotos    bool
	panicOnAnswer bool
}

func (g *fakeGateway) SendText(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.sent = append(g.sent, outbound{kind: "text", chatID: chatID, messageID: g.nextID, text: text, keyboard: keyboard})
	return g.nextID, nil
}

func (g *fakeGateway) SendPhoto(chatID int64, filename string, data []byte, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPhotos {
		return 0, errors.New("telegram unavailable")
	}
	g.nextID++
	g.sent = append(g.sent, outbound{kind: "photo", chatID: chatID, messageID: g.nextID, text: caption, filename: filename, keyboard: keyboard})
	return g.nextID, nil
}

func (g *fakeGateway) ClearKeyboard(chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared = append(g.cleared, messageID)
	return nil
}

func (g *fakeGateway) DeleteMessage(chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *fakeGateway) AnswerCallback(callbackID string) error {
	if g.panicOnAnswer {
		panic("answer exploded")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answered = append(g.answered, callbackID)
	return nil
}

func (g *fakeGateway) messages() []outbound {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]outbound(nil), g.sent...)
}

func (g *fakeGateway) last() outbound {
	msgs := g.messages()
	if len(msgs) == 0 {
		return outbound{}
	}
	return msgs[len(msgs)-1]
}

func (g *fakeGateway) texts() []string {
	var texts []string
	for _, m := range g.messages() {
		if m.kind == "text" {
			texts = append(texts, m.text)
		}
	}
	return texts
}

func (g *fakeGateway) photos() []outbound {
	var photos []outbound
	for _, m := range g.messages() {
		if m.kind == "photo" {
			photos = append(photos, m)
		}
	}
	return photos
}

type scheduledCall struct {
	delay time.Duration
	fn    func()
}

// manualScheduler holds actions until the test fires them
type manualScheduler struct {
	mu      sync.Mutex
	pending map[string]scheduledCall
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{pending: make(map[string]scheduledCall)}
}

func (s *manualScheduler) After(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = scheduledCall{delay: delay, fn: fn}
}

func (s *manualScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}

func (s *manualScheduler) lookup(key string) (scheduledCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.pending[key]
	return call, ok
}

// take removes and returns the pending action for key
func (s *manualScheduler) take(t *testing.T, key string) func() {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.pending[key]
	require.True(t, ok, "expected pending action %q", key)
	delete(s.pending, key)
	return call.fn
}

// fakeImages serves image bytes from a map
type fakeImages map[string][]byte

func (f fakeImages) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if data, ok := f[locator]; ok {
		return data, nil
	}
	return nil, imagefetch.ErrUnavailable
}

var (
	mirrorCard = models.Card{ID: 39, Name: "Mirror", Description: "Look closer", Type: models.CardTypeBlock, ImageURL: "39_block.png"}
	guideCard  = models.Card{ID: 1, Name: "Guide", Description: "Someone who guides", Type: models.CardTypeResource, ImageURL: "1_resource.png"}

	testHints = []models.HintQuestion{
		{Type: models.CardTypeBlock, Question: "What do you see?"},
		{Type: models.CardTypeResource, Question: "Who could help?"},
	}
)

type testEnv struct {
	bot       *Bot
	gw        *fakeGateway
	db        *stubs.MockDB
	scheduler *manualScheduler
}

func newTestEnv(t *testing.T, cards []models.Card, hints []models.HintQuestion) *testEnv {
	t.Helper()

	deck, err := catalog.New(cards, hints)
	require.NoError(t, err)

	env := &testEnv{
		gw:        &fakeGateway{},
		db:        stubs.NewMockDB(),
		scheduler: newManualScheduler(),
	}
	images := fakeImages{
		mirrorCard.ImageURL: []byte("mirror-png"),
		guideCard.ImageURL:  []byte("guide-png"),
	}
	env.bot = newBot(env.gw, env.db, Options{
		Catalog:   deck,
		Images:    images,
		Scheduler: env.scheduler,
		Timing:    Timing{FollowUpDelay: 5 * time.Minute},
	}, zap.NewNop())
	// Always pick the first candidate
	env.bot.randIntN = func(int) int { return 0 }
	return env
}

func (e *testEnv) session(userID int64) *Session {
	return e.bot.sessions.get(userID)
}

func commandMessage(userID int64, name, command string) *tgbotapi.Message {
	text := "/" + command
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: name},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func callback(userID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
}
