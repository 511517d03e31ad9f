package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"metacards/internal/catalog"
	"metacards/internal/models"
	"metacards/internal/storage"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api       *tgbotapi.BotAPI
	gw        Gateway
	db        storage.Storage
	cards     *catalog.Catalog
	images    ImageSource
	scheduler Scheduler
	timing    Timing
	sessions  *sessionRegistry
	randIntN  catalog.IntN
	now       func() time.Time
	baseCtx   context.Context
	logger    *zap.Logger
}

// Timing holds the delays that pace the ritual
type Timing struct {
	FollowUpDelay time.Duration
	HintInterval  time.Duration
	CardInterval  time.Duration
	GreetingPause time.Duration
}

// DefaultTiming matches the production pacing
func DefaultTiming() Timing {
	return Timing{
		FollowUpDelay: 5 * time.Minute,
		HintInterval:  10 * time.Second,
		CardInterval:  2 * time.Second,
		GreetingPause: 2 * time.Second,
	}
}

// ImageSource resolves a card image locator to bytes
type ImageSource interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Scheduler runs keyed delayed actions; scheduling a key again replaces the pending action
type Scheduler interface {
	After(key string, delay time.Duration, fn func())
	Cancel(key string)
}

// Step is a position in the per-user conversation
type Step uint8

const (
	StepNone Step = iota
	StepWaitingForRequest
	StepRequestReceived
	StepWaitingForFeedback
	StepWaitingForHintsOrDone
	StepHintsSent
	StepDone
)

var stepNames = map[Step]string{
	StepNone:                  "none",
	StepWaitingForRequest:     "waiting_for_request",
	StepRequestReceived:       "request_received",
	StepWaitingForFeedback:    "waiting_for_feedback",
	StepWaitingForHintsOrDone: "waiting_for_hints_or_done",
	StepHintsSent:             "hints_sent",
	StepDone:                  "done",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions lists the forward moves of the ritual. /start and /reset
// replace or drop the session and are not listed here.
var transitions = map[Step][]Step{
	StepWaitingForRequest:     {StepRequestReceived},
	StepRequestReceived:       {StepWaitingForFeedback},
	StepWaitingForFeedback:    {StepWaitingForHintsOrDone},
	StepWaitingForHintsOrDone: {StepHintsSent, StepDone},
	StepHintsSent:             {StepDone},
}

func canTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is the in-memory state of one user's ritual
type Session struct {
	UserID            int64
	ChatID            int64
	Step              Step
	RequestText       string
	BlockCard         *models.Card
	ResourceCard      *models.Card
	LastInteractionAt time.Time
	// Generation changes whenever scheduled work for the session must be invalidated
	Generation uint64
	// PromptMessageID is the feedback prompt carrying need_hints / received_insights
	PromptMessageID int
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	queues   map[int64][]func()
	nextGen  uint64
	workers  sync.WaitGroup
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[int64]*Session),
		queues:   make(map[int64][]func()),
	}
}
