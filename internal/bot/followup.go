package bot

import (
	"strconv"

	"go.uber.org/zap"
)

func followUpKey(userID int64) string {
	return "followup:" + strconv.FormatInt(userID, 10)
}

func hintKey(userID int64) string {
	return "hint:" + strconv.FormatInt(userID, 10)
}

// scheduleFollowUp asks, after the follow-up delay, whether the user needs hints.
// The callback only acts if the session still carries the generation captured here.
func (b *Bot) scheduleFollowUp(session *Session) {
	userID, gen := session.UserID, session.Generation
	b.scheduler.After(followUpKey(userID), b.timing.FollowUpDelay, func() {
		b.sessions.enqueue(userID, func() { b.sendFollowUp(userID, gen) })
	})
}

func (b *Bot) sendFollowUp(userID int64, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in follow-up", zap.Any("panic", r), zap.Int64("user_id", userID))
		}
	}()

	session := b.sessions.get(userID)
	if session == nil || session.Generation != gen || session.Step != StepWaitingForFeedback {
		b.logger.Debug("Dropping stale follow-up", zap.Int64("user_id", userID), zap.Uint64("generation", gen))
		return
	}

	id, err := b.gw.SendText(session.ChatID, textFollowUp, feedbackKeyboard())
	if err != nil {
		b.logger.Warn("Failed to send follow-up", zap.Error(err), zap.Int64("user_id", userID))
		return
	}
	session.PromptMessageID = id
	b.advance(session, StepWaitingForHintsOrDone)
}
