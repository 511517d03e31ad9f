package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath is where Telegram delivers updates in webhook mode
const WebhookPath = "/telegram-webhook"

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// Handlers outlive ctx so in-flight rituals finish during shutdown
			b.HandleUpdate(b.baseCtx, update)
		}
	}
}

// StartWebhook registers webhookURL+WebhookPath with Telegram, dropping updates
// queued while the bot was offline
func (b *Bot) StartWebhook(webhookURL, secret string) error {
	url := strings.TrimRight(webhookURL, "/") + WebhookPath
	b.logger.Info("Setting up webhook", zap.String("webhook_url", url))

	// secret_token postdates the library's WebhookConfig, so build the call by hand
	params := tgbotapi.Params{"url": url}
	params.AddNonZero("max_connections", 40)
	params.AddBool("drop_pending_updates", true)
	params.AddNonEmpty("secret_token", secret)

	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", url))
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	// Get webhook info to verify
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}

	b.logger.Info("Bot configured for webhook mode")
	return nil
}

// WebhookHandler accepts Telegram updates posted to the webhook. When secret is
// set, requests without the matching secret header are rejected.
func (b *Bot) WebhookHandler(secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			got := r.Header.Get(secretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				b.logger.Warn("Rejected webhook request with bad secret", zap.String("remote_addr", r.RemoteAddr))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.logger.Error("Failed to decode update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update asynchronously on the sender's worker
		b.HandleUpdate(b.baseCtx, update)
		w.WriteHeader(http.StatusOK)
	})
}
