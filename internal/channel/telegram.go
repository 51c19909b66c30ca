// ABOUTME: Telegram adapter: webhook updates in, Bot API sends out
// ABOUTME: Malformed and non-text updates are acknowledged with 200 and dropped

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Valey88/Profit-AI/internal/inbox"
	"github.com/Valey88/Profit-AI/internal/store"
)

// Telegram bridges a Telegram bot to the inbox.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	sink   Sink
	logger *slog.Logger
}

// NewTelegram validates the token against the Bot API (getMe) and returns the
// adapter.
func NewTelegram(token string, sink Sink, logger *slog.Logger) (*Telegram, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("validating telegram token: %w", err)
	}
	logger = logger.With("component", "telegram")
	logger.Info("telegram bot connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, sink: sink, logger: logger}, nil
}

// WebhookHandler accepts Telegram update payloads. Everything that is not a
// private text message is acknowledged and dropped: Telegram retries
// non-200 responses, and there is nothing to retry here.
func (t *Telegram) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		t.logger.Warn("undecodable telegram update", "error", err)
		ackTelegram(w)
		return
	}

	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		ackTelegram(w)
		return
	}

	senderName := "User"
	if msg.From != nil && msg.From.FirstName != "" {
		senderName = msg.From.FirstName
	}

	_, err := t.sink.HandleInbound(r.Context(), inbox.InboundEvent{
		Channel:    store.ChannelTelegram,
		ExternalID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:       msg.Text,
		SenderName: senderName,
	})
	if err != nil {
		t.logger.Error("handling telegram update", "error", err, "chat_id", msg.Chat.ID)
		http.Error(w, `{"ok":false}`, http.StatusInternalServerError)
		return
	}
	ackTelegram(w)
}

// HealthHandler reports integration liveness.
func (t *Telegram) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "telegram-integration",
	})
}

// Deliver sends text to a Telegram chat. Satisfies inbox.Deliverer.
func (t *Telegram) Deliver(_ context.Context, externalID, text string) error {
	chatID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing telegram chat id %q: %w", externalID, err)
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

// SetWebhook registers the webhook URL with Telegram.
func (t *Telegram) SetWebhook(baseURL string) error {
	wh, err := tgbotapi.NewWebhook(baseURL + "/integrations/telegram/webhook")
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("registering telegram webhook: %w", err)
	}
	return nil
}

func ackTelegram(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

var _ inbox.Deliverer = (*Telegram)(nil)
