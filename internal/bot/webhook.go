package bot

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler accepts Telegram update payloads over HTTP and feeds
// them into the dispatcher.
type WebhookHandler struct {
	bot    *Bot
	secret string
	logger *zap.Logger
}

func NewWebhookHandler(bot *Bot, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		bot:    bot,
		secret: secret,
		logger: logger,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.secret != "" && r.Header.Get(secretTokenHeader) != h.secret {
		h.logger.Warn("Webhook secret mismatch",
			zap.String("remote_addr", r.RemoteAddr))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("Failed to decode update payload", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// A handler panic must not take the server down; the provider
	// retries on 500.
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while handling update", zap.Any("panic", rec))
			w.WriteHeader(http.StatusInternalServerError)
		}
	}()

	h.bot.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}
