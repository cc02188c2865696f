package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bookrent-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// telegramAPI is the slice of the Telegram client the bot uses.
// *tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Uploader moves cover images into the object store.
type Uploader interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

type Bot struct {
	api         telegramAPI
	db          storage.Database
	sessions    SessionStore
	uploader    Uploader
	exporter    CatalogExporter
	logger      *zap.Logger
	adminChatID int64

	// Updates for one process are dispatched sequentially so a chat's
	// session transitions stay ordered.
	mu sync.Mutex

	textHandlers map[string]func(context.Context, int64, string)
}

// CatalogExporter produces the admin's spreadsheet report. Optional;
// /export replies with an error message when absent.
type CatalogExporter interface {
	ExportBooksToExcel(ctx context.Context) (string, error)
}

func New(
	token string,
	db storage.Database,
	sessions SessionStore,
	uploader Uploader,
	exporter CatalogExporter,
	logger *zap.Logger,
	adminChatID int64,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	b := &Bot{
		api:         botAPI,
		db:          db,
		sessions:    sessions,
		uploader:    uploader,
		exporter:    exporter,
		logger:      logger,
		adminChatID: adminChatID,
	}

	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.textHandlers = map[string]func(context.Context, int64, string){
		StepAwaitingTitle: b.handleTitleInput,
		StepAwaitingPrice: b.handlePriceInput,
	}
}

// Start runs the long-polling loop until the context is cancelled.
// In webhook mode updates arrive through HandleUpdate instead.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	api, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return fmt.Errorf("polling requires a real bot API client")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			return nil

		case update := <-updates:
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate routes one inbound update. Callbacks and commands are
// checked first; only plain photo/text input consults the session
// step. Unmatched input is ignored without a reply.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.processMessage(ctx, update.Message)
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, msg.Command())
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	session, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to process your message. Please try again.")
		return
	}

	// Text without a wizard in progress carries no session context.
	if handler, exists := b.textHandlers[session.Step]; exists {
		handler(ctx, chatID, text)
	}
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	switch {
	case data == "add_book":
		b.handleAddBookCallback(ctx, callback)
	case data == "list_books":
		b.handleListBooksCallback(ctx, callback)
	case data == "returns":
		b.handleReturnsCallback(ctx, callback)
	case data == "help":
		b.handleHelpCallback(ctx, callback)
	case strings.HasPrefix(data, "delete_"):
		b.handleDeleteCallback(ctx, callback, strings.TrimPrefix(data, "delete_"))
	case strings.HasPrefix(data, "toggle_"):
		b.handleToggleCallback(ctx, callback, strings.TrimPrefix(data, "toggle_"))
	case strings.HasPrefix(data, "return_"):
		b.handleReturnCallback(ctx, callback, strings.TrimPrefix(data, "return_"))
	default:
		b.answerCallback(callback.ID)
	}
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, "❌ "+text))
}

func (b *Bot) answerCallback(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Warn("Failed to delete message",
			zap.Int("message_id", messageID),
			zap.Error(err))
	}
}
