package bot

import (
	"context"
	"errors"
	"fmt"

	"bookrent-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (b *Bot) handleAddBookCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID

	msg := tgbotapi.NewMessage(chatID, "📸 *Step 1: Send Photo*\nPlease send a photo of the book cover.")
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.sendMessage(msg)
	b.answerCallback(callback.ID)
}

func (b *Bot) handleListBooksCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID

	books, err := b.db.ListRecentBooks(ctx, 5)
	if err != nil {
		b.logger.Error("Failed to list books",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to load books.")
		b.answerCallback(callback.ID)
		return
	}

	if len(books) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "No books found."))
		b.answerCallback(callback.ID)
		return
	}

	for _, book := range books {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"📖 *%s*\n💰 %.2f\nStatus: %s", book.Title, book.Price, book.Status))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = manageBookKeyboard(book.ID)
		b.sendMessage(msg)
	}
	b.answerCallback(callback.ID)
}

// handleDeleteCallback removes a book. A stale button for an already
// deleted book is tolerated.
func (b *Bot) handleDeleteCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, rawID string) {
	chatID := callback.Message.Chat.ID

	id, err := uuid.Parse(rawID)
	if err != nil {
		b.answerCallback(callback.ID)
		return
	}

	if err := b.db.DeleteBook(ctx, id); err != nil {
		b.logger.Error("Failed to delete book",
			zap.String("book_id", rawID),
			zap.Error(err))
		b.sendError(chatID, "Failed to delete the book.")
		b.answerCallback(callback.ID)
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, "🗑️ Book deleted."))
	b.deleteMessage(chatID, callback.Message.MessageID)
	b.answerCallback(callback.ID)
}

func (b *Bot) handleToggleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, rawID string) {
	chatID := callback.Message.Chat.ID

	id, err := uuid.Parse(rawID)
	if err != nil {
		b.answerCallback(callback.ID)
		return
	}

	book, err := b.db.ToggleBookStatus(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Error("Failed to toggle book status",
				zap.String("book_id", rawID),
				zap.Error(err))
			b.sendError(chatID, "Failed to update the status.")
		}
		b.answerCallback(callback.ID)
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, "Status updated to: "+book.Status))
	b.answerCallback(callback.ID)
}

func (b *Bot) handleReturnsCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	b.sendReturnsList(ctx, callback.Message.Chat.ID)
	b.answerCallback(callback.ID)
}

func (b *Bot) sendReturnsList(ctx context.Context, chatID int64) {
	books, err := b.db.ListBooksByStatus(ctx, storage.StatusTaken)
	if err != nil {
		b.logger.Error("Failed to list rented books",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to load rented books.")
		return
	}

	if len(books) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "No rented books."))
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Select book to return:")
	msg.ReplyMarkup = returnsKeyboard(books)
	b.sendMessage(msg)
}

func (b *Bot) handleReturnCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, rawID string) {
	chatID := callback.Message.Chat.ID

	id, err := uuid.Parse(rawID)
	if err != nil {
		b.answerCallback(callback.ID)
		return
	}

	if err := b.db.ReturnBook(ctx, id); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Error("Failed to return book",
				zap.String("book_id", rawID),
				zap.Error(err))
			b.sendError(chatID, "Failed to return the book.")
		}
		b.answerCallback(callback.ID)
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, "✅ Book returned!"))
	b.deleteMessage(chatID, callback.Message.MessageID)
	b.answerCallback(callback.ID)
}

func (b *Bot) handleHelpCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	b.sendMessage(tgbotapi.NewMessage(callback.Message.Chat.ID, helpText))
	b.answerCallback(callback.ID)
}
