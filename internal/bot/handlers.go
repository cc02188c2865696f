package bot

import (
	"context"
	"fmt"
	"math"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "start":
		b.handleStart(ctx, chatID)
	case "returns":
		b.sendReturnsList(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID)
	case "help":
		b.sendMessage(tgbotapi.NewMessage(chatID, helpText))
	default:
		// Stray slash commands are ignored, same as stray text.
		b.logger.Debug("Unknown command",
			zap.Int64("chat_id", chatID),
			zap.String("command", command))
	}
}

// handleStart resets the chat's session and shows the main menu.
func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	if err := b.sessions.Reset(ctx, chatID); err != nil {
		b.logger.Error("Failed to reset session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to start. Please try again.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "📚 *Welcome to the Book Rental Admin*\nWhat would you like to do?")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = mainMenuKeyboard()
	b.sendMessage(msg)
}

// handleTitleInput stores the title and advances the wizard to the
// price step. The photo step has already populated Draft.ImageURL.
func (b *Bot) handleTitleInput(ctx context.Context, chatID int64, text string) {
	session, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to save the title. Please try again.")
		return
	}

	session.Draft.Title = text
	session.Step = StepAwaitingPrice
	if err := b.sessions.Save(ctx, chatID, session); err != nil {
		b.logger.Error("Failed to save session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to save the title. Please try again.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"📖 Title: *%s*\n\n💰 *Step 3: Enter Price*\nPlease reply with the price (numbers only).", text))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.sendMessage(msg)
}

// handlePriceInput completes the wizard: parses the price, creates the
// book and resets the session. Invalid input re-prompts and leaves the
// session untouched.
func (b *Bot) handlePriceInput(ctx context.Context, chatID int64, text string) {
	price, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		b.sendError(chatID, "Invalid number. Please enter a valid price (e.g. 150).")
		return
	}

	session, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to save the book. Please try again.")
		return
	}

	book, err := b.db.CreateBook(ctx, session.Draft.Title, session.Draft.ImageURL, price)
	if err != nil {
		b.logger.Error("Failed to create book",
			zap.Int64("chat_id", chatID),
			zap.String("title", session.Draft.Title),
			zap.Error(err))
		b.sendError(chatID, "Failed to save the book. Please try again.")
		return
	}

	if err := b.sessions.Reset(ctx, chatID); err != nil {
		b.logger.Error("Failed to reset session after saving book",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ *Book Saved!*\n📖 %s\n💰 %.2f", book.Title, book.Price))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = addAnotherKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	if b.exporter == nil {
		b.sendError(chatID, "Export is not available.")
		return
	}

	path, err := b.exporter.ExportBooksToExcel(ctx)
	if err != nil {
		b.logger.Error("Failed to export catalog",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Failed to export the catalog.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = "📊 Catalog export"
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("Failed to send export file",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

const helpText = `Use the menu to Add, Manage, or Return books.

/start - main menu
/returns - list rented books
/export - download the catalog as a spreadsheet
/help - this message`
