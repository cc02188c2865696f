package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handlePhoto runs the first wizard step: pick the best photo variant,
// pull its bytes from Telegram, push them to the object store and
// advance the session to the title step. On any failure the session is
// left untouched so the admin can simply resend the photo.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	photo := largestPhoto(msg.Photo)
	if photo == nil {
		return
	}

	processing, err := b.api.Send(tgbotapi.NewMessage(chatID, "⏳ Processing image..."))
	if err != nil {
		b.logger.Error("Failed to send processing message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	imageURL, err := b.uploadPhoto(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("Failed to upload cover image",
			zap.Int64("chat_id", chatID),
			zap.String("file_id", photo.FileID),
			zap.Error(err))
		b.reportUploadFailure(chatID, processing.MessageID, err)
		return
	}

	session := Session{
		Step:  StepAwaitingTitle,
		Draft: Draft{ImageURL: imageURL},
	}
	if err := b.sessions.Save(ctx, chatID, session); err != nil {
		b.logger.Error("Failed to save session after upload",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.reportUploadFailure(chatID, processing.MessageID, err)
		return
	}

	if processing.MessageID != 0 {
		b.deleteMessage(chatID, processing.MessageID)
	}

	reply := tgbotapi.NewMessage(chatID,
		"✅ Photo received!\n\n🔤 *Step 2: Enter Title*\nPlease reply with the book title.")
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.sendMessage(reply)
}

func (b *Bot) uploadPhoto(ctx context.Context, fileID string) (string, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file link: %w", err)
	}

	data, err := b.uploader.Download(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download photo: %w", err)
	}

	objectName := fmt.Sprintf("%d-%s.jpg", time.Now().UnixMilli(), fileID)
	imageURL, err := b.uploader.Upload(ctx, objectName, data, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	return imageURL, nil
}

func (b *Bot) reportUploadFailure(chatID int64, processingID int, err error) {
	text := fmt.Sprintf("❌ Upload Failed: %v", err)
	if processingID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, processingID, text)
		if _, err := b.api.Send(edit); err == nil {
			return
		}
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// largestPhoto picks the highest-resolution variant of an inbound
// photo. Telegram orders variants smallest first, but resolution is
// compared explicitly rather than trusting the order.
func largestPhoto(photos []tgbotapi.PhotoSize) *tgbotapi.PhotoSize {
	var best *tgbotapi.PhotoSize
	for i := range photos {
		p := &photos[i]
		if best == nil || p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}
