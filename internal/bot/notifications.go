package bot

import (
	"context"
	"fmt"

	"bookrent-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// NotifyReservation tells the admin about a new reservation. Failures
// are logged and never surfaced to the caller: the reservation itself
// has already succeeded.
func (b *Bot) NotifyReservation(ctx context.Context, book storage.Book, renterName, renterPhone string) {
	if b.adminChatID == 0 {
		b.logger.Warn("Reservation notifications disabled - no admin chat ID configured")
		return
	}

	text := fmt.Sprintf(
		"🔔 <b>New Reservation</b>\n\n"+
			"📖 <b>Book:</b> %s\n"+
			"💰 <b>Price:</b> %.2f\n"+
			"👤 <b>User:</b> %s\n"+
			"📞 <b>Phone:</b> %s",
		book.Title,
		book.Price,
		renterName,
		renterPhone,
	)

	msg := tgbotapi.NewMessage(b.adminChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reservation notification",
			zap.String("book_id", book.ID.String()),
			zap.Error(err))
	}
}
