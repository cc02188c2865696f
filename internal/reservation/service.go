package reservation

import (
	"context"
	"errors"
	"fmt"

	"bookrent-bot/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request carries one reservation attempt from the storefront.
type Request struct {
	BookID    string `json:"book_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Result is what the storefront shows the end user. It never encodes
// the notification outcome.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Notifier delivers the best-effort admin notification.
type Notifier interface {
	NotifyReservation(ctx context.Context, book storage.Book, renterName, renterPhone string)
}

type Service struct {
	db       storage.Database
	notifier Notifier
	logger   *zap.Logger
}

func NewService(db storage.Database, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		logger:   logger,
	}
}

// Reserve moves a book AVAILABLE -> TAKEN for the given renter. The
// transition is a single conditional update in the repository, so of
// two concurrent attempts exactly one wins.
func (s *Service) Reserve(ctx context.Context, req Request) Result {
	if req.BookID == "" || req.FirstName == "" || req.LastName == "" || req.Phone == "" {
		return Result{Success: false, Message: "All fields are required"}
	}

	id, err := uuid.Parse(req.BookID)
	if err != nil {
		return Result{Success: false, Message: "Book not found"}
	}

	renterName := fmt.Sprintf("%s %s", req.FirstName, req.LastName)

	book, err := s.db.ReserveBook(ctx, id, renterName, req.Phone)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Result{Success: false, Message: "Book not found"}
	case errors.Is(err, storage.ErrNotAvailable):
		return Result{Success: false, Message: "Book is already taken"}
	case err != nil:
		s.logger.Error("Failed to reserve book",
			zap.String("book_id", req.BookID),
			zap.Error(err))
		return Result{Success: false, Message: "Failed to reserve book. Please try again."}
	}

	if s.notifier != nil {
		s.notifier.NotifyReservation(ctx, book, renterName, req.Phone)
	}

	return Result{Success: true, Message: "Book reserved successfully! Admin will contact you."}
}
