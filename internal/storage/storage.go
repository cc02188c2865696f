package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	StatusAvailable = "AVAILABLE"
	StatusTaken     = "TAKEN"
)

var (
	// ErrNotFound is returned when the referenced book does not exist.
	ErrNotFound = errors.New("book not found")
	// ErrNotAvailable is returned when a reservation races with
	// another one or the book is already taken.
	ErrNotAvailable = errors.New("book is not available")
)

// Book is a catalog record. RenterName and RenterPhone are populated
// together while Status is TAKEN and cleared together otherwise.
type Book struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	ImageURL    string     `db:"image_url" json:"image_url"`
	Price       float64    `db:"price" json:"price"`
	Status      string     `db:"status" json:"status"`
	RenterName  *string    `db:"renter_name" json:"renter_name,omitempty"`
	RenterPhone *string    `db:"renter_phone" json:"renter_phone,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Database is the catalog repository consumed by the bot and the
// reservation service.
type Database interface {
	CreateBook(ctx context.Context, title, imageURL string, price float64) (Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	ListRecentBooks(ctx context.Context, limit int) ([]Book, error)
	ListBooksByStatus(ctx context.Context, status string) ([]Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ToggleBookStatus(ctx context.Context, id uuid.UUID) (Book, error)
	ReserveBook(ctx context.Context, id uuid.UUID, renterName, renterPhone string) (Book, error)
	ReturnBook(ctx context.Context, id uuid.UUID) error
}
