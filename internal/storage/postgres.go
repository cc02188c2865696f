package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookrent-bot/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}, nil
}

// DB exposes the underlying connection for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) CreateBook(ctx context.Context, title, imageURL string, price float64) (Book, error) {
	const query = `
        INSERT INTO books (id, title, image_url, price, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, title, image_url, price, status, renter_name, renter_phone, created_at
    `

	var book Book
	err := s.db.GetContext(ctx, &book, query,
		uuid.New(),
		title,
		imageURL,
		price,
		StatusAvailable,
		time.Now().UTC(),
	)
	if err != nil {
		return Book{}, fmt.Errorf("failed to create book: %w", err)
	}

	return book, nil
}

func (s *PostgresStorage) GetBook(ctx context.Context, id uuid.UUID) (Book, error) {
	const query = `
        SELECT id, title, image_url, price, status, renter_name, renter_phone, created_at
        FROM books
        WHERE id = $1
    `

	var book Book
	err := s.db.GetContext(ctx, &book, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("failed to get book: %w", err)
	}

	return book, nil
}

func (s *PostgresStorage) ListBooks(ctx context.Context) ([]Book, error) {
	const query = `
        SELECT id, title, image_url, price, status, renter_name, renter_phone, created_at
        FROM books
        ORDER BY created_at DESC
    `

	var books []Book
	if err := s.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return books, nil
}

func (s *PostgresStorage) ListRecentBooks(ctx context.Context, limit int) ([]Book, error) {
	const query = `
        SELECT id, title, image_url, price, status, renter_name, renter_phone, created_at
        FROM books
        ORDER BY created_at DESC
        LIMIT $1
    `

	var books []Book
	if err := s.db.SelectContext(ctx, &books, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent books: %w", err)
	}

	return books, nil
}

func (s *PostgresStorage) ListBooksByStatus(ctx context.Context, status string) ([]Book, error) {
	const query = `
        SELECT id, title, image_url, price, status, renter_name, renter_phone, created_at
        FROM books
        WHERE status = $1
        ORDER BY created_at DESC
    `

	var books []Book
	if err := s.db.SelectContext(ctx, &books, query, status); err != nil {
		return nil, fmt.Errorf("failed to list books by status: %w", err)
	}

	return books, nil
}

// DeleteBook removes a book. A missing id is not an error.
func (s *PostgresStorage) DeleteBook(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM books WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return nil
}

// ToggleBookStatus flips AVAILABLE <-> TAKEN. Moving to TAKEN records
// a placeholder renter (manual admin override); moving back clears
// the renter fields.
func (s *PostgresStorage) ToggleBookStatus(ctx context.Context, id uuid.UUID) (Book, error) {
	const query = `
        UPDATE books
        SET status = CASE WHEN status = $2 THEN $3 ELSE $2 END,
            renter_name = CASE WHEN status = $2 THEN $4 ELSE NULL END,
            renter_phone = CASE WHEN status = $2 THEN $5 ELSE NULL END
        WHERE id = $1
        RETURNING id, title, image_url, price, status, renter_name, renter_phone, created_at
    `

	var book Book
	err := s.db.GetContext(ctx, &book, query, id,
		StatusAvailable, StatusTaken, "Admin", "manual")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("failed to toggle book status: %w", err)
	}

	return book, nil
}

// ReserveBook performs the AVAILABLE -> TAKEN transition as a single
// conditional update so two concurrent reservations cannot both win.
func (s *PostgresStorage) ReserveBook(ctx context.Context, id uuid.UUID, renterName, renterPhone string) (Book, error) {
	const query = `
        UPDATE books
        SET status = $2, renter_name = $3, renter_phone = $4
        WHERE id = $1 AND status = $5
        RETURNING id, title, image_url, price, status, renter_name, renter_phone, created_at
    `

	var book Book
	err := s.db.GetContext(ctx, &book, query, id,
		StatusTaken, renterName, renterPhone, StatusAvailable)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Book{}, fmt.Errorf("failed to reserve book: %w", err)
	}

	// Zero rows: either the book is gone or someone got there first.
	if _, getErr := s.GetBook(ctx, id); getErr != nil {
		return Book{}, getErr
	}
	return Book{}, ErrNotAvailable
}

// ReturnBook sets a book back to AVAILABLE and clears the renter.
func (s *PostgresStorage) ReturnBook(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE books
        SET status = $2, renter_name = NULL, renter_phone = NULL
        WHERE id = $1
    `

	res, err := s.db.ExecContext(ctx, query, id, StatusAvailable)
	if err != nil {
		return fmt.Errorf("failed to return book: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
