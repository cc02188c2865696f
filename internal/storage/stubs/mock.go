package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookrent-bot/internal/storage"

	"github.com/google/uuid"
)

// MockDB is an in-memory implementation of the Database interface for
// testing.
type MockDB struct {
	mu    sync.Mutex
	books map[uuid.UUID]storage.Book
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		books: make(map[uuid.UUID]storage.Book),
	}
}

func (m *MockDB) CreateBook(ctx context.Context, title, imageURL string, price float64) (storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book := storage.Book{
		ID:        uuid.New(),
		Title:     title,
		ImageURL:  imageURL,
		Price:     price,
		Status:    storage.StatusAvailable,
		CreatedAt: time.Now(),
	}
	m.books[book.ID] = book
	return book, nil
}

func (m *MockDB) GetBook(ctx context.Context, id uuid.UUID) (storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return storage.Book{}, storage.ErrNotFound
	}
	return book, nil
}

func (m *MockDB) ListBooks(ctx context.Context) ([]storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sortedLocked(), nil
}

func (m *MockDB) ListRecentBooks(ctx context.Context, limit int) ([]storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := m.sortedLocked()
	if len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (m *MockDB) ListBooksByStatus(ctx context.Context, status string) ([]storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var books []storage.Book
	for _, book := range m.sortedLocked() {
		if book.Status == status {
			books = append(books, book)
		}
	}
	return books, nil
}

func (m *MockDB) DeleteBook(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.books, id)
	return nil
}

func (m *MockDB) ToggleBookStatus(ctx context.Context, id uuid.UUID) (storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return storage.Book{}, storage.ErrNotFound
	}

	if book.Status == storage.StatusAvailable {
		book.Status = storage.StatusTaken
		name, phone := "Admin", "manual"
		book.RenterName = &name
		book.RenterPhone = &phone
	} else {
		book.Status = storage.StatusAvailable
		book.RenterName = nil
		book.RenterPhone = nil
	}

	m.books[id] = book
	return book, nil
}

func (m *MockDB) ReserveBook(ctx context.Context, id uuid.UUID, renterName, renterPhone string) (storage.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return storage.Book{}, storage.ErrNotFound
	}
	if book.Status != storage.StatusAvailable {
		return storage.Book{}, storage.ErrNotAvailable
	}

	book.Status = storage.StatusTaken
	book.RenterName = &renterName
	book.RenterPhone = &renterPhone
	m.books[id] = book
	return book, nil
}

func (m *MockDB) ReturnBook(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return storage.ErrNotFound
	}

	book.Status = storage.StatusAvailable
	book.RenterName = nil
	book.RenterPhone = nil
	m.books[id] = book
	return nil
}

// sortedLocked returns books newest first. Caller holds the lock.
func (m *MockDB) sortedLocked() []storage.Book {
	books := make([]storage.Book, 0, len(m.books))
	for _, book := range m.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].ID.String() < books[j].ID.String()
		}
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
	return books
}

var _ storage.Database = (*MockDB)(nil)
