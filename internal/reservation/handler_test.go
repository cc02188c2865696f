package reservation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookrent-bot/internal/storage"
	"bookrent-bot/internal/storage/stubs"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleReserve(t *testing.T) {
	db := stubs.NewMockDB()
	svc := NewService(db, nil, zap.NewNop())
	handler := NewHandler(svc, db, zap.NewNop())

	book, err := db.CreateBook(context.Background(), "Sapiens", "url", 250)
	require.NoError(t, err)

	body := `{"book_id":"` + book.ID.String() + `","first_name":"Jane","last_name":"Doe","phone":"+1000000"}`
	req := httptest.NewRequest(http.MethodPost, "/reserve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.True(t, result.Success)
}

func TestHandleReserveNotFoundMessage(t *testing.T) {
	db := stubs.NewMockDB()
	svc := NewService(db, nil, zap.NewNop())
	handler := NewHandler(svc, db, zap.NewNop())

	body := `{"book_id":"00000000-0000-0000-0000-000000000000","first_name":"Jane","last_name":"Doe","phone":"+1"}`
	req := httptest.NewRequest(http.MethodPost, "/reserve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.False(t, result.Success)
	require.Equal(t, "Book not found", result.Message)
}

func TestHandleListBooks(t *testing.T) {
	db := stubs.NewMockDB()
	svc := NewService(db, nil, zap.NewNop())
	handler := NewHandler(svc, db, zap.NewNop())

	_, err := db.CreateBook(context.Background(), "Sapiens", "url", 250)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var books []storage.Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&books))
	require.Len(t, books, 1)
	require.Equal(t, "Sapiens", books[0].Title)
}
