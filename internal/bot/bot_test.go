package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"bookrent-bot/internal/storage"
	"bookrent-bot/internal/storage/stubs"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memorySessionStore is an in-memory SessionStore for tests.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[int64]Session)}
}

func (m *memorySessionStore) Get(ctx context.Context, chatID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[chatID]
	if !ok {
		return newIdleSession(), nil
	}
	return session, nil
}

func (m *memorySessionStore) Save(ctx context.Context, chatID int64, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = session
	return nil
}

func (m *memorySessionStore) Reset(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

// recorderAPI records outbound Telegram traffic instead of sending it.
type recorderAPI struct {
	sent    []tgbotapi.Chattable
	nextID  int
	fileURL string
}

func (r *recorderAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.sent = append(r.sent, c)
	r.nextID++
	return tgbotapi.Message{MessageID: r.nextID}, nil
}

func (r *recorderAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.sent = append(r.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recorderAPI) GetFileDirectURL(fileID string) (string, error) {
	if r.fileURL != "" {
		return r.fileURL, nil
	}
	return "https://files.example.test/" + fileID, nil
}

// texts returns the message texts sent so far.
func (r *recorderAPI) texts() []string {
	var out []string
	for _, c := range r.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

// fakeUploader implements Uploader without touching the network.
type fakeUploader struct {
	failUpload bool
	uploaded   int
}

func (f *fakeUploader) Download(ctx context.Context, url string) ([]byte, error) {
	return []byte("jpeg-bytes"), nil
}

func (f *fakeUploader) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if f.failUpload {
		return "", errors.New("bucket unavailable")
	}
	f.uploaded++
	return "https://cdn.example.test/book-covers/" + objectName, nil
}

func newTestBot(t *testing.T) (*Bot, *stubs.MockDB, *memorySessionStore, *recorderAPI, *fakeUploader) {
	t.Helper()

	db := stubs.NewMockDB()
	sessions := newMemorySessionStore()
	api := &recorderAPI{}
	uploader := &fakeUploader{}

	b := &Bot{
		api:         api,
		db:          db,
		sessions:    sessions,
		uploader:    uploader,
		logger:      zap.NewNop(),
		adminChatID: 999,
	}
	b.registerHandlers()

	return b, db, sessions, api, uploader
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	cmd := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
}

func photoMessage(chatID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 640, Height: 640},
		},
	}
}

func callback(chatID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

func TestFreshSessionStartsIdle(t *testing.T) {
	_, _, sessions, _, _ := newTestBot(t)

	session, err := sessions.Get(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, StepIdle, session.Step)
	require.Equal(t, Draft{}, session.Draft)
}

func TestAddBookWizard(t *testing.T) {
	b, db, sessions, api, _ := newTestBot(t)
	ctx := context.Background()
	chatID := int64(100)

	// /start shows the main menu
	b.HandleUpdate(ctx, tgbotapi.Update{Message: commandMessage(chatID, "/start")})
	require.Contains(t, api.texts()[0], "Welcome")

	// Photo moves the wizard to the title step
	b.HandleUpdate(ctx, tgbotapi.Update{Message: photoMessage(chatID)})
	session, err := sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepAwaitingTitle, session.Step)
	require.NotEmpty(t, session.Draft.ImageURL)

	// Title moves to the price step
	b.HandleUpdate(ctx, tgbotapi.Update{Message: textMessage(chatID, "Sapiens")})
	session, err = sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepAwaitingPrice, session.Step)
	require.Equal(t, "Sapiens", session.Draft.Title)

	// Valid price creates the book and resets the session
	b.HandleUpdate(ctx, tgbotapi.Update{Message: textMessage(chatID, "250")})
	session, err = sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepIdle, session.Step)
	require.Equal(t, Draft{}, session.Draft)

	books, err := db.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "Sapiens", books[0].Title)
	require.Equal(t, 250.0, books[0].Price)
	require.Equal(t, storage.StatusAvailable, books[0].Status)
}

func TestPhotoUploadFailureKeepsStep(t *testing.T) {
	b, _, sessions, api, uploader := newTestBot(t)
	ctx := context.Background()
	chatID := int64(100)
	uploader.failUpload = true

	b.HandleUpdate(ctx, tgbotapi.Update{Message: photoMessage(chatID)})

	session, err := sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepIdle, session.Step)
	require.Empty(t, session.Draft.ImageURL)

	var reported bool
	for _, c := range api.sent {
		if edit, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			require.Contains(t, edit.Text, "Upload Failed")
			reported = true
		}
	}
	require.True(t, reported, "expected an upload failure report")
}

func TestPhotoRestartsWizardFromAnyStep(t *testing.T) {
	b, _, sessions, _, _ := newTestBot(t)
	ctx := context.Background()
	chatID := int64(100)

	require.NoError(t, sessions.Save(ctx, chatID, Session{
		Step:  StepAwaitingPrice,
		Draft: Draft{ImageURL: "old-url", Title: "Old Title"},
	}))

	b.HandleUpdate(ctx, tgbotapi.Update{Message: photoMessage(chatID)})

	session, err := sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepAwaitingTitle, session.Step)
	require.NotEqual(t, "old-url", session.Draft.ImageURL)
	require.Empty(t, session.Draft.Title)
}

func TestInvalidPriceKeepsStepAndCreatesNothing(t *testing.T) {
	b, db, sessions, api, _ := newTestBot(t)
	ctx := context.Background()
	chatID := int64(100)

	require.NoError(t, sessions.Save(ctx, chatID, Session{
		Step:  StepAwaitingPrice,
		Draft: Draft{ImageURL: "url", Title: "Sapiens"},
	}))

	for _, input := range []string{"abc", "-5", "NaN", "+Inf"} {
		b.HandleUpdate(ctx, tgbotapi.Update{Message: textMessage(chatID, input)})

		session, err := sessions.Get(ctx, chatID)
		require.NoError(t, err)
		require.Equal(t, StepAwaitingPrice, session.Step, "input %q", input)
	}

	books, err := db.ListBooks(ctx)
	require.NoError(t, err)
	require.Empty(t, books)
	require.Contains(t, api.texts()[0], "Invalid number")
}

func TestStartResetsWithoutCatalogSideEffects(t *testing.T) {
	b, db, sessions, _, _ := newTestBot(t)
	ctx := context.Background()
	chatID := int64(100)

	require.NoError(t, sessions.Save(ctx, chatID, Session{
		Step:  StepAwaitingTitle,
		Draft: Draft{ImageURL: "url"},
	}))

	b.HandleUpdate(ctx, tgbotapi.Update{Message: commandMessage(chatID, "/start")})

	session, err := sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepIdle, session.Step)
	require.Equal(t, Draft{}, session.Draft)

	books, err := db.ListBooks(ctx)
	require.NoError(t, err)
	require.Empty(t, books)
}

func TestStrayTextWhileIdleIsIgnored(t *testing.T) {
	b, _, sessions, api, _ := newTestBot(t)
	ctx := context.Background()
	chatID := int64(100)

	b.HandleUpdate(ctx, tgbotapi.Update{Message: textMessage(chatID, "hello there")})

	require.Empty(t, api.sent, "stray text must not produce a reply")
	session, err := sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, StepIdle, session.Step)
}

func TestListBooksCallback(t *testing.T) {
	b, db, _, api, _ := newTestBot(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := db.CreateBook(ctx, fmt.Sprintf("Book %d", i), "url", 10)
		require.NoError(t, err)
	}

	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "list_books")})

	// One message per book, capped at the 5 most recent.
	require.Len(t, api.texts(), 5)
}

func TestListBooksCallbackEmpty(t *testing.T) {
	b, _, _, api, _ := newTestBot(t)

	b.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: callback(100, "list_books")})

	texts := api.texts()
	require.Len(t, texts, 1)
	require.Equal(t, "No books found.", texts[0])
}

func TestDeleteCallbackToleratesMissingBook(t *testing.T) {
	b, db, _, api, _ := newTestBot(t)
	ctx := context.Background()

	book, err := db.CreateBook(ctx, "Dune", "url", 50)
	require.NoError(t, err)

	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "delete_"+book.ID.String())})
	// Deleting the same book twice must not surface an error.
	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "delete_"+book.ID.String())})

	books, err := db.ListBooks(ctx)
	require.NoError(t, err)
	require.Empty(t, books)

	for _, text := range api.texts() {
		require.NotContains(t, text, "❌")
	}
}

func TestToggleClearsRenterFieldsTogether(t *testing.T) {
	b, db, _, _, _ := newTestBot(t)
	ctx := context.Background()

	book, err := db.CreateBook(ctx, "Dune", "url", 50)
	require.NoError(t, err)

	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "toggle_"+book.ID.String())})
	got, err := db.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, storage.StatusTaken, got.Status)
	require.NotNil(t, got.RenterName)
	require.NotNil(t, got.RenterPhone)

	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "toggle_"+book.ID.String())})
	got, err = db.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, storage.StatusAvailable, got.Status)
	require.Nil(t, got.RenterName)
	require.Nil(t, got.RenterPhone)
}

func TestReturnFlow(t *testing.T) {
	b, db, _, api, _ := newTestBot(t)
	ctx := context.Background()

	book, err := db.CreateBook(ctx, "Dune", "url", 50)
	require.NoError(t, err)
	_, err = db.ReserveBook(ctx, book.ID, "Jane Doe", "+1000000")
	require.NoError(t, err)

	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "returns")})
	texts := api.texts()
	require.Contains(t, texts[len(texts)-1], "Select book to return")

	b.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: callback(100, "return_"+book.ID.String())})

	got, err := db.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, storage.StatusAvailable, got.Status)
	require.Nil(t, got.RenterName)
	require.Nil(t, got.RenterPhone)
}

func TestReturnsListEmpty(t *testing.T) {
	b, _, _, api, _ := newTestBot(t)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(100, "/returns")})

	texts := api.texts()
	require.Len(t, texts, 1)
	require.Equal(t, "No rented books.", texts[0])
}
