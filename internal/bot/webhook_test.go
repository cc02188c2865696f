package bot

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookSecretMismatch(t *testing.T) {
	b, _, _, _, _ := newTestBot(t)
	handler := NewWebhookHandler(b, "expected-secret", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{}`))
	req.Header.Set(secretTokenHeader, "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcceptsUpdate(t *testing.T) {
	b, _, sessions, _, _ := newTestBot(t)
	handler := NewWebhookHandler(b, "secret", zap.NewNop())

	body := `{"update_id":1,"message":{"message_id":1,"chat":{"id":100},"text":"/start","entities":[{"type":"bot_command","offset":0,"length":6}]}}`
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set(secretTokenHeader, "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	session, err := sessions.Get(req.Context(), 100)
	require.NoError(t, err)
	require.Equal(t, StepIdle, session.Step)
}

func TestWebhookRejectsBadPayload(t *testing.T) {
	b, _, _, _, _ := newTestBot(t)
	handler := NewWebhookHandler(b, "", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`not-json`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	b, _, _, _, _ := newTestBot(t)
	handler := NewWebhookHandler(b, "", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/telegram/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
