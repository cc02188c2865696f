package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookrent-bot/pkg/redis"
)

// Wizard steps for the add-book flow. The machine is cyclic:
// completing the flow returns the session to StepIdle.
const (
	StepIdle          = "IDLE"
	StepAwaitingTitle = "AWAITING_TITLE"
	StepAwaitingPrice = "AWAITING_PRICE"
)

// Draft accumulates the fields gathered so far in the current wizard
// run. A step handler only reads fields the preceding step wrote:
// ImageURL is set by the photo step, Title by the title step.
type Draft struct {
	ImageURL string `json:"image_url,omitempty"`
	Title    string `json:"title,omitempty"`
}

type Session struct {
	Step  string `json:"step"`
	Draft Draft  `json:"draft"`
}

func newIdleSession() Session {
	return Session{Step: StepIdle}
}

// SessionStore persists one conversation state per chat id.
type SessionStore interface {
	// Get returns the chat's session, or a fresh idle one if none is
	// stored yet.
	Get(ctx context.Context, chatID int64) (Session, error)
	Save(ctx context.Context, chatID int64, session Session) error
	// Reset puts the chat back to (IDLE, empty draft).
	Reset(ctx context.Context, chatID int64) error
}

type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		redis: client,
		ttl:   ttl,
	}
}

func (s *RedisSessionStore) Get(ctx context.Context, chatID int64) (Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(chatID))
	if errors.Is(err, redis.ErrNotFound) {
		return newIdleSession(), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, chatID int64, session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKey(chatID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Reset(ctx context.Context, chatID int64) error {
	if err := s.redis.Del(ctx, sessionKey(chatID)); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("session:%d", chatID)
}
