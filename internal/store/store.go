package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"insightdocs-gateway/internal/model"
)

// KV is the durable key-value surface the session store runs on. Implemented
// by the Redis adapter in production and the in-memory adapter in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

const historyKeyPrefix = "chat:history:"

// SessionStore persists one message sequence per scope key. Scopes never
// share a key, so switching scope cannot leak or merge histories.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load returns the saved session for the scope, or an empty session when
// nothing is stored. A payload that no longer parses is treated as empty
// rather than surfaced: a corrupt entry must never take the session down.
func (s *SessionStore) Load(ctx context.Context, scopeKey string) (model.Session, error) {
	session := model.Session{ScopeKey: scopeKey}

	raw, ok, err := s.kv.Get(ctx, historyKey(scopeKey))
	if err != nil {
		return session, fmt.Errorf("load session %q failed: %w", scopeKey, err)
	}
	if !ok {
		return session, nil
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		log.Printf("discarding malformed history for scope %q: %v", scopeKey, err)
		return session, nil
	}
	session.Messages = messages
	return session, nil
}

// Save overwrites the stored history for the scope with the given sequence.
func (s *SessionStore) Save(ctx context.Context, scopeKey string, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal session %q failed: %w", scopeKey, err)
	}
	if err := s.kv.Set(ctx, historyKey(scopeKey), string(payload)); err != nil {
		return fmt.Errorf("save session %q failed: %w", scopeKey, err)
	}
	return nil
}

// Clear removes the stored history for the scope entirely.
func (s *SessionStore) Clear(ctx context.Context, scopeKey string) error {
	if err := s.kv.Del(ctx, historyKey(scopeKey)); err != nil {
		return fmt.Errorf("clear session %q failed: %w", scopeKey, err)
	}
	return nil
}

func historyKey(scopeKey string) string {
	return historyKeyPrefix + scopeKey
}
