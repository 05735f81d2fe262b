package store

import (
	"encoding/json"
	"fmt"
	"time"

	"movecar/internal/model"
)

// SessionStore persists bearer-token sessions keyed by token. The KV TTL
// and the record's ExpiresAt carry the same instant, so the row stops
// resolving exactly when the session expires.
type SessionStore struct {
	kv *KV
}

func NewSessionStore(kv *KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Create issues a new session for userID with the given validity window.
func (s *SessionStore) Create(userID string, ttl time.Duration) (*model.UserSession, error) {
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}
	sess := &model.UserSession{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).UnixMilli(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Put(nsSession, token, data, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetByToken returns the session for token, or nil if absent or expired.
// Expiry is checked lazily on read; a stale record is deleted on the way
// out.
func (s *SessionStore) GetByToken(token string) (*model.UserSession, error) {
	data, err := s.kv.Get(nsSession, token)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var sess model.UserSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.ExpiresAt <= time.Now().UnixMilli() {
		if err := s.kv.Delete(nsSession, token); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &sess, nil
}

// Delete invalidates a session. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(token string) error {
	return s.kv.Delete(nsSession, token)
}
