package store

import (
	"encoding/json"
	"fmt"
	"time"

	"movecar/internal/model"
)

// requestTTL is the fixed retention window for a move request. The window
// is anchored at creation: updates rewrite the record with the same
// absolute expiry, so a request vanishes 24 hours after it was made no
// matter how active it was.
const requestTTL = 24 * time.Hour

// RequestStore persists MoveRequest records.
type RequestStore struct {
	kv *KV
}

func NewRequestStore(kv *KV) *RequestStore {
	return &RequestStore{kv: kv}
}

// Create allocates an ID for r, stamps CreatedAt, and writes the record
// with the retention TTL.
func (s *RequestStore) Create(r *model.MoveRequest) error {
	id, err := NewRequestID()
	if err != nil {
		return err
	}
	r.ID = id
	r.CreatedAt = time.Now().UnixMilli()
	return s.write(r)
}

// Get returns the request with the given ID, or nil if absent or expired.
func (s *RequestStore) Get(id string) (*model.MoveRequest, error) {
	data, err := s.kv.Get(nsRequest, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var r model.MoveRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode request %s: %w", id, err)
	}
	return &r, nil
}

// Update rewrites the record, keeping the expiry anchored at creation.
// Writes are last-writer-wins.
func (s *RequestStore) Update(r *model.MoveRequest) error {
	return s.write(r)
}

func (s *RequestStore) write(r *model.MoveRequest) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode request %s: %w", r.ID, err)
	}
	expiresAt := time.UnixMilli(r.CreatedAt).Add(requestTTL)
	return s.kv.PutUntil(nsRequest, r.ID, data, expiresAt)
}
