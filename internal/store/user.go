package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"movecar/internal/model"
)

// ErrPhoneTaken is returned when registering a phone number that already
// has an account.
var ErrPhoneTaken = errors.New("phone number already registered")

// UserStore persists User records plus the phone -> user ID index that
// enforces phone uniqueness. Users have no TTL.
type UserStore struct {
	kv *KV
}

func NewUserStore(kv *KV) *UserStore {
	return &UserStore{kv: kv}
}

// Create allocates an ID, stamps CreatedAt, and writes the user and its
// phone index entry. Returns ErrPhoneTaken if the phone is indexed.
func (s *UserStore) Create(u *model.User) error {
	taken, err := s.kv.Exists(nsPhone, u.Phone)
	if err != nil {
		return err
	}
	if taken {
		return ErrPhoneTaken
	}

	id, err := NewUserID()
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt = time.Now().UnixMilli()

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", u.ID, err)
	}
	if err := s.kv.Put(nsUser, u.ID, data, 0); err != nil {
		return err
	}
	return s.kv.Put(nsPhone, u.Phone, []byte(u.ID), 0)
}

// Get returns the user with the given ID, or nil if absent.
func (s *UserStore) Get(id string) (*model.User, error) {
	data, err := s.kv.Get(nsUser, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &u, nil
}

// GetByPhone resolves a phone number through the index, or nil if no
// account exists for it.
func (s *UserStore) GetByPhone(phone string) (*model.User, error) {
	id, err := s.kv.Get(nsPhone, phone)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}
	return s.Get(string(id))
}
