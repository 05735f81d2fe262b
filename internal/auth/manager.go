// Package auth implements account registration and bearer-token sessions.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"movecar/internal/model"
	"movecar/internal/store"
)

// SessionTTL is how long a login token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidCredentials is returned on any login failure. Callers get the
// same error whether the phone is unknown or the password is wrong.
var ErrInvalidCredentials = errors.New("invalid phone or password")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// IsValidPhone reports whether s looks like a phone number: 7 to 15
// digits with an optional leading plus.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// IsValidPassword reports whether s is within the accepted length range.
func IsValidPassword(s string) bool {
	return len(s) >= 6 && len(s) <= 32
}

// Manager handles registration, login, and session validation.
type Manager struct {
	users    *store.UserStore
	sessions *store.SessionStore
}

func NewManager(users *store.UserStore, sessions *store.SessionStore) *Manager {
	return &Manager{users: users, sessions: sessions}
}

// Register creates an account for the phone number and opens a session.
// Returns store.ErrPhoneTaken when the number is already registered.
func (m *Manager) Register(phone, password string) (*model.User, *model.UserSession, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Phone: phone, PasswordHash: string(hash)}
	if err := m.users.Create(user); err != nil {
		return nil, nil, err
	}

	session, err := m.sessions.Create(user.ID, SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Login verifies the credentials and opens a session.
func (m *Manager) Login(phone, password string) (*model.User, *model.UserSession, error) {
	user, err := m.users.GetByPhone(phone)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := m.sessions.Create(user.ID, SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Validate resolves a bearer token to its session, or nil if the token is
// unknown or expired.
func (m *Manager) Validate(token string) (*model.UserSession, error) {
	return m.sessions.GetByToken(token)
}

// Logout discards the session for the token. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) error {
	return m.sessions.Delete(token)
}
