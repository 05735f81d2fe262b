package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	idAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	ownerIDLength   = 6
	requestIDLength = 12
	userIDLength    = 12
	adminTokenLen   = 32

	// maxIDAttempts caps the uniqueness-retry loop for owner share codes.
	maxIDAttempts = 20
)

// ErrIDSpaceExhausted is returned when a unique share code could not be
// generated within maxIDAttempts tries.
var ErrIDSpaceExhausted = errors.New("could not generate a unique id")

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random index: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// uniqueID draws random IDs from the share-code alphabet until exists
// reports a free one, giving up with ErrIDSpaceExhausted after
// maxIDAttempts tries.
func uniqueID(length int, exists func(string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := randomString(idAlphabet, length)
		if err != nil {
			return "", err
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// NewRequestID returns a random 12-character request token. The keyspace
// is large enough that no uniqueness check is needed.
func NewRequestID() (string, error) {
	return randomString(idAlphabet, requestIDLength)
}

// NewUserID returns a random 12-character user ID.
func NewUserID() (string, error) {
	return randomString(idAlphabet, userIDLength)
}

// NewAdminToken returns the 32-character capability secret handed to an
// owner exactly once at creation.
func NewAdminToken() (string, error) {
	return randomString(tokenAlphabet, adminTokenLen)
}

// NewSessionToken returns a 32-byte crypto-random token, hex-encoded.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
