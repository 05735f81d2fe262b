package store

import (
	"errors"
	"strings"
	"testing"
)

func TestUniqueIDReturnsFreeCode(t *testing.T) {
	calls := 0
	id, err := uniqueID(ownerIDLength, func(string) (bool, error) {
		calls++
		return calls < 3, nil // first two candidates are taken
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if calls != 3 {
		t.Errorf("exists calls = %d, want 3", calls)
	}
	if len(id) != ownerIDLength {
		t.Errorf("length = %d, want %d", len(id), ownerIDLength)
	}
	for _, c := range id {
		if !strings.ContainsRune(idAlphabet, c) {
			t.Errorf("character %q outside alphabet", c)
		}
	}
}

func TestUniqueIDExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := uniqueID(ownerIDLength, func(string) (bool, error) {
		calls++
		return true, nil // every candidate is taken
	})
	if !errors.Is(err, ErrIDSpaceExhausted) {
		t.Fatalf("err = %v, want ErrIDSpaceExhausted", err)
	}
	if calls != maxIDAttempts {
		t.Errorf("exists calls = %d, want %d", calls, maxIDAttempts)
	}
}

func TestUniqueIDPropagatesLookupError(t *testing.T) {
	boom := errors.New("store offline")
	_, err := uniqueID(ownerIDLength, func(string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want lookup error", err)
	}
}

func TestNewRequestIDShape(t *testing.T) {
	id, err := NewRequestID()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(id) != requestIDLength {
		t.Errorf("length = %d, want %d", len(id), requestIDLength)
	}
	for _, c := range id {
		if !strings.ContainsRune(idAlphabet, c) {
			t.Errorf("character %q outside alphabet", c)
		}
	}
}

func TestNewAdminTokenShape(t *testing.T) {
	token, err := NewAdminToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(token) != adminTokenLen {
		t.Errorf("length = %d, want %d", len(token), adminTokenLen)
	}
	for _, c := range token {
		if !strings.ContainsRune(tokenAlphabet, c) {
			t.Errorf("character %q outside alphabet", c)
		}
	}
}

func TestNewSessionTokenShape(t *testing.T) {
	token, err := NewSessionToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(token) != 64 { // 32 bytes hex-encoded
		t.Errorf("length = %d, want 64", len(token))
	}

	other, _ := NewSessionToken()
	if token == other {
		t.Error("expected distinct tokens on consecutive calls")
	}
}
