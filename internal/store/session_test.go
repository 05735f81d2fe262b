package store

import (
	"testing"
	"time"
)

func TestSessionCreateAndValidate(t *testing.T) {
	kv := setupKV(t)
	sessions := NewSessionStore(kv)

	sess, err := sessions.Create("user-1", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.ExpiresAt <= time.Now().UnixMilli() {
		t.Error("expiry not in the future")
	}

	got, err := sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.UserID != "user-1" {
		t.Errorf("got %+v", got)
	}
}

func TestSessionExpiredIsAbsent(t *testing.T) {
	kv := setupKV(t)
	sessions := NewSessionStore(kv)

	sess, err := sessions.Create("user-1", -time.Second)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired session to read as absent, got %+v", got)
	}
}

func TestSessionDelete(t *testing.T) {
	kv := setupKV(t)
	sessions := NewSessionStore(kv)

	sess, _ := sessions.Create("user-1", time.Hour)
	if err := sessions.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := sessions.GetByToken(sess.Token)
	if got != nil {
		t.Error("session still valid after delete")
	}
}

func TestSessionUnknownToken(t *testing.T) {
	kv := setupKV(t)
	sessions := NewSessionStore(kv)

	got, err := sessions.GetByToken("deadbeef")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
