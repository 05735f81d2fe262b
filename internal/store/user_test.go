package store

import (
	"errors"
	"testing"

	"movecar/internal/model"
)

func TestUserCreateAndLookup(t *testing.T) {
	kv := setupKV(t)
	users := NewUserStore(kv)

	u := &model.User{Phone: "13800138000", PasswordHash: "hash"}
	if err := users.Create(u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(u.ID) != userIDLength {
		t.Errorf("id length = %d, want %d", len(u.ID), userIDLength)
	}
	if u.CreatedAt == 0 {
		t.Error("createdAt not stamped")
	}

	byID, err := users.Get(u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if byID == nil || byID.Phone != "13800138000" {
		t.Errorf("get by id = %+v", byID)
	}

	byPhone, err := users.GetByPhone("13800138000")
	if err != nil {
		t.Fatalf("get by phone: %v", err)
	}
	if byPhone == nil || byPhone.ID != u.ID {
		t.Errorf("get by phone = %+v", byPhone)
	}
}

func TestUserDuplicatePhone(t *testing.T) {
	kv := setupKV(t)
	users := NewUserStore(kv)

	if err := users.Create(&model.User{Phone: "13800138000", PasswordHash: "h1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := users.Create(&model.User{Phone: "13800138000", PasswordHash: "h2"})
	if !errors.Is(err, ErrPhoneTaken) {
		t.Errorf("err = %v, want ErrPhoneTaken", err)
	}
}

func TestUserGetByPhoneAbsent(t *testing.T) {
	kv := setupKV(t)
	users := NewUserStore(kv)

	u, err := users.GetByPhone("10000000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}
