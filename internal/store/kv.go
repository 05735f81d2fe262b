package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Entity namespaces. Every record kind gets its own prefix; the phone and
// userowners namespaces are secondary indexes (phone -> user ID,
// user ID -> JSON list of owner IDs).
const (
	nsOwner      = "owner"
	nsRequest    = "request"
	nsUser       = "user"
	nsSession    = "session"
	nsPhone      = "phone"
	nsUserOwners = "userowners"
)

// KV is the keyed store backing all entity kinds. Values are opaque
// serialized blobs; expiry is an absolute wall-clock instant fixed at
// write time. Expired rows are deleted lazily when read and swept
// periodically by DeleteExpired.
type KV struct {
	db *sql.DB
}

func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Put writes value under (namespace, key), replacing any existing row.
// A ttl <= 0 stores the value without expiry.
func (s *KV) Put(namespace, key string, value []byte, ttl time.Duration) error {
	var expiresAt *int64
	if ttl > 0 {
		ms := time.Now().Add(ttl).UnixMilli()
		expiresAt = &ms
	}
	return s.putRow(namespace, key, value, expiresAt)
}

// PutUntil writes value with an explicit absolute expiry. Entity stores
// use this to keep a record's expiry anchored at its creation time across
// updates.
func (s *KV) PutUntil(namespace, key string, value []byte, expiresAt time.Time) error {
	ms := expiresAt.UnixMilli()
	return s.putRow(namespace, key, value, &ms)
}

func (s *KV) putRow(namespace, key string, value []byte, expiresAt *int64) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (namespace, key, value, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		namespace, key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("kv put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get returns the value under (namespace, key), or nil if the key is
// absent or past its expiry. An expired row is deleted on the way out.
func (s *KV) Get(namespace, key string) ([]byte, error) {
	row := s.db.QueryRow(
		`SELECT value, expires_at FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	var value []byte
	var expiresAt sql.NullInt64
	err := row.Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s/%s: %w", namespace, key, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= time.Now().UnixMilli() {
		if err := s.Delete(namespace, key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return value, nil
}

// Exists reports whether a live value is present under (namespace, key).
func (s *KV) Exists(namespace, key string) (bool, error) {
	value, err := s.Get(namespace, key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

// Delete removes the row under (namespace, key). Deleting an absent key
// is not an error.
func (s *KV) Delete(namespace, key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("kv delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// DeleteExpired removes all rows past their expiry and returns the count.
// Reads already treat expired rows as absent; this sweep just reclaims
// space from keys nobody asks for again.
func (s *KV) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("kv delete expired: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
