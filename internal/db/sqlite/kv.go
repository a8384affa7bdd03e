package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// Get returns the value stored at key. Expired keys read as db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		val       []byte
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, "SELECT value, expires_at FROM kv WHERE key = ?", key).
		Scan(&val, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if expiresAt.Valid && expiresAt.Int64 <= time.Now().UnixMilli() {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ? AND expires_at = ?", key, expiresAt.Int64)
		return nil, db.ErrKeyNotFound
	}
	return val, nil
}

// Set stores value at key without expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, key, value, nil)
}

// SetWithTTL stores value at key; it reads as missing once ttl elapses.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.set(ctx, key, value, nil)
	}
	exp := time.Now().Add(ttl).UnixMilli()
	return s.set(ctx, key, value, &exp)
}

func (s *Store) set(ctx context.Context, key string, value []byte, expiresAt *int64) error {
	var exp any
	if expiresAt != nil {
		exp = *expiresAt
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, exp); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
