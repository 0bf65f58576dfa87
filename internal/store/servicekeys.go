package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ServiceKey represents a row in the service_keys table. Collectors and
// schedulers authenticate to the ingest/recompute endpoints with these.
type ServiceKey struct {
	ID        string
	Name      string
	KeyHash   string
	KeyPrefix string
	CreatedAt time.Time
}

// GenerateServiceKey creates a new rsk_ key with its bcrypt hash and
// prefix. Returns (fullKey, hash, prefix, error). The full key is shown
// to the operator once.
func GenerateServiceKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateServiceKey: %w", err)
	}
	fullKey := "rsk_" + hex.EncodeToString(raw)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateServiceKey: %w", err)
	}

	prefix := fullKey[:8]
	return fullKey, string(hashBytes), prefix, nil
}

// CreateServiceKey inserts a new service key and returns the row plus the
// plaintext key (shown once).
func (s *Store) CreateServiceKey(ctx context.Context, name string) (*ServiceKey, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateServiceKey()
	if err != nil {
		return nil, "", fmt.Errorf("CreateServiceKey: %w", err)
	}

	var k ServiceKey
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO service_keys (name, key_hash, key_prefix)
		VALUES ($1, $2, $3)
		RETURNING id, name, key_hash, key_prefix, created_at`,
		name, keyHash, keyPrefix,
	).Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("CreateServiceKey: %w", err)
	}
	return &k, fullKey, nil
}

// LookupKeyByPrefix finds a service key by its first 8 characters.
// Used by auth to narrow candidates before the bcrypt verify.
func (s *Store) LookupKeyByPrefix(ctx context.Context, prefix string) (*ServiceKey, error) {
	var k ServiceKey
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, key_hash, key_prefix, created_at
		FROM service_keys WHERE key_prefix = $1`, prefix,
	).Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupKeyByPrefix: %w", err)
	}
	return &k, nil
}
