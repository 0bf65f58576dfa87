// Package store provides PostgreSQL persistence for employees, risk
// profiles, risk history, and service keys.
package store

import "database/sql"

// Store wraps the PostgreSQL connection pool.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}
