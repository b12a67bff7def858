package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// MySQLCredentialStore implements CredentialStore using MySQL. Used on
// shared-device deployments where several engine instances share one
// credential database.
type MySQLCredentialStore struct {
	db *sql.DB
}

// NewMySQLCredentialStore creates a MySQL credential store from an open
// connection. Import the mysql driver in the caller.
func NewMySQLCredentialStore(db *sql.DB) (*MySQLCredentialStore, error) {
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	query := `
	CREATE TABLE IF NOT EXISTS credentials (
		` + "`key`" + ` VARCHAR(64) PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLCredentialStore] Initialized")
	return &MySQLCredentialStore{db: db}, nil
}

// Get returns the stored value for key, or "" when absent.
func (s *MySQLCredentialStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM credentials WHERE `key` = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return value, nil
}

// Set stores value under key, replacing any prior value.
func (s *MySQLCredentialStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO credentials (` + "`key`" + `, value, updated_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Delete removes the value stored under key.
func (s *MySQLCredentialStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE `key` = ?", key); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *MySQLCredentialStore) Close() error {
	return s.db.Close()
}
