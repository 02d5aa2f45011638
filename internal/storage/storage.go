// Package storage is the on-device key-value store backing tokens, the cart,
// and saved addresses. It replaces the old XOR-obfuscated storage with a
// SQLite file restricted to the owning user; read and write failures degrade
// to empty state and are logged, never fatal to the caller's flow.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Well-known keys shared by the apps.
const (
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyUserProfile    = "user_profile"
	KeyFCMToken       = "fcm_token"
	KeyCartItems      = "cart_items"
	KeySavedAddresses = "saved_addresses"
)

type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open initializes the store at the given path, creating the directory and
// schema as needed.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	// Tokens live here; keep the file private to the owner.
	if err := os.Chmod(path, 0o600); err != nil {
		logger.WithError(err).Warn("Failed to restrict storage file permissions")
	}

	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize storage schema: %w", err)
	}
	return nil
}

// Get returns the value for key. Missing keys and read failures both come
// back as ("", false); failures are logged.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Storage read failed")
		return "", false
	}
	return value, true
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Storage write failed")
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Storage delete failed")
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear wipes every key, used on logout.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		s.logger.WithError(err).Warn("Storage clear failed")
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	return nil
}

// GetJSON decodes the stored value into out, reporting false for missing
// keys or undecodable values.
func (s *Store) GetJSON(key string, out interface{}) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Storage value is not valid JSON")
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Set(key, string(data))
}

func (s *Store) Close() error {
	return s.db.Close()
}
