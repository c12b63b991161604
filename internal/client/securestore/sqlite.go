package securestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/communityapp/internal/common"
	"github.com/dmitrijs2005/communityapp/internal/cryptox"
)

const (
	saltKey  = "kdf_salt"
	saltSize = 16
)

// ErrEmptySecret is returned when a SQLiteStore is opened without a secret.
var ErrEmptySecret = errors.New("secure store secret is empty")

type SQLiteStore struct {
	db  *sql.DB
	key []byte
}

// NewSQLiteStore binds a store to an already migrated database. The first
// call on a fresh database generates and saves the KDF salt; later calls
// reuse it, so the same secret always opens the same items.
func NewSQLiteStore(ctx context.Context, db *sql.DB, secret []byte) (*SQLiteStore, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	var salt []byte
	err := withTx(ctx, db, func(ctx context.Context, tx dbtx) error {
		err := tx.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, saltKey).Scan(&salt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		salt = common.GenerateRandByteArray(saltSize)
		_, err = tx.ExecContext(ctx, `INSERT INTO store_meta (key, value) VALUES (?, ?)`, saltKey, salt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load kdf salt: %w", err)
	}

	return &SQLiteStore{db: db, key: cryptox.DeriveKey(secret, salt)}, nil
}

func (s *SQLiteStore) GetSecureItem(ctx context.Context, key string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secure_items WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secure item[%s]: %w", key, err)
	}

	value, err := cryptox.Open(s.key, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open secure item[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSecureItem(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(s.key, value)
	if err != nil {
		return fmt.Errorf("failed to seal secure item[%s]: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO secure_items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, sealed)
	if err != nil {
		return fmt.Errorf("failed to set secure item[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSecureItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM secure_items WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete secure item[%s]: %w", key, err)
	}
	return nil
}
