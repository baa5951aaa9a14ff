package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corpauth/gateway/pkg/roles"
)

// PostgresStore is a UserStore backed by a users table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on top of an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByUsername looks up a user record by username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	record := &UserRecord{}
	var rawRole string

	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, tenant_id, role
		FROM users
		WHERE lower(username) = lower($1)
	`, username).Scan(&record.Username, &record.PasswordHash, &record.TenantID, &rawRole)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// stored roles go through the same normalization as every other source
	record.Role, _ = roles.Normalize(rawRole)
	return record, nil
}
