package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/corpauth/gateway/pkg/roles"
)

// ErrUserNotFound is returned by UserStore implementations when no record
// exists for the requested username.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the read-only boundary to the local credential store
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
}

// MemoryStore is an in-memory UserStore. Records are fixed at construction
// time, so lookups are safe without locking.
type MemoryStore struct {
	users map[string]UserRecord
}

// NewMemoryStore creates a store holding the given records, keyed by
// lowercased username.
func NewMemoryStore(records []UserRecord) *MemoryStore {
	users := make(map[string]UserRecord, len(records))
	for _, r := range records {
		users[strings.ToLower(r.Username)] = r
	}
	return &MemoryStore{users: users}
}

// FindByUsername looks up a user record by username (case-insensitive).
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	record, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &record, nil
}

// DemoRecords returns the seed users for demo deployments: one account per
// role plus the legacy usernames the old frontend still sends. Every account
// shares the bcrypt hash of "password" and belongs to tenant corp1.
func DemoRecords() []UserRecord {
	const demoHash = "$2a$10$i83EBAsRLLxlbamcE5UHn.ZmQ5TOgsbG5RpKyKFwMnWewQCFcu/Ja"
	const demoTenant = "corp1"

	records := make([]UserRecord, 0, len(roles.All())+4)
	for _, role := range roles.All() {
		records = append(records, UserRecord{
			Username:     string(role),
			PasswordHash: demoHash,
			TenantID:     demoTenant,
			Role:         role,
		})
	}

	legacy := map[string]roles.RoleID{
		"admin":   roles.RoleSuperAdmin,
		"manager": roles.RoleManagerPlus,
		"user":    roles.RoleManager,
		"support": roles.RoleSupport,
	}
	for username, role := range legacy {
		records = append(records, UserRecord{
			Username:     username,
			PasswordHash: demoHash,
			TenantID:     demoTenant,
			Role:         role,
		})
	}
	return records
}
