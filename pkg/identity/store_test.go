package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpauth/gateway/pkg/roles"
)

func TestMemoryStoreFindByUsername(t *testing.T) {
	store := NewMemoryStore([]UserRecord{
		{Username: "org_user", PasswordHash: "hash", TenantID: "corp1", Role: roles.RoleMember},
		{Username: "org_super", PasswordHash: "hash", TenantID: "corp1", Role: roles.RoleSuperAdmin},
	})

	record, err := store.FindByUsername(context.Background(), "org_user")
	require.NoError(t, err)
	assert.Equal(t, "org_user", record.Username)
	assert.Equal(t, "corp1", record.TenantID)
	assert.Equal(t, roles.RoleMember, record.Role)

	// lookups are case-insensitive
	record, err = store.FindByUsername(context.Background(), "ORG_SUPER")
	require.NoError(t, err)
	assert.Equal(t, roles.RoleSuperAdmin, record.Role)

	_, err = store.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore([]UserRecord{
		{Username: "org_user", PasswordHash: "hash", TenantID: "corp1", Role: roles.RoleMember},
	})

	first, err := store.FindByUsername(context.Background(), "org_user")
	require.NoError(t, err)
	first.TenantID = "mutated"

	second, err := store.FindByUsername(context.Background(), "org_user")
	require.NoError(t, err)
	assert.Equal(t, "corp1", second.TenantID)
}

func TestDemoRecords(t *testing.T) {
	store := NewMemoryStore(DemoRecords())

	tests := []struct {
		username string
		role     roles.RoleID
	}{
		{"org_super", roles.RoleSuperAdmin},
		{"org_managerplus", roles.RoleManagerPlus},
		{"org_manager", roles.RoleManager},
		{"org_support", roles.RoleSupport},
		{"org_user", roles.RoleMember},
		// legacy usernames kept for the old frontend
		{"admin", roles.RoleSuperAdmin},
		{"manager", roles.RoleManagerPlus},
		{"user", roles.RoleManager},
		{"support", roles.RoleSupport},
	}

	for _, tt := range tests {
		record, err := store.FindByUsername(context.Background(), tt.username)
		require.NoError(t, err, "user %s", tt.username)
		assert.Equal(t, tt.role, record.Role, "user %s", tt.username)
		assert.Equal(t, "corp1", record.TenantID)
		assert.NotEmpty(t, record.PasswordHash)
	}
}

func TestUserRecordPrincipal(t *testing.T) {
	record := UserRecord{Username: "org_manager", TenantID: "corp1", Role: roles.RoleManager}
	principal := record.Principal()

	assert.Equal(t, "org_manager", principal.SubjectID)
	assert.Equal(t, "corp1", principal.TenantID)
	assert.Equal(t, roles.RoleManager, principal.Role)
	assert.Equal(t, SourceLocal, principal.Source)
	assert.Equal(t, roles.TierManager, principal.Tier())
}

func TestDisplayNameFrom(t *testing.T) {
	assert.Equal(t, "Jane Doe", DisplayNameFrom("jane@corp1.test", "Jane", "Doe"))
	assert.Equal(t, "Jane", DisplayNameFrom("jane@corp1.test", "Jane", ""))
	assert.Equal(t, "jane@corp1.test", DisplayNameFrom("jane@corp1.test", "", "Doe"))
	assert.Equal(t, "jane@corp1.test", DisplayNameFrom("jane@corp1.test", " ", " "))
}
