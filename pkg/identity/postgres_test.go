package identity

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpauth/gateway/pkg/roles"
)

func TestPostgresStoreFindByUsername(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"username", "password_hash", "tenant_id", "role"}).
		AddRow("org_manager", "$2a$10$hash", "corp1", "org_manager")
	mock.ExpectQuery(`SELECT username, password_hash, tenant_id, role`).
		WithArgs("org_manager").
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	record, err := store.FindByUsername(context.Background(), "org_manager")
	require.NoError(t, err)
	assert.Equal(t, "org_manager", record.Username)
	assert.Equal(t, "corp1", record.TenantID)
	assert.Equal(t, roles.RoleManager, record.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT username, password_hash, tenant_id, role`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	store := NewPostgresStore(db)
	_, err = store.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresStoreNormalizesLegacyRoles(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"username", "password_hash", "tenant_id", "role"}).
		AddRow("legacy", "$2a$10$hash", "corp2", "SMA")
	mock.ExpectQuery(`SELECT username, password_hash, tenant_id, role`).
		WithArgs("legacy").
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	record, err := store.FindByUsername(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, roles.RoleSuperAdmin, record.Role)
}
