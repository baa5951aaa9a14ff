package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpauth/gateway/pkg/observability"
)

const testMappingYAML = `
connections:
  conn_01ABC:
    tenant: corp1
    idpName: Okta
    idpLogo: https://cdn.test/okta.png
  conn_02DEF:
    tenant: corp2
    idpName: AzureAD
`

func writeMappingFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func quietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestNewConnectionMap(t *testing.T) {
	path := writeMappingFile(t, testMappingYAML)

	m, err := NewConnectionMap(path, quietLogger())
	require.NoError(t, err)

	info, ok := m.Lookup("conn_01ABC")
	require.True(t, ok)
	assert.Equal(t, "corp1", info.Tenant)
	assert.Equal(t, "Okta", info.IdPName)
	assert.Equal(t, "https://cdn.test/okta.png", info.IdPLogo)

	_, ok = m.Lookup("conn_unknown")
	assert.False(t, ok)

	tenants := m.Tenants()
	assert.Equal(t, map[string]string{"conn_01ABC": "corp1", "conn_02DEF": "corp2"}, tenants)
}

func TestNewConnectionMapEmptyPath(t *testing.T) {
	m, err := NewConnectionMap("", quietLogger())
	require.NoError(t, err)

	_, ok := m.Lookup("anything")
	assert.False(t, ok)
	assert.Empty(t, m.Tenants())
	assert.NoError(t, m.Watch())
	assert.NoError(t, m.Close())
}

func TestNewConnectionMapErrors(t *testing.T) {
	_, err := NewConnectionMap("/does/not/exist.yaml", quietLogger())
	assert.Error(t, err)

	path := writeMappingFile(t, "{not yaml::")
	_, err = NewConnectionMap(path, quietLogger())
	assert.Error(t, err)
}

func TestConnectionMapWatchReloads(t *testing.T) {
	path := writeMappingFile(t, testMappingYAML)

	m, err := NewConnectionMap(path, quietLogger())
	require.NoError(t, err)
	require.NoError(t, m.Watch())
	t.Cleanup(func() { _ = m.Close() })

	updated := `
connections:
  conn_03GHI:
    tenant: corp3
    idpName: PingFederate
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		_, ok := m.Lookup("conn_03GHI")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	// broken edits keep the last good mapping
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	time.Sleep(100 * time.Millisecond)
	_, ok := m.Lookup("conn_03GHI")
	assert.True(t, ok)
}
