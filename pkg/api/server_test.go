package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpauth/gateway/pkg/authn"
	"github.com/corpauth/gateway/pkg/config"
	"github.com/corpauth/gateway/pkg/federation"
	"github.com/corpauth/gateway/pkg/identity"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/session"
	"github.com/corpauth/gateway/pkg/token"
)

const (
	testLoginURL     = "http://frontend.test/login"
	testDashboardURL = "http://frontend.test/dashboard"
)

type stubProvider struct {
	profile *federation.Profile
	err     error
}

func (s *stubProvider) Kind() federation.Kind { return federation.KindRemote }

func (s *stubProvider) ExchangeCode(_ context.Context, _ string) (*federation.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

type testServer struct {
	handler  http.Handler
	codec    *token.Codec
	sessions session.Store
}

type serverOptions struct {
	provider      federation.Provider
	allowFallback bool
	mappingYAML   string
}

func quietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	logger := quietLogger()
	codec := token.NewCodec([]byte("api-test-secret"))
	users := identity.NewMemoryStore(identity.DemoRecords())
	sessions := session.NewMemoryStore(time.Hour)

	mappingPath := ""
	if opts.mappingYAML != "" {
		mappingPath = filepath.Join(t.TempDir(), "connections.yaml")
		require.NoError(t, os.WriteFile(mappingPath, []byte(opts.mappingYAML), 0o600))
	}
	connections, err := config.NewConnectionMap(mappingPath, logger)
	require.NoError(t, err)

	coordinator := authn.NewCoordinator(
		users,
		identity.NewBcryptVerifier(),
		codec,
		sessions,
		opts.provider,
		authn.CoordinatorConfig{
			TokenTTL:               time.Hour,
			ConnectionTenants:      connections.Tenants(),
			AllowSyntheticFallback: opts.allowFallback,
			Fallback: authn.FallbackIdentity{
				SubjectID:   "demo@default_corp.test",
				Role:        "org_user",
				DisplayName: "Demo User",
			},
		},
		logger,
		nil,
	)
	resolver := authn.NewResolver(codec, users, sessions, logger, nil)

	server := NewServer(coordinator, resolver, codec, connections, Config{
		LoginURL:     testLoginURL,
		DashboardURL: testDashboardURL,
		SessionTTL:   time.Hour,
	}, logger, nil)

	return &testServer{
		handler:  server.Handler(),
		codec:    codec,
		sessions: sessions,
	}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
