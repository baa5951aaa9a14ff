package authn

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/corpauth/gateway/pkg/federation"
	"github.com/corpauth/gateway/pkg/identity"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/roles"
	"github.com/corpauth/gateway/pkg/session"
	"github.com/corpauth/gateway/pkg/token"
)

type stubProvider struct {
	profile *federation.Profile
	err     error
}

func (s *stubProvider) Kind() federation.Kind { return federation.KindRemote }

func (s *stubProvider) ExchangeCode(context.Context, string) (*federation.Profile, error) {
	return s.profile, s.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func testUserStore(t *testing.T) identity.UserStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return identity.NewMemoryStore([]identity.UserRecord{
		{Username: "org_manager", PasswordHash: string(hash), TenantID: "corp1", Role: roles.RoleManager},
	})
}

func newTestCoordinator(t *testing.T, provider federation.Provider, config CoordinatorConfig) (*Coordinator, *token.Codec, session.Store) {
	t.Helper()
	codec := token.NewCodec([]byte("test-secret"))
	sessions := session.NewMemoryStore(time.Hour)
	coordinator := NewCoordinator(
		testUserStore(t),
		identity.NewBcryptVerifier(),
		codec,
		sessions,
		provider,
		config,
		testLogger(),
		nil,
	)
	return coordinator, codec, sessions
}

func TestLoginLocalSuccess(t *testing.T) {
	coordinator, codec, _ := newTestCoordinator(t, nil, CoordinatorConfig{})

	result, err := coordinator.LoginLocal(context.Background(), "org_manager", "password")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTokenMinted, result.Outcome)
	assert.Equal(t, roles.RoleManager, result.Principal.Role)
	assert.Equal(t, identity.SourceLocal, result.Principal.Source)

	claims, err := codec.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "org_manager", claims.Subject)
	assert.Equal(t, "corp1", claims.TenantID)
	assert.Equal(t, "local", claims.Source)
}

func TestLoginLocalFailuresAreIndistinguishable(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t, nil, CoordinatorConfig{})

	_, wrongPassword := coordinator.LoginLocal(context.Background(), "org_manager", "wrong")
	_, unknownUser := coordinator.LoginLocal(context.Background(), "nobody", "password")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestFederatedLoginMapsProfile(t *testing.T) {
	provider := &stubProvider{profile: &federation.Profile{
		SubjectID:      "jane@corp9.test",
		Email:          "jane@corp9.test",
		FirstName:      "Jane",
		LastName:       "Doe",
		ConnectionID:   "conn_01ABC",
		ConnectionType: "OktaSAML",
		OrganizationID: "org_01XYZ",
		RoleSlug:       "org_manager",
		RawAttributes:  map[string]string{"customer_corpid": "corp9"},
	}}
	coordinator, codec, sessions := newTestCoordinator(t, provider, CoordinatorConfig{})

	result, err := coordinator.CompleteFederatedLogin(context.Background(), "code_abc")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTokenMinted, result.Outcome)
	assert.Equal(t, "corp9", result.Principal.TenantID)
	assert.Equal(t, roles.RoleManager, result.Principal.Role)
	assert.Equal(t, "Jane Doe", result.Principal.DisplayName)
	assert.Equal(t, identity.SourceFederated, result.Principal.Source)

	claims, err := codec.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "federated", claims.Source)
	assert.Equal(t, "Jane", claims.FirstName)
	assert.Equal(t, "conn_01ABC", claims.ConnectionID)
	assert.Equal(t, "OktaSAML", claims.ConnectionType)
	assert.Equal(t, "org_01XYZ", claims.OrganizationID)
	assert.Equal(t, "corp9", claims.RawAttributes["customer_corpid"])
	assert.False(t, claims.Synthetic)

	require.NotNil(t, result.Session)
	stored, err := sessions.Get(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@corp9.test", stored.SubjectID)
	assert.False(t, stored.Fallback)
}

func TestFederatedLoginTenantPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		attributes map[string]string
		connection string
		mapping    map[string]string
		want       string
	}{
		{
			name:       "corpid attribute wins",
			attributes: map[string]string{"customer_corpid": "corp9"},
			connection: "conn_mapped",
			mapping:    map[string]string{"conn_mapped": "corp_from_mapping"},
			want:       "corp9",
		},
		{
			name:       "connection mapping second",
			connection: "conn_mapped",
			mapping:    map[string]string{"conn_mapped": "corp_from_mapping"},
			want:       "corp_from_mapping",
		},
		{
			name: "default tenant last",
			want: DefaultTenant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{profile: &federation.Profile{
				SubjectID:     "jane@test",
				ConnectionID:  tt.connection,
				RawAttributes: tt.attributes,
			}}
			coordinator, _, _ := newTestCoordinator(t, provider, CoordinatorConfig{
				ConnectionTenants: tt.mapping,
			})

			result, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Principal.TenantID)
		})
	}
}

func TestFederatedLoginRolePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		roleSlug   string
		attributes map[string]string
		want       roles.RoleID
	}{
		{"typed slug wins", "org_support", map[string]string{"customer_role": "sma"}, roles.RoleSupport},
		{"legacy alias slug", "ma", nil, roles.RoleManager},
		{"customer_role attribute when no slug", "", map[string]string{"customer_role": "org_super"}, roles.RoleSuperAdmin},
		{"unknown slug downgrades to member", "made_up", map[string]string{"customer_role": "org_super"}, roles.RoleMember},
		{"unknown customer_role defaults to member", "", map[string]string{"customer_role": "also_made_up"}, roles.RoleMember},
		{"nothing at all defaults to member", "", nil, roles.RoleMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{profile: &federation.Profile{
				SubjectID:     "jane@test",
				RoleSlug:      tt.roleSlug,
				RawAttributes: tt.attributes,
			}}
			coordinator, _, _ := newTestCoordinator(t, provider, CoordinatorConfig{})

			result, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Principal.Role)
		})
	}
}

func TestFederatedLoginFallback(t *testing.T) {
	provider := &stubProvider{err: &federation.ProviderError{Message: "connect refused"}}
	coordinator, codec, sessions := newTestCoordinator(t, provider, CoordinatorConfig{
		AllowSyntheticFallback: true,
		Fallback: FallbackIdentity{
			SubjectID:   "demo@default_corp.test",
			TenantID:    "default_corp",
			Role:        roles.RoleMember,
			DisplayName: "Demo User",
		},
	})

	result, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallbackTokenMinted, result.Outcome)
	assert.Equal(t, identity.SourceFallback, result.Principal.Source)

	claims, err := codec.Verify(result.Token)
	require.NoError(t, err)
	assert.True(t, claims.Synthetic)
	assert.Equal(t, "fallback", claims.Source)

	require.NotNil(t, result.Session)
	stored, err := sessions.Get(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Fallback)
}

func TestFederatedLoginStrictRejects(t *testing.T) {
	provider := &stubProvider{err: &federation.ProviderError{Message: "connect refused"}}
	coordinator, _, _ := newTestCoordinator(t, provider, CoordinatorConfig{})

	result, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrFederationFailed)
}

func TestFederatedLoginUnauthorizedNeverFallsBack(t *testing.T) {
	provider := &stubProvider{err: &federation.ProviderError{StatusCode: http.StatusUnauthorized, Message: "bad key"}}
	coordinator, _, _ := newTestCoordinator(t, provider, CoordinatorConfig{
		AllowSyntheticFallback: true,
		Fallback:               FallbackIdentity{SubjectID: "demo@test", Role: roles.RoleMember},
	})

	result, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProviderUnauthorized)
}

func TestFederatedLoginWithoutProvider(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t, nil, CoordinatorConfig{})

	_, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
	assert.ErrorIs(t, err, ErrFederationFailed)
}

func TestActiveSessionGauge(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	provider := &stubProvider{profile: &federation.Profile{SubjectID: "jane@test"}}
	coordinator := NewCoordinator(
		testUserStore(t),
		identity.NewBcryptVerifier(),
		token.NewCodec([]byte("test-secret")),
		session.NewMemoryStore(time.Hour),
		provider,
		CoordinatorConfig{},
		testLogger(),
		metrics,
	)

	result, err := coordinator.CompleteFederatedLogin(context.Background(), "code")
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsActive))

	require.NoError(t, coordinator.Logout(context.Background(), result.Session.ID))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SessionsActive))
}

func TestLogout(t *testing.T) {
	coordinator, _, sessions := newTestCoordinator(t, nil, CoordinatorConfig{})

	sess := session.New(&identity.Principal{SubjectID: "jane", TenantID: "corp1", Role: roles.RoleMember})
	require.NoError(t, sessions.Put(context.Background(), sess))

	require.NoError(t, coordinator.Logout(context.Background(), sess.ID))
	_, err := sessions.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// empty session ID is a no-op
	assert.NoError(t, coordinator.Logout(context.Background(), ""))
}
