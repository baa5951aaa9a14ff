package federation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemoteTestProvider(t *testing.T, handler http.HandlerFunc) *RemoteProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewRemoteProvider(RemoteConfig{
		APIBaseURL: server.URL,
		ClientID:   "client_123",
		APIKey:     "sk_test",
	})
	require.NoError(t, err)
	return provider
}

func TestRemoteProviderExchangeCode(t *testing.T) {
	provider := newRemoteTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sso/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_123", r.FormValue("client_id"))
		assert.Equal(t, "sk_test", r.FormValue("client_secret"))
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "code_abc", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "ignored",
			"profile": {
				"id": "prof_01",
				"email": "jane@corp1.test",
				"first_name": "Jane",
				"last_name": "Doe",
				"connection_id": "conn_01ABC",
				"connection_type": "OktaSAML",
				"organization_id": "org_01XYZ",
				"role": {"slug": "org_manager"},
				"raw_attributes": {
					"customer_corpid": "corp1",
					"customer_role": "ma",
					"groups": ["a", "b"]
				}
			}
		}`))
	})

	profile, err := provider.ExchangeCode(context.Background(), "code_abc")
	require.NoError(t, err)
	assert.Equal(t, "jane@corp1.test", profile.SubjectID)
	assert.Equal(t, "Jane", profile.FirstName)
	assert.Equal(t, "Doe", profile.LastName)
	assert.Equal(t, "conn_01ABC", profile.ConnectionID)
	assert.Equal(t, "OktaSAML", profile.ConnectionType)
	assert.Equal(t, "org_01XYZ", profile.OrganizationID)
	assert.Equal(t, "org_manager", profile.RoleSlug)

	corpID, ok := profile.Attribute("customer_corpid")
	assert.True(t, ok)
	assert.Equal(t, "corp1", corpID)

	// non-string attributes are dropped, not stringified
	_, ok = profile.Attribute("groups")
	assert.False(t, ok)
}

func TestRemoteProviderUnauthorized(t *testing.T) {
	provider := newRemoteTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	})

	_, err := provider.ExchangeCode(context.Background(), "code_abc")
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Unauthorized())
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
}

func TestRemoteProviderUpstreamFailure(t *testing.T) {
	provider := newRemoteTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := provider.ExchangeCode(context.Background(), "code_abc")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Unauthorized())
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
}

func TestRemoteProviderMissingEmail(t *testing.T) {
	provider := newRemoteTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"profile": {"id": "prof_01"}}`))
	})

	_, err := provider.ExchangeCode(context.Background(), "code_abc")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Message, "missing email")
}

func TestRemoteProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // nothing listening anymore

	provider, err := NewRemoteProvider(RemoteConfig{
		APIBaseURL: server.URL,
		ClientID:   "client_123",
		APIKey:     "sk_test",
	})
	require.NoError(t, err)

	_, err = provider.ExchangeCode(context.Background(), "code_abc")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Unauthorized())
}

func TestNewRemoteProviderValidation(t *testing.T) {
	tests := []struct {
		name   string
		config RemoteConfig
	}{
		{"missing base url", RemoteConfig{ClientID: "c", APIKey: "k"}},
		{"missing client id", RemoteConfig{APIBaseURL: "https://api.test", APIKey: "k"}},
		{"missing api key", RemoteConfig{APIBaseURL: "https://api.test", ClientID: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRemoteProvider(tt.config)
			assert.Error(t, err)
		})
	}
}
