package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteConfig configures the hosted profile API client.
type RemoteConfig struct {
	APIBaseURL string
	ClientID   string
	APIKey     string
	Timeout    time.Duration
}

const defaultRemoteTimeout = 10 * time.Second

// RemoteProvider exchanges an authorization code against a hosted SSO
// profile API over HTTPS.
type RemoteProvider struct {
	config RemoteConfig
	client *http.Client
}

// NewRemoteProvider creates a client for the hosted profile API.
func NewRemoteProvider(config RemoteConfig) (*RemoteProvider, error) {
	if config.APIBaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteProvider{
		config: config,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (p *RemoteProvider) Kind() Kind {
	return KindRemote
}

// remoteProfile is the wire shape of the hosted API's profile response.
type remoteProfile struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ConnectionID   string `json:"connection_id"`
	ConnectionType string `json:"connection_type"`
	OrganizationID string `json:"organization_id"`
	Role           struct {
		Slug string `json:"slug"`
	} `json:"role"`
	RawAttributes map[string]any `json:"raw_attributes"`
}

// ExchangeCode posts the authorization code to the profile endpoint and maps
// the response. A 401 or 403 from the API means our own credentials were
// rejected, which callers can detect via ProviderError.Unauthorized.
func (p *RemoteProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	form := url.Values{}
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.APIKey)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	endpoint := strings.TrimRight(p.config.APIBaseURL, "/") + "/sso/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Message: "building profile request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: "profile API unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var payload struct {
		Profile remoteProfile `json:"profile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Message: "decoding profile response", Err: err}
	}

	wire := payload.Profile
	if wire.Email == "" {
		return nil, &ProviderError{Message: "profile response missing email"}
	}

	profile := &Profile{
		SubjectID:      wire.Email,
		Email:          wire.Email,
		FirstName:      wire.FirstName,
		LastName:       wire.LastName,
		ConnectionID:   wire.ConnectionID,
		ConnectionType: wire.ConnectionType,
		OrganizationID: wire.OrganizationID,
		RoleSlug:       wire.Role.Slug,
		RawAttributes:  stringAttributes(wire.RawAttributes),
	}
	return profile, nil
}

// stringAttributes keeps only attributes with scalar string values. Nested
// structures from the IdP are dropped rather than stringified.
func stringAttributes(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
