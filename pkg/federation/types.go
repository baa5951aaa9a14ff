package federation

import (
	"context"
	"fmt"
	"net/http"
)

// Kind selects which provider implementation handles the code exchange.
type Kind string

const (
	KindRemote Kind = "remote"
	KindOIDC   Kind = "oidc"
	KindSAML   Kind = "saml"
)

// Profile is the provider-neutral identity a code exchange produces. The
// typed fields cover everything the gateway consumes directly; anything else
// the provider sent lands in RawAttributes.
type Profile struct {
	SubjectID      string            `json:"subjectId"`
	Email          string            `json:"email"`
	FirstName      string            `json:"firstName,omitempty"`
	LastName       string            `json:"lastName,omitempty"`
	ConnectionID   string            `json:"connectionId,omitempty"`
	ConnectionType string            `json:"connectionType,omitempty"`
	OrganizationID string            `json:"organizationId,omitempty"`
	RoleSlug       string            `json:"roleSlug,omitempty"`
	RawAttributes  map[string]string `json:"rawAttributes,omitempty"`
}

// Attribute reads a raw attribute, distinguishing absent from empty.
func (p *Profile) Attribute(name string) (string, bool) {
	value, ok := p.RawAttributes[name]
	return value, ok && value != ""
}

// Provider turns an authorization code (or, for SAML, an encoded assertion)
// into a Profile.
type Provider interface {
	Kind() Kind
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

// ProviderError wraps any failure talking to or validating against the
// upstream provider.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the upstream rejected the gateway's own API
// credentials, as opposed to rejecting the end user.
func (e *ProviderError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
