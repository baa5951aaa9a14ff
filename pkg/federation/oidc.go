package federation

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig configures direct OpenID Connect federation.
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDCProvider performs the OAuth2 code exchange and ID token verification
// against any OIDC discovery endpoint.
type OIDCProvider struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDCProvider discovers the issuer and prepares the exchange config.
func NewOIDCProvider(ctx context.Context, config OIDCConfig) (*OIDCProvider, error) {
	if config.IssuerURL == "" {
		return nil, fmt.Errorf("issuer url is required")
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("client credentials are required")
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC issuer: %w", err)
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
		},
	}, nil
}

func (p *OIDCProvider) Kind() Kind {
	return KindOIDC
}

// ExchangeCode swaps the authorization code for tokens and maps the verified
// ID token claims into a Profile.
func (p *OIDCProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		if retrieveErr, ok := err.(*oauth2.RetrieveError); ok {
			return nil, &ProviderError{
				StatusCode: retrieveErr.Response.StatusCode,
				Message:    "code exchange rejected",
				Err:        err,
			}
		}
		return nil, &ProviderError{Message: "code exchange failed", Err: err}
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, &ProviderError{Message: "token response missing id_token"}
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, &ProviderError{Message: "id_token verification failed", Err: err}
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, &ProviderError{Message: "decoding id_token claims", Err: err}
	}

	attrs := stringAttributes(claims)
	email := attrs["email"]
	if email == "" {
		return nil, &ProviderError{Message: "id_token missing email claim"}
	}

	return &Profile{
		SubjectID:      email,
		Email:          email,
		FirstName:      attrs["given_name"],
		LastName:       attrs["family_name"],
		ConnectionType: "OIDC",
		OrganizationID: attrs["org"],
		RoleSlug:       attrs["role"],
		RawAttributes:  attrs,
	}, nil
}
