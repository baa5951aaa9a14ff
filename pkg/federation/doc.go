// Package federation exchanges an authorization artifact from an upstream
// identity provider for a user profile. Three provider flavors ship: a
// hosted profile API spoken over HTTPS, direct OIDC against any discovery
// endpoint, and SAML assertion validation. All of them produce the same
// Profile shape so the rest of the gateway never cares which one ran.
package federation
