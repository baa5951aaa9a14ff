package authn

import "errors"

var (
	// ErrInvalidCredentials covers every local login failure: unknown user,
	// wrong password, or a store error. Callers must not reveal which.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrFederationFailed reports that the provider exchange failed and no
	// fallback was permitted.
	ErrFederationFailed = errors.New("federated login failed")

	// ErrProviderUnauthorized reports that the provider rejected the
	// gateway's own API credentials. This is a deployment problem, never a
	// user problem, and is never masked by a fallback identity.
	ErrProviderUnauthorized = errors.New("identity provider rejected API credentials")
)
