// Package authn coordinates the gateway's two login paths and resolves the
// acting principal on every request.
//
// Local logins check a username and password against the user store.
// Federated logins exchange an authorization code with the configured
// identity provider and map the returned profile onto a tenant and role. A
// deployment flagged non-strict may substitute a synthetic fallback identity
// when the provider is down; production deployments never do.
package authn
