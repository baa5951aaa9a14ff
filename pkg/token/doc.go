// Package token mints and verifies the gateway's signed session tokens.
//
// Tokens are HS256 JWTs signed with a single process-wide secret. There is no
// key versioning: rotating the secret invalidates every previously issued
// token. There is also no revocation list; expiry is the only termination
// mechanism for a token that has left the building.
package token
