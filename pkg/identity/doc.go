// Package identity defines the resolved caller identity (Principal), the
// local user store boundary and the credential verification boundary.
//
// The gateway never hashes passwords itself; it only checks a plaintext
// candidate against a stored hash through the CredentialVerifier interface.
// User records are read-only from the gateway's point of view: stores are
// populated out of band and safe for concurrent reads.
package identity
