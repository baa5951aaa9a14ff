package identity

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier checks a plaintext credential against a stored hash
type CredentialVerifier interface {
	Verify(plaintext, hash string) bool
}

// BcryptVerifier verifies bcrypt password hashes
type BcryptVerifier struct{}

// NewBcryptVerifier creates a bcrypt credential verifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Verify reports whether plaintext matches the bcrypt hash.
func (*BcryptVerifier) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
