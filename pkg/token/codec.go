package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corpauth/gateway/pkg/identity"
)

// Verification failure taxonomy. Verify always returns one of these; the
// caller never sees library internals.
var (
	ErrMalformed    = errors.New("token is malformed")
	ErrExpired      = errors.New("token is expired")
	ErrBadSignature = errors.New("token signature is invalid")
	ErrUnsupported  = errors.New("token is unsupported")
)

// Claim names used on the wire. ExtractClaim accepts any of these plus any
// key stored in the raw attribute bag.
const (
	ClaimSubject        = "sub"
	ClaimTenantID       = "tenantId"
	ClaimRole           = "role"
	ClaimSource         = "source"
	ClaimSynthetic      = "synthetic"
	ClaimFirstName      = "firstName"
	ClaimLastName       = "lastName"
	ClaimConnectionID   = "connectionId"
	ClaimConnectionType = "connectionType"
	ClaimOrganizationID = "organizationId"
)

// Claims is the decoded payload of a session token
type Claims struct {
	TenantID       string            `json:"tenantId"`
	Role           string            `json:"role"`
	Source         string            `json:"source,omitempty"`
	Synthetic      bool              `json:"synthetic,omitempty"`
	FirstName      string            `json:"firstName,omitempty"`
	LastName       string            `json:"lastName,omitempty"`
	ConnectionID   string            `json:"connectionId,omitempty"`
	ConnectionType string            `json:"connectionType,omitempty"`
	OrganizationID string            `json:"organizationId,omitempty"`
	RawAttributes  map[string]string `json:"rawAttributes,omitempty"`
	jwt.RegisteredClaims
}

// Codec mints and verifies session tokens with a shared HMAC secret
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a codec signing with the given secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// Mint serializes a principal into a signed token valid for ttl. Keys in
// extra that match a known claim name populate the typed claim; anything else
// lands in the raw attribute bag. The input maps are copied, the token never
// aliases caller memory.
func (c *Codec) Mint(p *identity.Principal, ttl time.Duration, extra map[string]string) (string, error) {
	now := c.now()
	claims := &Claims{
		TenantID: p.TenantID,
		Role:     string(p.Role),
		Source:   string(p.Source),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	for name, value := range extra {
		switch name {
		case ClaimFirstName:
			claims.FirstName = value
		case ClaimLastName:
			claims.LastName = value
		case ClaimConnectionID:
			claims.ConnectionID = value
		case ClaimConnectionType:
			claims.ConnectionType = value
		case ClaimOrganizationID:
			claims.OrganizationID = value
		case ClaimSynthetic:
			claims.Synthetic = value == "true"
		default:
			if claims.RawAttributes == nil {
				claims.RawAttributes = make(map[string]string)
			}
			claims.RawAttributes[name] = value
		}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature and expiry of a serialized token and returns
// the decoded claims. Signature comparison is constant-time inside the JWT
// library; the alg header is restricted to HS256 so an attacker cannot
// downgrade the verification method.
func (c *Codec) Verify(serialized string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(serialized, claims, c.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// ExtractClaim decodes a single claim from a token, best effort. It returns
// ok=false for a malformed, expired or foreign-signed token and for a missing
// claim; it never fails. Intended for display enrichment only, never for
// authorization decisions.
func (c *Codec) ExtractClaim(serialized, name string) (string, bool) {
	claims, err := c.Verify(serialized)
	if err != nil {
		return "", false
	}

	switch name {
	case ClaimSubject:
		return nonEmpty(claims.Subject)
	case ClaimTenantID:
		return nonEmpty(claims.TenantID)
	case ClaimRole:
		return nonEmpty(claims.Role)
	case ClaimSource:
		return nonEmpty(claims.Source)
	case ClaimFirstName:
		return nonEmpty(claims.FirstName)
	case ClaimLastName:
		return nonEmpty(claims.LastName)
	case ClaimConnectionID:
		return nonEmpty(claims.ConnectionID)
	case ClaimConnectionType:
		return nonEmpty(claims.ConnectionType)
	case ClaimOrganizationID:
		return nonEmpty(claims.OrganizationID)
	default:
		value, ok := claims.RawAttributes[name]
		if !ok || value == "" {
			return "", false
		}
		return value, true
	}
}

// keyFunc pins the signing method before releasing the secret. Rejecting here
// covers both the classic alg=none bypass and cross-algorithm confusion.
func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, ErrUnsupported
	}
	return c.secret, nil
}

func nonEmpty(value string) (string, bool) {
	return value, value != ""
}

// classify maps library errors onto the codec's fixed error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrUnsupported
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
