package identity

import (
	"strings"

	"github.com/corpauth/gateway/pkg/roles"
)

// Source records which authentication path produced a Principal
type Source string

const (
	SourceLocal     Source = "local"     // username/password against the local store
	SourceFederated Source = "federated" // SSO profile from the identity-provider federation
	SourceFallback  Source = "fallback"  // synthetic configured stand-in identity
)

// Principal is the resolved caller identity for a single request
type Principal struct {
	SubjectID   string       `json:"subjectId"`
	TenantID    string       `json:"tenantId"`
	Role        roles.RoleID `json:"role"`
	DisplayName string       `json:"displayName,omitempty"`
	Source      Source       `json:"source"`
}

// Tier returns the permission tier for the principal's role.
func (p *Principal) Tier() roles.PermissionTier {
	return roles.TierOf(p.Role)
}

// DisplayNameFrom builds a display name from optional first/last name parts,
// falling back to the subject identifier.
func DisplayNameFrom(subjectID, firstName, lastName string) string {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return subjectID
	}
}

// UserRecord is a row in the local credential store
type UserRecord struct {
	Username     string
	PasswordHash string
	TenantID     string
	Role         roles.RoleID
}

// Principal converts a stored user record into a local-source principal.
func (u *UserRecord) Principal() *Principal {
	return &Principal{
		SubjectID:   u.Username,
		TenantID:    u.TenantID,
		Role:        u.Role,
		DisplayName: u.Username,
		Source:      SourceLocal,
	}
}
