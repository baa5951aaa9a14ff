package roles

import "strings"

// RoleID identifies an organization-level role
type RoleID string

const (
	RoleSuperAdmin  RoleID = "org_super"
	RoleManagerPlus RoleID = "org_managerplus"
	RoleManager     RoleID = "org_manager"
	RoleSupport     RoleID = "org_support"
	RoleMember      RoleID = "org_user"
)

// DefaultRole is assigned whenever a role string cannot be recognized.
// Unknown input degrades to the least-privileged role, it is never rejected.
const DefaultRole = RoleMember

// PermissionTier is the coarse capability bucket derived from a role
type PermissionTier string

const (
	TierAdmin   PermissionTier = "ADMIN"
	TierManager PermissionTier = "MANAGER"
	TierSupport PermissionTier = "SUPPORT"
	TierUser    PermissionTier = "USER"
)

// tierByRole is the total role-to-tier mapping. Every RoleID must appear here.
var tierByRole = map[RoleID]PermissionTier{
	RoleSuperAdmin:  TierAdmin,
	RoleManagerPlus: TierManager,
	RoleManager:     TierManager,
	RoleSupport:     TierSupport,
	RoleMember:      TierUser,
}

// aliasByName maps every accepted spelling (lowercased) to its canonical
// RoleID. Legacy short codes from the previous system are kept so old
// identity sources keep working.
var aliasByName = map[string]RoleID{
	"org_super":       RoleSuperAdmin,
	"org_managerplus": RoleManagerPlus,
	"org_manager":     RoleManager,
	"org_support":     RoleSupport,
	"org_user":        RoleMember,

	// legacy codes
	"sma": RoleSuperAdmin,
	"ma":  RoleManager,
	"su":  RoleSupport,
	"mc":  RoleMember,
}

// TierOf returns the permission tier for a role. The function is total: a
// RoleID that somehow escaped the closed set resolves to the default role's
// tier rather than failing.
func TierOf(role RoleID) PermissionTier {
	if tier, ok := tierByRole[role]; ok {
		return tier
	}
	return tierByRole[DefaultRole]
}

// Normalize resolves a raw role string to a canonical RoleID. Matching is
// case-insensitive and accepts legacy aliases. Unrecognized input returns
// DefaultRole together with ok=false so callers can log the downgrade; this
// is deliberate policy, not an error.
func Normalize(raw string) (RoleID, bool) {
	if role, ok := aliasByName[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return role, true
	}
	return DefaultRole, false
}

// IsKnown reports whether role is a member of the closed set.
func IsKnown(role RoleID) bool {
	_, ok := tierByRole[role]
	return ok
}

// All returns the closed role set in privilege order, highest first.
func All() []RoleID {
	return []RoleID{RoleSuperAdmin, RoleManagerPlus, RoleManager, RoleSupport, RoleMember}
}
