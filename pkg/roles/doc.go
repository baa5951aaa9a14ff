// Package roles defines the closed role catalog for the identity gateway.
//
// Historically the platform carried two parallel role vocabularies: the
// long-form org_* identifiers assigned by the identity provider and a set of
// legacy two/three-letter codes from the previous system. This package
// collapses both into a single RoleID enumeration with an explicit alias
// table. Every role maps to exactly one PermissionTier and the mapping is
// immutable at runtime, so concurrent reads need no synchronization.
package roles
