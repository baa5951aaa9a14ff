// Package session persists server-side login state keyed by an opaque
// session ID. Two backends ship: an in-process LRU for single-node
// deployments and demos, and Redis for anything that needs to survive a
// restart or span replicas. Both expire entries after a fixed TTL.
package session
