package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/corpauth/gateway/pkg/identity"
	"github.com/corpauth/gateway/pkg/roles"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Session is the server-side record behind a session cookie.
type Session struct {
	ID          string          `json:"id"`
	SubjectID   string          `json:"subjectId"`
	TenantID    string          `json:"tenantId"`
	Role        roles.RoleID    `json:"role"`
	Source      identity.Source `json:"source"`
	DisplayName string          `json:"displayName,omitempty"`
	Fallback    bool            `json:"fallback,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// New builds a session for a principal with a fresh random ID.
func New(p *identity.Principal) *Session {
	return &Session{
		ID:          uuid.NewString(),
		SubjectID:   p.SubjectID,
		TenantID:    p.TenantID,
		Role:        p.Role,
		Source:      p.Source,
		DisplayName: p.DisplayName,
		Fallback:    p.Source == identity.SourceFallback,
		CreatedAt:   time.Now().UTC(),
	}
}

// Principal reconstructs the principal this session was created for.
func (s *Session) Principal() *identity.Principal {
	return &identity.Principal{
		SubjectID:   s.SubjectID,
		TenantID:    s.TenantID,
		Role:        s.Role,
		Source:      s.Source,
		DisplayName: s.DisplayName,
	}
}

// Store is the persistence contract shared by both backends.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
