package authn

import (
	"context"
	"errors"

	"github.com/corpauth/gateway/pkg/identity"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/roles"
	"github.com/corpauth/gateway/pkg/session"
	"github.com/corpauth/gateway/pkg/token"
)

// Resolver determines the acting principal for a request. Precedence is
// bearer token, then server session, then anonymous. Resolution never fails:
// a bad credential is treated as absent.
type Resolver struct {
	codec    *token.Codec
	users    identity.UserStore
	sessions session.Store
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewResolver wires a resolver. metrics may be nil in tests.
func NewResolver(codec *token.Codec, users identity.UserStore, sessions session.Store, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		codec:    codec,
		users:    users,
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve maps the request credentials onto a principal. Either argument may
// be empty. A nil return means anonymous.
func (r *Resolver) Resolve(ctx context.Context, bearer, sessionID string) *identity.Principal {
	if bearer != "" {
		if principal := r.resolveBearer(ctx, bearer); principal != nil {
			return principal
		}
	}
	if sessionID != "" {
		if principal := r.resolveSession(ctx, sessionID); principal != nil {
			return principal
		}
	}
	return nil
}

// resolveBearer verifies the token and rebuilds the principal. Federated and
// fallback tokens are self-contained; local tokens are re-checked against
// the user store so a deleted user stops authenticating immediately.
func (r *Resolver) resolveBearer(ctx context.Context, bearer string) *identity.Principal {
	claims, err := r.codec.Verify(bearer)
	if err != nil {
		r.countVerification(verificationResult(err))
		r.logger.WithError(err).Debug("bearer token rejected")
		return nil
	}
	r.countVerification("ok")

	source := identity.Source(claims.Source)
	if source == identity.SourceFederated || source == identity.SourceFallback {
		role, _ := roles.Normalize(claims.Role)
		return &identity.Principal{
			SubjectID:   claims.Subject,
			TenantID:    claims.TenantID,
			Role:        role,
			DisplayName: identity.DisplayNameFrom(claims.Subject, claims.FirstName, claims.LastName),
			Source:      source,
		}
	}

	record, err := r.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			r.logger.WithError(err).WithField("subject", claims.Subject).Error("user store lookup failed during resolution")
		}
		return nil
	}
	return record.Principal()
}

func (r *Resolver) resolveSession(ctx context.Context, sessionID string) *identity.Principal {
	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			r.logger.WithError(err).Error("session store lookup failed during resolution")
		}
		return nil
	}
	return sess.Principal()
}

func (r *Resolver) countVerification(result string) {
	if r.metrics != nil {
		r.metrics.TokenVerificationsTotal.WithLabelValues(result).Inc()
	}
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, token.ErrUnsupported):
		return "unsupported"
	default:
		return "malformed"
	}
}
