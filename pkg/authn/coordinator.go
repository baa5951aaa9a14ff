package authn

import (
	"context"
	"errors"
	"time"

	"github.com/corpauth/gateway/pkg/federation"
	"github.com/corpauth/gateway/pkg/identity"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/roles"
	"github.com/corpauth/gateway/pkg/session"
	"github.com/corpauth/gateway/pkg/token"
)

// Outcome labels how a login attempt concluded.
type Outcome string

const (
	OutcomeTokenMinted         Outcome = "token_minted"
	OutcomeFallbackTokenMinted Outcome = "fallback_token_minted"
	OutcomeRejected            Outcome = "rejected"
)

// Result is the product of a successful login.
type Result struct {
	Outcome   Outcome
	Token     string
	Principal *identity.Principal
	Session   *session.Session
	Profile   *federation.Profile
}

// FallbackIdentity is the synthetic principal issued when the provider is
// down and the deployment permits it.
type FallbackIdentity struct {
	SubjectID   string
	TenantID    string
	Role        roles.RoleID
	DisplayName string
}

// Raw attribute names the coordinator interprets on federated profiles.
const (
	attrCustomerCorpID = "customer_corpid"
	attrCustomerRole   = "customer_role"
)

// DefaultTenant is used when neither the profile nor the connection mapping
// names one.
const DefaultTenant = "default_corp"

// CoordinatorConfig tunes the coordinator's policy knobs.
type CoordinatorConfig struct {
	TokenTTL        time.Duration
	ExchangeTimeout time.Duration

	// DefaultTenant overrides the package default when set.
	DefaultTenant string

	// ConnectionTenants maps a provider connection ID to a tenant, consulted
	// when the profile carries no customer_corpid attribute.
	ConnectionTenants map[string]string

	// AllowSyntheticFallback permits the fallback identity on provider
	// outage. Config validation refuses this in production.
	AllowSyntheticFallback bool
	Fallback               FallbackIdentity
}

const (
	defaultTokenTTL        = time.Hour
	defaultExchangeTimeout = 10 * time.Second
)

// Coordinator runs both login paths end to end: credential or code
// verification, tenant and role mapping, token minting, session creation.
type Coordinator struct {
	users    identity.UserStore
	verifier identity.CredentialVerifier
	codec    *token.Codec
	sessions session.Store
	provider federation.Provider
	config   CoordinatorConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewCoordinator wires a coordinator. provider may be nil when federation is
// not configured; metrics may be nil in tests.
func NewCoordinator(
	users identity.UserStore,
	verifier identity.CredentialVerifier,
	codec *token.Codec,
	sessions session.Store,
	provider federation.Provider,
	config CoordinatorConfig,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	if config.TokenTTL <= 0 {
		config.TokenTTL = defaultTokenTTL
	}
	if config.ExchangeTimeout <= 0 {
		config.ExchangeTimeout = defaultExchangeTimeout
	}
	if config.DefaultTenant == "" {
		config.DefaultTenant = DefaultTenant
	}
	return &Coordinator{
		users:    users,
		verifier: verifier,
		codec:    codec,
		sessions: sessions,
		provider: provider,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// LoginLocal authenticates a username and password against the user store.
// Every failure collapses into ErrInvalidCredentials so responses cannot be
// used to probe which usernames exist.
func (c *Coordinator) LoginLocal(ctx context.Context, username, password string) (*Result, error) {
	record, err := c.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			c.logger.WithError(err).WithField("username", username).Error("user store lookup failed")
		}
		c.countLogin("local", observability.OutcomeRejected)
		return nil, ErrInvalidCredentials
	}

	if !c.verifier.Verify(password, record.PasswordHash) {
		c.countLogin("local", observability.OutcomeRejected)
		return nil, ErrInvalidCredentials
	}

	principal := record.Principal()
	serialized, err := c.codec.Mint(principal, c.config.TokenTTL, nil)
	if err != nil {
		c.logger.WithError(err).Error("minting local token failed")
		c.countLogin("local", observability.OutcomeError)
		return nil, ErrInvalidCredentials
	}

	c.logger.WithFields(map[string]any{
		"username": record.Username,
		"tenant":   principal.TenantID,
		"role":     principal.Role,
	}).Info("local login succeeded")
	c.countLogin("local", observability.OutcomeSuccess)

	return &Result{
		Outcome:   OutcomeTokenMinted,
		Token:     serialized,
		Principal: principal,
	}, nil
}

// CompleteFederatedLogin exchanges the callback code for a profile and mints
// a token for the mapped principal. On provider outage it either substitutes
// the synthetic fallback identity or rejects, depending on deployment policy.
func (c *Coordinator) CompleteFederatedLogin(ctx context.Context, code string) (*Result, error) {
	if c.provider == nil {
		return nil, ErrFederationFailed
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, c.config.ExchangeTimeout)
	defer cancel()

	profile, err := c.provider.ExchangeCode(exchangeCtx, code)
	if err != nil {
		return c.handleExchangeFailure(ctx, err)
	}
	c.countExchange(observability.OutcomeSuccess)

	principal := c.principalFromProfile(profile)
	extra := c.claimsFromProfile(profile)

	serialized, err := c.codec.Mint(principal, c.config.TokenTTL, extra)
	if err != nil {
		c.logger.WithError(err).Error("minting federated token failed")
		c.countLogin("federated", observability.OutcomeError)
		return nil, ErrFederationFailed
	}

	sess := c.storeSession(ctx, principal)

	c.logger.WithFields(map[string]any{
		"subject":    principal.SubjectID,
		"tenant":     principal.TenantID,
		"role":       principal.Role,
		"connection": profile.ConnectionID,
	}).Info("federated login succeeded")
	c.countLogin("federated", observability.OutcomeSuccess)

	return &Result{
		Outcome:   OutcomeTokenMinted,
		Token:     serialized,
		Principal: principal,
		Session:   sess,
		Profile:   profile,
	}, nil
}

// handleExchangeFailure decides between rejecting and issuing the synthetic
// fallback identity.
func (c *Coordinator) handleExchangeFailure(ctx context.Context, exchangeErr error) (*Result, error) {
	var perr *federation.ProviderError
	if errors.As(exchangeErr, &perr) && perr.Unauthorized() {
		// our API credentials are bad; a fallback would only hide it
		c.logger.WithError(exchangeErr).Error("identity provider rejected gateway credentials")
		c.countExchange(observability.OutcomeUnauthorized)
		c.countLogin("federated", observability.OutcomeRejected)
		return nil, ErrProviderUnauthorized
	}

	c.countExchange(observability.OutcomeError)

	if !c.config.AllowSyntheticFallback {
		c.logger.WithError(exchangeErr).Error("federated code exchange failed")
		c.countLogin("federated", observability.OutcomeRejected)
		return nil, ErrFederationFailed
	}

	fallback := c.config.Fallback
	role, _ := roles.Normalize(string(fallback.Role))
	principal := &identity.Principal{
		SubjectID:   fallback.SubjectID,
		TenantID:    fallback.TenantID,
		Role:        role,
		DisplayName: fallback.DisplayName,
		Source:      identity.SourceFallback,
	}
	if principal.TenantID == "" {
		principal.TenantID = c.config.DefaultTenant
	}

	serialized, err := c.codec.Mint(principal, c.config.TokenTTL, map[string]string{
		token.ClaimSynthetic: "true",
	})
	if err != nil {
		c.logger.WithError(err).Error("minting fallback token failed")
		c.countLogin("federated", observability.OutcomeError)
		return nil, ErrFederationFailed
	}

	sess := c.storeSession(ctx, principal)

	c.logger.WithError(exchangeErr).WithFields(map[string]any{
		"subject": principal.SubjectID,
		"tenant":  principal.TenantID,
	}).Warn("identity provider unavailable, issued synthetic fallback identity")
	if c.metrics != nil {
		c.metrics.FallbackLoginsTotal.Inc()
	}
	c.countLogin("federated", observability.OutcomeFallback)

	return &Result{
		Outcome:   OutcomeFallbackTokenMinted,
		Token:     serialized,
		Principal: principal,
		Session:   sess,
	}, nil
}

// principalFromProfile applies the tenant and role precedence rules.
//
// Tenant: customer_corpid attribute, then the connection mapping, then the
// default tenant. Role: the profile's typed role slug when present, else the
// customer_role attribute, else member. First match wins: a non-empty slug
// settles the role even when it fails validation, it downgrades to member
// rather than handing the decision to a lower-precedence source.
func (c *Coordinator) principalFromProfile(profile *federation.Profile) *identity.Principal {
	tenant := c.config.DefaultTenant
	if corpID, ok := profile.Attribute(attrCustomerCorpID); ok {
		tenant = corpID
	} else if mapped, ok := c.config.ConnectionTenants[profile.ConnectionID]; ok && mapped != "" {
		tenant = mapped
	}

	role := roles.DefaultRole
	if profile.RoleSlug != "" {
		normalized, known := roles.Normalize(profile.RoleSlug)
		if !known {
			c.logger.WithField("role", profile.RoleSlug).Warn("unknown profile role slug, defaulting to member")
		}
		role = normalized
	} else if rawRole, ok := profile.Attribute(attrCustomerRole); ok {
		if normalized, known := roles.Normalize(rawRole); known {
			role = normalized
		} else {
			c.logger.WithField("role", rawRole).Warn("unknown customer_role attribute, defaulting to member")
		}
	}

	return &identity.Principal{
		SubjectID:   profile.SubjectID,
		TenantID:    tenant,
		Role:        role,
		DisplayName: identity.DisplayNameFrom(profile.SubjectID, profile.FirstName, profile.LastName),
		Source:      identity.SourceFederated,
	}
}

// claimsFromProfile builds the extra token claims carried for display
// enrichment. Raw attributes ride along untyped.
func (c *Coordinator) claimsFromProfile(profile *federation.Profile) map[string]string {
	extra := make(map[string]string, len(profile.RawAttributes)+5)
	for name, value := range profile.RawAttributes {
		extra[name] = value
	}
	if profile.FirstName != "" {
		extra[token.ClaimFirstName] = profile.FirstName
	}
	if profile.LastName != "" {
		extra[token.ClaimLastName] = profile.LastName
	}
	if profile.ConnectionID != "" {
		extra[token.ClaimConnectionID] = profile.ConnectionID
	}
	if profile.ConnectionType != "" {
		extra[token.ClaimConnectionType] = profile.ConnectionType
	}
	if profile.OrganizationID != "" {
		extra[token.ClaimOrganizationID] = profile.OrganizationID
	}
	return extra
}

// storeSession writes the server session, logging instead of failing: the
// token is the primary credential and still works without one.
func (c *Coordinator) storeSession(ctx context.Context, principal *identity.Principal) *session.Session {
	sess := session.New(principal)
	if err := c.sessions.Put(ctx, sess); err != nil {
		c.logger.WithError(err).WithField("subject", principal.SubjectID).Error("storing session failed")
		c.countSessionOp("put", "error")
		return nil
	}
	c.countSessionOp("put", "ok")
	if c.metrics != nil {
		c.metrics.SessionsActive.Inc()
	}
	return sess
}

// Logout removes the server session. Tokens already in flight stay valid
// until they expire.
func (c *Coordinator) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		c.countSessionOp("delete", "error")
		return err
	}
	c.countSessionOp("delete", "ok")
	if c.metrics != nil {
		c.metrics.SessionsActive.Dec()
	}
	return nil
}

func (c *Coordinator) countLogin(method, outcome string) {
	if c.metrics != nil {
		c.metrics.LoginsTotal.WithLabelValues(method, outcome).Inc()
	}
}

func (c *Coordinator) countExchange(outcome string) {
	if c.metrics != nil {
		kind := "none"
		if c.provider != nil {
			kind = string(c.provider.Kind())
		}
		c.metrics.FederationExchangeTotal.WithLabelValues(kind, outcome).Inc()
	}
}

func (c *Coordinator) countSessionOp(operation, status string) {
	if c.metrics != nil {
		c.metrics.SessionOperationsTotal.WithLabelValues(operation, status).Inc()
	}
}
