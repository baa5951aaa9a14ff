package api

import (
	"net/http"

	"github.com/corpauth/gateway/pkg/contextkeys"
	"github.com/corpauth/gateway/pkg/httputil"
	"github.com/corpauth/gateway/pkg/middleware"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
}

// handleLogin handles POST /api/auth/login. Every authentication failure
// produces the same 401 body so the endpoint cannot be used to enumerate
// usernames.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "username and password are required")
		return
	}

	result, err := s.coordinator.LoginLocal(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	_ = httputil.WriteSuccess(w, loginResponse{
		Token:    result.Token,
		Username: result.Principal.SubjectID,
		TenantID: result.Principal.TenantID,
		Role:     string(result.Principal.Role),
	})
}

// handleLogout handles POST /api/auth/logout. The server session is removed
// and the cookie cleared; bearer tokens already issued stay valid until they
// expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := contextkeys.SessionID(r.Context())
	if sessionID == "" {
		if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
			sessionID = cookie.Value
		}
	}

	if err := s.coordinator.Logout(r.Context(), sessionID); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("logout failed")
		httputil.WriteInternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	_ = httputil.WriteSuccess(w, map[string]string{"status": "logged_out"})
}

type meResponse struct {
	Authenticated bool   `json:"authenticated"`
	SubjectID     string `json:"subjectId,omitempty"`
	TenantID      string `json:"tenantId,omitempty"`
	Role          string `json:"role,omitempty"`
	Tier          string `json:"tier,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Source        string `json:"source,omitempty"`

	// Display enrichment decoded from the bearer token and the connection
	// mapping; absent for local logins.
	FullName       string `json:"fullName,omitempty"`
	ConnectionType string `json:"connectionType,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	IdPName        string `json:"idpName,omitempty"`
	IdPLogo        string `json:"idpLogo,omitempty"`
}

// handleMe handles GET /api/me. Anonymous requests get authenticated=false
// with a 200; the frontend treats that as the logged-out state.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := contextkeys.Principal(r.Context())
	if !ok {
		_ = httputil.WriteSuccess(w, meResponse{Authenticated: false})
		return
	}

	resp := meResponse{
		Authenticated: true,
		SubjectID:     principal.SubjectID,
		TenantID:      principal.TenantID,
		Role:          string(principal.Role),
		Tier:          string(principal.Tier()),
		DisplayName:   principal.DisplayName,
		Source:        string(principal.Source),
	}
	s.enrichFromBearer(r, &resp)

	_ = httputil.WriteSuccess(w, resp)
}

// enrichFromBearer pulls display-only claims out of the bearer token, best
// effort. Nothing here feeds authorization decisions.
func (s *Server) enrichFromBearer(r *http.Request, resp *meResponse) {
	bearer := bearerFromRequest(r)
	if bearer == "" {
		return
	}

	first, _ := s.codec.ExtractClaim(bearer, token.ClaimFirstName)
	last, _ := s.codec.ExtractClaim(bearer, token.ClaimLastName)
	if first != "" && last != "" {
		resp.FullName = first + " " + last
	} else if first != "" {
		resp.FullName = first
	}

	resp.ConnectionType, _ = s.codec.ExtractClaim(bearer, token.ClaimConnectionType)
	resp.OrganizationID, _ = s.codec.ExtractClaim(bearer, token.ClaimOrganizationID)

	if connectionID, ok := s.codec.ExtractClaim(bearer, token.ClaimConnectionID); ok {
		if info, found := s.connections.Lookup(connectionID); found {
			resp.IdPName = info.IdPName
			resp.IdPLogo = info.IdPLogo
		}
	}
}

func bearerFromRequest(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
