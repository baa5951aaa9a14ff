package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/corpauth/gateway/pkg/authn"
	"github.com/corpauth/gateway/pkg/middleware"
	"github.com/corpauth/gateway/pkg/observability"
)

// Error codes the callback redirects back to the login page with. The
// frontend maps these onto user-facing copy.
const (
	ssoErrNoCode           = "no_code"
	ssoErrAccessDenied     = "access_denied"
	ssoErrInvalidRequest   = "invalid_request"
	ssoErrDomainNotAllowed = "domain_not_allowed"
	ssoErrAPIUnauthorized  = "api_unauthorized"
	ssoErrFailed           = "sso_failed"
	ssoErrSAMLConfig       = "saml_config_error"
)

// passthroughErrors are provider error codes forwarded to the login page
// unchanged. Anything else collapses into sso_failed so the frontend never
// renders arbitrary provider strings.
var passthroughErrors = map[string]bool{
	ssoErrAccessDenied:     true,
	ssoErrInvalidRequest:   true,
	ssoErrDomainNotAllowed: true,
	ssoErrSAMLConfig:       true,
}

// handleSSOCallback handles GET /auth/sso/callback, the return leg of the
// federated login. Failures never render an error page here; the browser is
// always sent back to the login page with a coded reason.
func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		code := providerErr
		if !passthroughErrors[code] {
			code = ssoErrFailed
		}
		logger.WithFields(map[string]any{
			"provider_error": providerErr,
			"description":    query.Get("error_description"),
		}).Warn("identity provider returned an error on callback")
		s.redirectLoginError(w, r, code, query.Get("error_description"))
		return
	}

	code := query.Get("code")
	if code == "" {
		s.redirectLoginError(w, r, ssoErrNoCode, "missing authorization code")
		return
	}

	result, err := s.coordinator.CompleteFederatedLogin(r.Context(), code)
	if err != nil {
		logger.WithError(err).Error("federated login failed")
		switch {
		case errors.Is(err, authn.ErrProviderUnauthorized):
			s.redirectLoginError(w, r, ssoErrAPIUnauthorized, "identity provider rejected the gateway")
		default:
			s.redirectLoginError(w, r, ssoErrFailed, "single sign-on failed")
		}
		return
	}

	if result.Session != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    result.Session.ID,
			Path:     "/",
			MaxAge:   int(s.config.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	dashboard, err := url.Parse(s.config.DashboardURL)
	if err != nil {
		logger.WithError(err).Error("dashboard URL is unparseable")
		s.redirectLoginError(w, r, ssoErrFailed, "single sign-on failed")
		return
	}
	params := dashboard.Query()
	params.Set("token", result.Token)
	dashboard.RawQuery = params.Encode()

	http.Redirect(w, r, dashboard.String(), http.StatusFound)
}

func (s *Server) redirectLoginError(w http.ResponseWriter, r *http.Request, code, message string) {
	login, err := url.Parse(s.config.LoginURL)
	if err != nil {
		// nowhere sane to send the browser
		http.Error(w, "login redirect misconfigured", http.StatusInternalServerError)
		return
	}
	params := login.Query()
	params.Set("error", code)
	if message != "" {
		params.Set("message", message)
	}
	login.RawQuery = params.Encode()

	http.Redirect(w, r, login.String(), http.StatusFound)
}
