package middleware

import (
	"net/http"
	"strings"

	"github.com/corpauth/gateway/pkg/authn"
	"github.com/corpauth/gateway/pkg/contextkeys"
)

// SessionCookieName carries the server session ID. The callback handler
// sets it; this middleware reads it.
const SessionCookieName = "gateway_session"

// Resolve determines the acting principal from the bearer token or session
// cookie and stores it in the request context. Resolution runs at most once
// per request: an already-present principal is left untouched. Anonymous
// requests pass through with no principal; handlers decide what anonymity
// means for them.
func Resolve(resolver *authn.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := contextkeys.Principal(ctx); ok {
				next.ServeHTTP(w, r)
				return
			}

			bearer := bearerToken(r)
			sessionID := sessionID(r)

			if principal := resolver.Resolve(ctx, bearer, sessionID); principal != nil {
				ctx = contextkeys.WithPrincipal(ctx, principal)
				if sessionID != "" {
					ctx = contextkeys.WithSessionID(ctx, sessionID)
				}
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
