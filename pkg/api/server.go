package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/corpauth/gateway/pkg/authn"
	"github.com/corpauth/gateway/pkg/config"
	"github.com/corpauth/gateway/pkg/middleware"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/token"
)

// Config carries the handler-facing settings the server needs beyond its
// collaborators.
type Config struct {
	// LoginURL and DashboardURL are the frontend pages the SSO callback
	// redirects to on failure and success.
	LoginURL     string
	DashboardURL string

	// SessionTTL bounds the session cookie lifetime.
	SessionTTL time.Duration

	// TracingEnabled wraps the handler chain in otelhttp when set.
	TracingEnabled bool
}

// Server wires the HTTP routes to the authentication core.
type Server struct {
	router      *mux.Router
	coordinator *authn.Coordinator
	resolver    *authn.Resolver
	codec       *token.Codec
	connections *config.ConnectionMap
	config      Config
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewServer creates the API server. connections may be an empty map and
// metrics may be nil; both degrade gracefully.
func NewServer(
	coordinator *authn.Coordinator,
	resolver *authn.Resolver,
	codec *token.Codec,
	connections *config.ConnectionMap,
	cfg Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		coordinator: coordinator,
		resolver:    resolver,
		codec:       codec,
		connections: connections,
		config:      cfg,
		logger:      logger,
		metrics:     metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/api/auth/logout", s.handleLogout).Methods("POST")
	s.router.HandleFunc("/api/me", s.handleMe).Methods("GET")
	s.router.HandleFunc("/auth/sso/callback", s.handleSSOCallback).Methods("GET")
}

// Handler returns the router wrapped in the full middleware chain.
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
	}
	if s.config.TracingEnabled {
		// the span must exist before Logging runs so the completion log
		// carries the trace identifiers
		chain = append(chain, func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "gateway")
		})
	}
	chain = append(chain, middleware.Logging(s.logger))
	if s.metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(s.metrics))
	}
	chain = append(chain,
		middleware.Recover(s.logger),
		middleware.Resolve(s.resolver),
	)
	return middleware.Chain(chain...)(s.router)
}
