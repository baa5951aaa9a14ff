// The gateway binary serves the identity gateway: local and federated login,
// token verification, and the identity introspection API, plus a separate
// health and metrics listener for probes and scrapes.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/corpauth/gateway/pkg/api"
	"github.com/corpauth/gateway/pkg/authn"
	"github.com/corpauth/gateway/pkg/config"
	"github.com/corpauth/gateway/pkg/federation"
	"github.com/corpauth/gateway/pkg/identity"
	"github.com/corpauth/gateway/pkg/observability"
	"github.com/corpauth/gateway/pkg/roles"
	"github.com/corpauth/gateway/pkg/session"
	"github.com/corpauth/gateway/pkg/token"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("gateway exited")
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"environment":   cfg.Auth.Environment,
		"port":          cfg.Server.Port,
		"health_port":   cfg.Server.HealthPort,
		"user_store":    cfg.Stores.UserStore,
		"session_store": cfg.Stores.SessionStore,
		"federation":    cfg.Federation.Provider,
	}).Info("starting identity gateway")

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.ShutdownTracing(shutdownCtx, tracerProvider, logger)
	}()

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	users, db, err := buildUserStore(cfg.Stores)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	sessions, redisClient := buildSessionStore(cfg.Stores, cfg.Auth.SessionTTL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	provider, err := buildProvider(ctx, cfg.Federation)
	if err != nil {
		return err
	}

	connections, err := config.NewConnectionMap(cfg.Federation.ConnectionMappingPath, logger)
	if err != nil {
		return err
	}
	if err := connections.Watch(); err != nil {
		return fmt.Errorf("watching connection mapping: %w", err)
	}
	defer connections.Close()

	codec := token.NewCodec([]byte(cfg.Auth.TokenSecret))

	fallbackRole, known := roles.Normalize(cfg.Auth.FallbackRole)
	if !known {
		logger.WithField("role", cfg.Auth.FallbackRole).Warn("unknown fallback role, using member")
	}

	coordinator := authn.NewCoordinator(users, identity.NewBcryptVerifier(), codec, sessions, provider,
		authn.CoordinatorConfig{
			TokenTTL:               cfg.Auth.TokenTTL,
			DefaultTenant:          cfg.Auth.DefaultTenant,
			ConnectionTenants:      connections.Tenants(),
			AllowSyntheticFallback: cfg.Auth.AllowSyntheticFallback,
			Fallback: authn.FallbackIdentity{
				SubjectID:   cfg.Auth.FallbackSubjectID,
				TenantID:    cfg.Auth.FallbackTenantID,
				Role:        fallbackRole,
				DisplayName: cfg.Auth.FallbackDisplayName,
			},
		}, logger, metrics)
	resolver := authn.NewResolver(codec, users, sessions, logger, metrics)

	server := api.NewServer(coordinator, resolver, codec, connections, api.Config{
		LoginURL:       cfg.Server.LoginURL,
		DashboardURL:   cfg.Server.DashboardURL,
		SessionTTL:     cfg.Auth.SessionTTL,
		TracingEnabled: cfg.Observability.OTelEnabled,
	}, logger, metrics)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("api server shutdown: %w", err))
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("health server shutdown: %w", err))
		}
		return shutdownErr
	})

	err = group.Wait()
	logger.Info("gateway stopped")
	return err
}

func buildUserStore(cfg config.StoreConfig) (identity.UserStore, *sql.DB, error) {
	switch cfg.UserStore {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		return identity.NewPostgresStore(db), db, nil
	default:
		return identity.NewMemoryStore(identity.DemoRecords()), nil, nil
	}
}

func buildSessionStore(cfg config.StoreConfig, ttl time.Duration) (session.Store, *redis.Client) {
	if cfg.SessionStore == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return session.NewRedisStore(client, ttl), client
	}
	return session.NewMemoryStore(ttl), nil
}

// buildProvider translates the flat federation config into the provider
// factory's shape. An unset provider disables federation entirely.
func buildProvider(ctx context.Context, cfg config.FederationConfig) (federation.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "remote":
		return federation.NewProvider(ctx, federation.Config{
			Kind: federation.KindRemote,
			Remote: &federation.RemoteConfig{
				APIBaseURL: cfg.APIBaseURL,
				ClientID:   cfg.ClientID,
				APIKey:     cfg.APIKey,
			},
		})
	case "oidc":
		return federation.NewProvider(ctx, federation.Config{
			Kind: federation.KindOIDC,
			OIDC: &federation.OIDCConfig{
				IssuerURL:    cfg.OIDCIssuerURL,
				ClientID:     cfg.OIDCClientID,
				ClientSecret: cfg.OIDCClientSecret,
				RedirectURL:  cfg.OIDCRedirectURL,
			},
		})
	case "saml":
		cert, err := os.ReadFile(cfg.SAMLIdPCertPath)
		if err != nil {
			return nil, fmt.Errorf("reading SAML IdP certificate: %w", err)
		}
		return federation.NewProvider(ctx, federation.Config{
			Kind: federation.KindSAML,
			SAML: &federation.SAMLConfig{
				IdentityProviderSSOURL: cfg.SAMLIdPSSOURL,
				IdentityProviderIssuer: cfg.SAMLIdPIssuer,
				ServiceProviderIssuer:  cfg.SAMLSPIssuer,
				AudienceURI:            cfg.SAMLAudienceURI,
				CallbackURL:            cfg.SAMLCallbackURL,
				IdentityProviderCert:   string(cert),
			},
		})
	default:
		return nil, fmt.Errorf("unsupported federation provider: %q", cfg.Provider)
	}
}
