package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/corpauth/gateway/pkg/observability"
)

// Deployment environments. Production refuses the synthetic fallback.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Federation    FederationConfig
	Stores        StoreConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes and scrapes)
	HealthPort string

	// Frontend URLs the SSO callback redirects to.
	LoginURL     string
	DashboardURL string
}

// AuthConfig holds token, session and fallback policy settings.
type AuthConfig struct {
	Environment string

	TokenSecret string
	TokenTTL    time.Duration
	SessionTTL  time.Duration

	DefaultTenant string

	AllowSyntheticFallback bool
	FallbackSubjectID      string
	FallbackTenantID       string
	FallbackRole           string
	FallbackDisplayName    string
}

// FederationConfig selects and configures the identity provider.
type FederationConfig struct {
	// Provider is remote, oidc, saml, or empty to disable federation.
	Provider string

	// remote profile API
	APIBaseURL string
	ClientID   string
	APIKey     string

	// OIDC
	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// SAML
	SAMLIdPSSOURL   string
	SAMLIdPIssuer   string
	SAMLSPIssuer    string
	SAMLAudienceURI string
	SAMLCallbackURL string
	SAMLIdPCertPath string

	// ConnectionMappingPath points at the YAML connection mapping file.
	ConnectionMappingPath string
}

// StoreConfig selects the backing stores.
type StoreConfig struct {
	// UserStore is memory or postgres.
	UserStore   string
	PostgresURL string

	// SessionStore is memory or redis.
	SessionStore  string
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Federation:    loadFederationConfig(),
		Stores:        loadStoreConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEWAY_HOST", "0.0.0.0"),
		Port:            getEnv("GATEWAY_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEWAY_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEWAY_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEWAY_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEWAY_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("GATEWAY_HEALTH_PORT", "9090"),
		LoginURL:        getEnv("GATEWAY_FRONTEND_LOGIN_URL", "http://localhost:3000/login"),
		DashboardURL:    getEnv("GATEWAY_FRONTEND_DASHBOARD_URL", "http://localhost:3000/dashboard"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Environment:            getEnv("GATEWAY_ENVIRONMENT", EnvDevelopment),
		TokenSecret:            getEnv("GATEWAY_TOKEN_SECRET", ""),
		TokenTTL:               getEnvDuration("GATEWAY_TOKEN_TTL", time.Hour),
		SessionTTL:             getEnvDuration("GATEWAY_SESSION_TTL", 8*time.Hour),
		DefaultTenant:          getEnv("GATEWAY_DEFAULT_TENANT", "default_corp"),
		AllowSyntheticFallback: getEnvBool("GATEWAY_ALLOW_SYNTHETIC_FALLBACK", false),
		FallbackSubjectID:      getEnv("GATEWAY_FALLBACK_SUBJECT", "demo@default_corp.test"),
		FallbackTenantID:       getEnv("GATEWAY_FALLBACK_TENANT", "default_corp"),
		FallbackRole:           getEnv("GATEWAY_FALLBACK_ROLE", "org_user"),
		FallbackDisplayName:    getEnv("GATEWAY_FALLBACK_DISPLAY_NAME", "Demo User"),
	}
}

func loadFederationConfig() FederationConfig {
	return FederationConfig{
		Provider:              getEnv("GATEWAY_FEDERATION_PROVIDER", ""),
		APIBaseURL:            getEnv("GATEWAY_FEDERATION_API_BASE_URL", ""),
		ClientID:              getEnv("GATEWAY_FEDERATION_CLIENT_ID", ""),
		APIKey:                getEnv("GATEWAY_FEDERATION_API_KEY", ""),
		OIDCIssuerURL:         getEnv("GATEWAY_OIDC_ISSUER_URL", ""),
		OIDCClientID:          getEnv("GATEWAY_OIDC_CLIENT_ID", ""),
		OIDCClientSecret:      getEnv("GATEWAY_OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:       getEnv("GATEWAY_OIDC_REDIRECT_URL", ""),
		SAMLIdPSSOURL:         getEnv("GATEWAY_SAML_IDP_SSO_URL", ""),
		SAMLIdPIssuer:         getEnv("GATEWAY_SAML_IDP_ISSUER", ""),
		SAMLSPIssuer:          getEnv("GATEWAY_SAML_SP_ISSUER", ""),
		SAMLAudienceURI:       getEnv("GATEWAY_SAML_AUDIENCE_URI", ""),
		SAMLCallbackURL:       getEnv("GATEWAY_SAML_CALLBACK_URL", ""),
		SAMLIdPCertPath:       getEnv("GATEWAY_SAML_IDP_CERT_PATH", ""),
		ConnectionMappingPath: getEnv("GATEWAY_CONNECTION_MAPPING_PATH", ""),
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		UserStore:     getEnv("GATEWAY_USER_STORE", "memory"),
		PostgresURL:   getEnv("GATEWAY_POSTGRES_URL", ""),
		SessionStore:  getEnv("GATEWAY_SESSION_STORE", "memory"),
		RedisURL:      getEnv("GATEWAY_REDIS_URL", ""),
		RedisPassword: getEnv("GATEWAY_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("GATEWAY_REDIS_DB", 0),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("GATEWAY_LOG_LEVEL", "info"))),
		MetricsEnabled:     getEnvBool("GATEWAY_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("GATEWAY_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("GATEWAY_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("GATEWAY_OTEL_SERVICE_NAME", "identity-gateway"),
		OTelServiceVersion: getEnv("GATEWAY_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("GATEWAY_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("GATEWAY_TOKEN_SECRET is required")
	}
	switch c.Auth.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.Auth.Environment)
	}
	// refuse rather than silently ignore: a production deployment that asks
	// for the synthetic fallback is misconfigured
	if c.Auth.Environment == EnvProduction && c.Auth.AllowSyntheticFallback {
		return fmt.Errorf("synthetic fallback must not be enabled in production")
	}

	switch c.Federation.Provider {
	case "":
	case "remote":
		if c.Federation.APIBaseURL == "" || c.Federation.ClientID == "" || c.Federation.APIKey == "" {
			return fmt.Errorf("remote federation requires API base URL, client ID, and API key")
		}
	case "oidc":
		if c.Federation.OIDCIssuerURL == "" || c.Federation.OIDCClientID == "" || c.Federation.OIDCClientSecret == "" {
			return fmt.Errorf("oidc federation requires issuer URL and client credentials")
		}
	case "saml":
		if c.Federation.SAMLIdPCertPath == "" {
			return fmt.Errorf("saml federation requires the IdP certificate path")
		}
	default:
		return fmt.Errorf("invalid federation provider: %s (must be remote, oidc, or saml)", c.Federation.Provider)
	}

	switch c.Stores.UserStore {
	case "memory":
	case "postgres":
		if c.Stores.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the postgres user store")
		}
	default:
		return fmt.Errorf("invalid user store: %s (must be memory or postgres)", c.Stores.UserStore)
	}

	switch c.Stores.SessionStore {
	case "memory":
	case "redis":
		if c.Stores.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis session store")
		}
	default:
		return fmt.Errorf("invalid session store: %s (must be memory or redis)", c.Stores.SessionStore)
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when tracing is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
