package federation

import (
	"context"
	"fmt"
)

// Config selects and configures a provider. Exactly one of the nested
// configs must be set, matching Kind.
type Config struct {
	Kind   Kind
	Remote *RemoteConfig
	OIDC   *OIDCConfig
	SAML   *SAMLConfig
}

// NewProvider builds the provider implementation named by config.Kind.
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	switch config.Kind {
	case KindRemote:
		if config.Remote == nil {
			return nil, fmt.Errorf("remote config is required for the remote provider")
		}
		return NewRemoteProvider(*config.Remote)
	case KindOIDC:
		if config.OIDC == nil {
			return nil, fmt.Errorf("oidc config is required for the oidc provider")
		}
		return NewOIDCProvider(ctx, *config.OIDC)
	case KindSAML:
		if config.SAML == nil {
			return nil, fmt.Errorf("saml config is required for the saml provider")
		}
		return NewSAMLProvider(*config.SAML)
	default:
		return nil, fmt.Errorf("unsupported provider kind: %q", config.Kind)
	}
}
