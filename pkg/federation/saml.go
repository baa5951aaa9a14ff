package federation

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"
)

// SAMLConfig configures SAML assertion validation.
type SAMLConfig struct {
	IdentityProviderSSOURL string
	IdentityProviderIssuer string
	ServiceProviderIssuer  string
	AudienceURI            string
	CallbackURL            string
	// IdentityProviderCert is the IdP signing certificate, PEM encoded.
	IdentityProviderCert string
}

// SAMLProvider validates signed SAML assertions delivered through the
// callback and maps their attributes into a Profile.
type SAMLProvider struct {
	sp *saml2.SAMLServiceProvider
}

// NewSAMLProvider parses the IdP certificate and prepares the service
// provider used for assertion validation.
func NewSAMLProvider(config SAMLConfig) (*SAMLProvider, error) {
	if config.IdentityProviderCert == "" {
		return nil, fmt.Errorf("identity provider certificate is required")
	}

	certBlock, _ := pem.Decode([]byte(config.IdentityProviderCert))
	if certBlock == nil {
		return nil, fmt.Errorf("decoding identity provider certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing identity provider certificate: %w", err)
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      config.IdentityProviderSSOURL,
		IdentityProviderIssuer:      config.IdentityProviderIssuer,
		ServiceProviderIssuer:       config.ServiceProviderIssuer,
		AssertionConsumerServiceURL: config.CallbackURL,
		AudienceURI:                 config.AudienceURI,
		IDPCertificateStore: &dsig.MemoryX509CertificateStore{
			Roots: []*x509.Certificate{cert},
		},
	}
	return &SAMLProvider{sp: sp}, nil
}

func (p *SAMLProvider) Kind() Kind {
	return KindSAML
}

// Attribute names looked for in assertions. IdP admins map their directory
// fields onto these during connection setup.
const (
	samlAttrEmail     = "email"
	samlAttrFirstName = "firstName"
	samlAttrLastName  = "lastName"
	samlAttrRole      = "role"
)

// ExchangeCode treats code as a base64-encoded SAML response, validates its
// signature and conditions, and maps the assertion attributes.
func (p *SAMLProvider) ExchangeCode(_ context.Context, code string) (*Profile, error) {
	assertionBytes, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return nil, &ProviderError{Message: "decoding SAML response", Err: err}
	}

	info, err := p.sp.RetrieveAssertionInfo(string(assertionBytes))
	if err != nil {
		return nil, &ProviderError{Message: "validating SAML assertion", Err: err}
	}
	if info.WarningInfo != nil {
		if info.WarningInfo.InvalidTime {
			return nil, &ProviderError{Message: "SAML assertion outside its validity window"}
		}
		if info.WarningInfo.NotInAudience {
			return nil, &ProviderError{Message: "SAML assertion not for this audience"}
		}
	}

	profile := &Profile{
		SubjectID:      info.NameID,
		ConnectionType: "SAML",
		RawAttributes:  make(map[string]string),
	}
	for _, attr := range info.Values {
		if len(attr.Values) == 0 {
			continue
		}
		value := attr.Values[0].Value
		profile.RawAttributes[attr.Name] = value
		switch attr.Name {
		case samlAttrEmail:
			profile.Email = value
		case samlAttrFirstName:
			profile.FirstName = value
		case samlAttrLastName:
			profile.LastName = value
		case samlAttrRole:
			profile.RoleSlug = value
		}
	}

	if profile.Email == "" {
		profile.Email = info.NameID
	}
	if profile.SubjectID == "" {
		profile.SubjectID = profile.Email
	}
	if profile.SubjectID == "" {
		return nil, &ProviderError{Message: "SAML assertion missing subject"}
	}
	return profile, nil
}
