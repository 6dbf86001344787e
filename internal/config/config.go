package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Cache CacheConfig
	Entra EntraConfig
}

// CacheConfig specifies the credential cache windows. The defaults match the
// assumed validity of an application credential (12 hours) with a 5 minute
// safety margin.
type CacheConfig struct {
	AppTTLSeconds int `env:"CREDENTIAL_CACHE_APP_TTL_SECS, default=43200"`
	BufferSeconds int `env:"CREDENTIAL_CACHE_BUFFER_SECS, default=300"`
}

// EntraConfig specifies the confidential client identity used to mint
// credentials. One of ClientSecret or CertificatePEM must be set.
type EntraConfig struct {
	TenantID string `env:"ENTRA_TENANT_ID, required"`
	ClientID string `env:"ENTRA_CLIENT_ID, required"`

	ClientSecret   string `env:"ENTRA_CLIENT_SECRET"`
	CertificatePEM string `env:"ENTRA_CLIENT_CERTIFICATE_PEM"`

	// AuthorityHost is the base URL of the identity provider; the tenant is
	// appended per request identity.
	AuthorityHost string `env:"ENTRA_AUTHORITY_HOST, default=https://login.microsoftonline.com"`

	// Scopes requested for minted credentials.
	Scopes []string `env:"ENTRA_SCOPES, default=https://graph.microsoft.com/.default"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.Entra.ClientSecret == "" && c.Entra.CertificatePEM == "" {
		return fmt.Errorf("one of ENTRA_CLIENT_SECRET or ENTRA_CLIENT_CERTIFICATE_PEM is required")
	}

	if c.Cache.AppTTLSeconds <= c.Cache.BufferSeconds {
		return fmt.Errorf("CREDENTIAL_CACHE_APP_TTL_SECS must exceed CREDENTIAL_CACHE_BUFFER_SECS")
	}

	return nil
}
