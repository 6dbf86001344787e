// Package entra mints credentials against Microsoft Entra ID using the MSAL
// confidential client. It implements the factory interface consumed by the
// credential caches; it performs no caching of its own beyond reusing the
// per-tenant confidential clients, which are expensive to construct.
package entra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/rs/zerolog/log"

	"github.com/entrabridge/entra-bridge/internal/config"
)

// Credential is an access token minted for an outbound tool call, together
// with the instant the issuer stops honouring it.
type Credential struct {
	Token     string
	ExpiresOn time.Time
}

// Factory creates app and on-behalf-of credentials using a single
// confidential client identity (secret or certificate) that may be trusted
// across tenants.
type Factory struct {
	authorityHost string
	tenantID      string
	clientID      string
	scopes        []string
	cred          confidential.Credential

	mu      sync.Mutex
	clients map[string]confidential.Client
}

// NewFactory builds a factory from configuration. The client credential is
// taken from the configured secret, or from the certificate when no secret
// is present.
func NewFactory(cfg config.EntraConfig) (*Factory, error) {
	cred, err := clientCredential(cfg)
	if err != nil {
		return nil, err
	}

	return &Factory{
		authorityHost: cfg.AuthorityHost,
		tenantID:      cfg.TenantID,
		clientID:      cfg.ClientID,
		scopes:        cfg.Scopes,
		cred:          cred,
		clients:       map[string]confidential.Client{},
	}, nil
}

func clientCredential(cfg config.EntraConfig) (confidential.Credential, error) {
	if cfg.ClientSecret != "" {
		cred, err := confidential.NewCredFromSecret(cfg.ClientSecret)
		if err != nil {
			return confidential.Credential{}, fmt.Errorf("could not create secret credential: %w", err)
		}
		return cred, nil
	}

	if cfg.CertificatePEM != "" {
		certs, key, err := confidential.CertFromPEM([]byte(cfg.CertificatePEM), "")
		if err != nil {
			return confidential.Credential{}, fmt.Errorf("could not parse client certificate: %w", err)
		}

		cred, err := confidential.NewCredFromCert(certs, key)
		if err != nil {
			return confidential.Credential{}, fmt.Errorf("could not create certificate credential: %w", err)
		}
		return cred, nil
	}

	return confidential.Credential{}, fmt.Errorf("no client secret or certificate configured")
}

// CreateAppCredential acquires a client-credentials token for the
// application's identity in the given tenant.
func (f *Factory) CreateAppCredential(ctx context.Context, tenantID, clientID string) (Credential, error) {
	client, err := f.clientFor(tenantID, clientID)
	if err != nil {
		return Credential{}, err
	}

	res, err := client.AcquireTokenByCredential(ctx, f.scopes)
	if err != nil {
		return Credential{}, fmt.Errorf("could not acquire application token: %w", err)
	}

	log.Info().Str("tenant", tenantID).Time("expiry", res.ExpiresOn).
		Msg("application credential acquired")

	return Credential{Token: res.AccessToken, ExpiresOn: res.ExpiresOn}, nil
}

// CreateOBOCredential exchanges a user assertion for a token acting on
// behalf of the asserted user, using the factory's own configured identity.
func (f *Factory) CreateOBOCredential(ctx context.Context, assertion string) (Credential, error) {
	client, err := f.clientFor(f.tenantID, f.clientID)
	if err != nil {
		return Credential{}, err
	}

	res, err := client.AcquireTokenOnBehalfOf(ctx, assertion, f.scopes)
	if err != nil {
		return Credential{}, fmt.Errorf("could not acquire on-behalf-of token: %w", err)
	}

	log.Info().Time("expiry", res.ExpiresOn).Msg("on-behalf-of credential acquired")

	return Credential{Token: res.AccessToken, ExpiresOn: res.ExpiresOn}, nil
}

// clientFor returns the confidential client for the authority implied by the
// (tenant, client) identity, constructing it on first use. The MSAL client
// is safe for concurrent use once built.
func (f *Factory) clientFor(tenantID, clientID string) (confidential.Client, error) {
	key := tenantID + "/" + clientID

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[key]; ok {
		return client, nil
	}

	authority := fmt.Sprintf("%s/%s", f.authorityHost, tenantID)

	client, err := confidential.New(authority, clientID, f.cred)
	if err != nil {
		return confidential.Client{}, fmt.Errorf("could not create confidential client: %w", err)
	}

	f.clients[key] = client
	return client, nil
}
