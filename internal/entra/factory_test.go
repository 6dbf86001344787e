package entra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrabridge/entra-bridge/internal/config"
	"github.com/entrabridge/entra-bridge/internal/credcache"
)

// the factory must satisfy the interface the caches consume
var _ credcache.CredentialFactory[Credential] = (*Factory)(nil)

func secretConfig() config.EntraConfig {
	return config.EntraConfig{
		TenantID:      "test-tenant",
		ClientID:      "test-client",
		ClientSecret:  "test-secret",
		AuthorityHost: "https://login.microsoftonline.com",
		Scopes:        []string{"https://graph.microsoft.com/.default"},
	}
}

func TestNewFactory_WithSecret(t *testing.T) {
	factory, err := NewFactory(secretConfig())

	require.NoError(t, err)
	assert.Equal(t, "test-tenant", factory.tenantID)
	assert.Equal(t, "test-client", factory.clientID)
}

func TestNewFactory_WithoutCredentialMaterial(t *testing.T) {
	cfg := secretConfig()
	cfg.ClientSecret = ""

	_, err := NewFactory(cfg)

	assert.ErrorContains(t, err, "no client secret or certificate")
}

func TestNewFactory_WithInvalidCertificate(t *testing.T) {
	cfg := secretConfig()
	cfg.ClientSecret = ""
	cfg.CertificatePEM = "not a certificate"

	_, err := NewFactory(cfg)

	assert.ErrorContains(t, err, "could not parse client certificate")
}

func TestClientFor_ReusesClients(t *testing.T) {
	factory, err := NewFactory(secretConfig())
	require.NoError(t, err)

	_, err = factory.clientFor("tenant-a", "client-a")
	require.NoError(t, err)
	_, err = factory.clientFor("tenant-a", "client-a")
	require.NoError(t, err)
	_, err = factory.clientFor("tenant-b", "client-a")
	require.NoError(t, err)

	assert.Len(t, factory.clients, 2)
}
