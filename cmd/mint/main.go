// This command is only used for local testing: it wires the credential
// factory and caches the way a host process would, acquires a credential and
// prints its expiry. Useful for checking Entra app registration and cache
// behaviour without a running agent host.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"

	"github.com/entrabridge/entra-bridge/internal/config"
	"github.com/entrabridge/entra-bridge/internal/credcache"
	"github.com/entrabridge/entra-bridge/internal/entra"
	"github.com/entrabridge/entra-bridge/internal/token"
)

type utilConfig struct {
	// Assertion, when set, is exchanged for an on-behalf-of credential in
	// addition to the application credential.
	Assertion string `env:"UTIL_ASSERTION"`

	// Repeat acquires each credential twice to demonstrate the cache hit.
	Repeat bool `env:"UTIL_REPEAT, default=true"`
}

func main() {
	configureLogging()

	if err := run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("mint failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	util := utilConfig{}
	if err := envconfig.Process(ctx, &util); err != nil {
		return fmt.Errorf("utility configuration load failed: %w", err)
	}

	factory, err := entra.NewFactory(cfg.Entra)
	if err != nil {
		return fmt.Errorf("factory configuration failed: %w", err)
	}

	appCache := credcache.NewAppCache[entra.Credential](
		factory,
		credcache.WithAppTTL[entra.Credential](
			time.Duration(cfg.Cache.AppTTLSeconds)*time.Second,
			time.Duration(cfg.Cache.BufferSeconds)*time.Second,
		),
	)

	if err := mintApp(ctx, appCache, cfg, util.Repeat); err != nil {
		return err
	}

	if util.Assertion != "" {
		oboCache := credcache.NewOBOCache[entra.Credential](
			factory,
			token.NewJWTParser(),
			credcache.WithOBOBuffer[entra.Credential](
				time.Duration(cfg.Cache.BufferSeconds)*time.Second,
			),
		)

		if err := mintOBO(ctx, oboCache, util.Assertion, util.Repeat); err != nil {
			return err
		}
	}

	return nil
}

func mintApp(ctx context.Context, cache *credcache.AppCache[entra.Credential], cfg config.Config, repeat bool) error {
	cred, err := cache.GetCredential(ctx, cfg.Entra.TenantID, cfg.Entra.ClientID)
	if err != nil {
		return fmt.Errorf("application credential acquisition failed: %w", err)
	}

	log.Info().Time("expiry", cred.ExpiresOn).Msg("application credential minted")

	if repeat {
		again, err := cache.GetCredential(ctx, cfg.Entra.TenantID, cfg.Entra.ClientID)
		if err != nil {
			return fmt.Errorf("cached application credential read failed: %w", err)
		}
		log.Info().Bool("same_token", again.Token == cred.Token).
			Msg("second acquisition served from cache")
	}

	fmt.Printf("app token expires %s\n", cred.ExpiresOn.Format(time.RFC3339))
	return nil
}

func mintOBO(ctx context.Context, cache *credcache.OBOCache[entra.Credential], assertion string, repeat bool) error {
	cred, err := cache.GetCredential(ctx, assertion)
	if err != nil {
		return fmt.Errorf("on-behalf-of credential acquisition failed: %w", err)
	}

	log.Info().Time("expiry", cred.ExpiresOn).Msg("on-behalf-of credential minted")

	if repeat {
		if _, err := cache.GetCredential(ctx, assertion); err != nil {
			return fmt.Errorf("cached on-behalf-of credential read failed: %w", err)
		}
	}

	fmt.Printf("obo token expires %s\n", cred.ExpiresOn.Format(time.RFC3339))
	return nil
}

func configureLogging() {
	log.Logger = log.
		Output(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel)

	zerolog.DefaultContextLogger = &log.Logger
}
