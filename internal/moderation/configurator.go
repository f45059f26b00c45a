// Package moderation decides which label sources a protocol client applies
// for a given account. Everything here is best effort: a failed lookup
// degrades to the default source, never to a broken session.
package moderation

import (
	"context"

	"pkt.systems/pslog"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

const (
	// DefaultLabelSource is the baseline moderation authority applied to
	// every ordinary account.
	DefaultLabelSource = domain.DID("did:plc:ar7c4by46qjdydhdevvrndac")
	// DefaultTestAuthorityHandle is the moderation authority used for
	// internal test identities, resolved to a DID at configure time.
	DefaultTestAuthorityHandle = "mod-authority.test"
)

type Config struct {
	DefaultLabelSource  domain.DID
	TestAuthorityHandle string
}

func (c *Config) applyDefaults() {
	if c.DefaultLabelSource == "" {
		c.DefaultLabelSource = DefaultLabelSource
	}
	if c.TestAuthorityHandle == "" {
		c.TestAuthorityHandle = DefaultTestAuthorityHandle
	}
}

type Configurator struct {
	resolver ports.HandleResolver
	cache    ports.LabelSourceCache
	cfg      Config
}

func NewConfigurator(resolver ports.HandleResolver, cache ports.LabelSourceCache, cfg Config) *Configurator {
	cfg.applyDefaults()
	return &Configurator{resolver: resolver, cache: cache, cfg: cfg}
}

// Configure installs label sources on the client for the given account. It
// runs before network authentication completes and is not re-run on
// credential refresh.
func (c *Configurator) Configure(ctx context.Context, client ports.ProtocolClient, account domain.Account) {
	log := pslog.Ctx(ctx).With("did", string(account.DID))

	if domain.IsTestAccount(account) {
		if did, err := c.resolver.ResolveHandle(ctx, account.Service, c.cfg.TestAuthorityHandle); err == nil && did != "" {
			// Test identities get the test authority as their sole source.
			client.SetDefaultLabelSource(did)
			return
		} else if err != nil {
			log.Debug("test moderation authority unresolved", "handle", c.cfg.TestAuthorityHandle, "err", err)
		}
	}

	client.SetDefaultLabelSource(c.cfg.DefaultLabelSource)

	if c.cache == nil || account.DID == "" {
		return
	}

	sources, err := c.cache.LabelSources(ctx, account.DID)
	if err != nil {
		log.Debug("custom label sources unavailable", "err", err)
		return
	}

	extra := make([]domain.DID, 0, len(sources))
	for _, source := range sources {
		if source == c.cfg.DefaultLabelSource || source == "" {
			continue
		}
		extra = append(extra, source)
	}
	if len(extra) > 0 {
		client.AddLabelSources(extra)
	}
}
