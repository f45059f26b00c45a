package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

type labelRecorder struct {
	ports.ProtocolClient

	defaultSource domain.DID
	extra         []domain.DID
}

func (c *labelRecorder) SetDefaultLabelSource(did domain.DID) { c.defaultSource = did }

func (c *labelRecorder) AddLabelSources(dids []domain.DID) {
	c.extra = append(c.extra, dids...)
}

type fakeResolver struct {
	did   domain.DID
	err   error
	calls int
}

func (r *fakeResolver) ResolveHandle(_ context.Context, _, _ string) (domain.DID, error) {
	r.calls++
	return r.did, r.err
}

type fakeLabelCache struct {
	sources []domain.DID
	err     error
}

func (c *fakeLabelCache) LabelSources(_ context.Context, _ domain.DID) ([]domain.DID, error) {
	return c.sources, c.err
}

func (c *fakeLabelCache) SaveLabelSources(_ context.Context, _ domain.DID, _ []domain.DID) error {
	return nil
}

func TestConfigureTestAccountUsesResolvedAuthorityAsSoleSource(t *testing.T) {
	resolver := &fakeResolver{did: "did:plc:modauth"}
	cache := &fakeLabelCache{sources: []domain.DID{"did:plc:custom"}}
	configurator := NewConfigurator(resolver, cache, Config{})

	client := &labelRecorder{}
	configurator.Configure(context.Background(), client, domain.Account{
		Service: "https://ex.test", DID: "did:plc:A", Handle: "alice.test",
	})

	assert.Equal(t, domain.DID("did:plc:modauth"), client.defaultSource)
	assert.Empty(t, client.extra, "test identities get the authority as their sole source")
	assert.Equal(t, 1, resolver.calls)
}

func TestConfigureTestAccountFallsBackToDefaultWhenResolutionFails(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("resolver down")}
	configurator := NewConfigurator(resolver, &fakeLabelCache{}, Config{})

	client := &labelRecorder{}
	configurator.Configure(context.Background(), client, domain.Account{
		Service: "https://ex.test", DID: "did:plc:A", Handle: "alice.test",
	})

	assert.Equal(t, DefaultLabelSource, client.defaultSource)
}

func TestConfigureOrdinaryAccountAttachesCustomSourcesWithoutDefaultDuplicate(t *testing.T) {
	cache := &fakeLabelCache{sources: []domain.DID{DefaultLabelSource, "did:plc:custom1", "did:plc:custom2"}}
	resolver := &fakeResolver{}
	configurator := NewConfigurator(resolver, cache, Config{})

	client := &labelRecorder{}
	configurator.Configure(context.Background(), client, domain.Account{
		Service: "https://ex.test", DID: "did:plc:A", Handle: "alice.example.com",
	})

	assert.Equal(t, DefaultLabelSource, client.defaultSource)
	require.Len(t, client.extra, 2)
	assert.NotContains(t, client.extra, DefaultLabelSource)
	assert.Equal(t, 0, resolver.calls, "ordinary accounts never resolve the test authority")
}

func TestConfigureSwallowsCacheFailure(t *testing.T) {
	cache := &fakeLabelCache{err: errors.New("cache corrupt")}
	configurator := NewConfigurator(&fakeResolver{}, cache, Config{})

	client := &labelRecorder{}
	configurator.Configure(context.Background(), client, domain.Account{
		Service: "https://ex.test", DID: "did:plc:A", Handle: "alice.example.com",
	})

	assert.Equal(t, DefaultLabelSource, client.defaultSource)
	assert.Empty(t, client.extra)
}
