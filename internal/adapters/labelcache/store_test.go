package labelcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

func TestSaveAndLoadLabelSources(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "labelers.toml"))

	sources := []domain.DID{"did:plc:one", "did:plc:two"}
	require.NoError(t, store.SaveLabelSources(context.Background(), "did:plc:A", sources))

	got, err := store.LabelSources(context.Background(), "did:plc:A")
	require.NoError(t, err)
	assert.Equal(t, sources, got)

	missing, err := store.LabelSources(context.Background(), "did:plc:unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveKeepsOtherAccounts(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "labelers.toml"))

	require.NoError(t, store.SaveLabelSources(context.Background(), "did:plc:A", []domain.DID{"did:plc:one"}))
	require.NoError(t, store.SaveLabelSources(context.Background(), "did:plc:B", []domain.DID{"did:plc:two"}))

	got, err := store.LabelSources(context.Background(), "did:plc:A")
	require.NoError(t, err)
	assert.Equal(t, []domain.DID{"did:plc:one"}, got)
}
