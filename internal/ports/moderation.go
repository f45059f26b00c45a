package ports

import (
	"context"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

// HandleResolver resolves a handle to its DID on a given service.
type HandleResolver interface {
	ResolveHandle(ctx context.Context, service, handle string) (domain.DID, error)
}

// LabelSourceCache is the local store of per-account custom label sources.
// Reads are best effort; a failed read degrades to the default source.
type LabelSourceCache interface {
	LabelSources(ctx context.Context, did domain.DID) ([]domain.DID, error)
	SaveLabelSources(ctx context.Context, did domain.DID, sources []domain.DID) error
}
