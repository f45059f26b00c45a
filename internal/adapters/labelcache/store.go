// Package labelcache stores each account's custom label-source list in a
// small TOML file next to the session snapshot.
package labelcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

const (
	cacheFileMode = 0o600
	cacheDirMode  = 0o700
)

type fileSchema struct {
	Sources map[string][]string `toml:"sources,omitempty"`
}

type Store struct {
	path string
	mu   sync.RWMutex
}

var _ ports.LabelSourceCache = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

func (s *Store) LabelSources(ctx context.Context, did domain.DID) ([]domain.DID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	raw, ok := file.Sources[string(did)]
	if !ok {
		return nil, nil
	}
	sources := make([]domain.DID, 0, len(raw))
	for _, source := range raw {
		sources = append(sources, domain.DID(source))
	}
	return sources, nil
}

func (s *Store) SaveLabelSources(ctx context.Context, did domain.DID, sources []domain.DID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}
	if file.Sources == nil {
		file.Sources = map[string][]string{}
	}

	raw := make([]string, 0, len(sources))
	for _, source := range sources {
		raw = append(raw, string(source))
	}
	file.Sources[string(did)] = raw

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode label cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), cacheDirMode); err != nil {
		return fmt.Errorf("create label cache directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, cacheFileMode); err != nil {
		return fmt.Errorf("write label cache: %w", err)
	}
	return nil
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read label cache: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode label cache: %w", err)
	}
	return file, nil
}
