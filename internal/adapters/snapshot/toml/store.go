// Package toml persists the session snapshot as a versioned TOML file and
// watches it for writes made by other instances of the application.
package toml

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

const (
	configName       = "config"
	configType       = "toml"
	snapshotPathKey  = "snapshot.path"
	snapshotFileMode = 0o600
	snapshotDirMode  = 0o700
	configDir        = ".atp"
	snapshotFile     = "sessions.toml"
	tempFilePattern  = ".sessions-*.toml.tmp"
)

// Store is a ports.SnapshotStore backed by a single TOML file. Writes are
// atomic (temp file + rename); Subscribe delivers snapshots written by
// other processes, with this instance's own writes filtered out by digest.
type Store struct {
	path string
	mu   *sync.RWMutex

	digestMu   sync.Mutex
	lastDigest [sha256.Size]byte
	hasDigest  bool
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SnapshotStore = (*Store)(nil)

// NewStore resolves the snapshot path from viper configuration
// (~/.atp/config.toml, key snapshot.path) with a sensible default.
func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDir, snapshotFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetDefault(snapshotPathKey, defaultPath)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	path := cfg.GetString(snapshotPathKey)
	if path == "" {
		return nil, errors.New("snapshot path is empty")
	}

	return NewStoreAt(path)
}

// NewStoreAt builds a store on an explicit snapshot path.
func NewStoreAt(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Store{path: absPath, mu: lockForPath(absPath)}, nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// Read returns the persisted snapshot. A missing file is an empty
// snapshot, not an error.
func (s *Store) Read(ctx context.Context) (ports.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readSnapshot()
}

func (s *Store) readSnapshot() (ports.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ports.Snapshot{}, nil
		}
		return ports.Snapshot{}, fmt.Errorf("read snapshot file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return ports.Snapshot{}, fmt.Errorf("decode snapshot file: %w", err)
	}
	file.applyDefaults()
	if err := file.validateVersion(); err != nil {
		return ports.Snapshot{}, err
	}

	snapshot := ports.Snapshot{}
	for _, entry := range file.Accounts {
		snapshot.Accounts = append(snapshot.Accounts, fromEntry(entry))
	}

	// The current account is stored by DID and resolved against the
	// account list, so a subscriber can never observe one without the
	// other.
	if file.Current != "" {
		if account, ok := snapshot.Accounts.Find(domain.DID(file.Current)); ok {
			snapshot.Current = &account
		}
	}

	return snapshot, nil
}

// Write persists the snapshot atomically: accounts and the current-account
// designation land in one rename.
func (s *Store) Write(ctx context.Context, snapshot ports.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := fileSchema{Version: currentSchemaVersion}
	for _, account := range snapshot.Accounts {
		file.Accounts = append(file.Accounts, toEntry(account))
	}
	if did, ok := snapshot.CurrentDID(); ok {
		file.Current = string(did)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode snapshot file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rememberDigest(data)

	if err := os.MkdirAll(filepath.Dir(s.path), snapshotDirMode); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tempFile.Chmod(snapshotFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp snapshot file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp snapshot file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	cleanup = false

	return nil
}

func (s *Store) rememberDigest(data []byte) {
	s.digestMu.Lock()
	s.lastDigest = sha256.Sum256(data)
	s.hasDigest = true
	s.digestMu.Unlock()
}

// externalData reports whether the given file content came from another
// writer than this store instance.
func (s *Store) externalData(data []byte) bool {
	s.digestMu.Lock()
	defer s.digestMu.Unlock()
	if !s.hasDigest {
		return true
	}
	return sha256.Sum256(data) != s.lastDigest
}

// Subscribe watches the snapshot's directory (the file itself is replaced
// by rename on every write) and delivers snapshots written by other
// instances. The returned function cancels the subscription.
func (s *Store) Subscribe(onExternalUpdate func(ports.Snapshot)) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), snapshotDirMode); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create snapshot watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch snapshot directory: %w", err)
	}

	done := make(chan struct{})
	go s.watchLoop(watcher, done, onExternalUpdate)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = watcher.Close()
		})
	}
	return cancel, nil
}

func (s *Store) watchLoop(watcher *fsnotify.Watcher, done <-chan struct{}, onExternalUpdate func(ports.Snapshot)) {
	log := pslog.Ctx(context.Background()).With("path", s.path)

	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			s.handleChange(log, onExternalUpdate)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debug("snapshot watcher error", "err", err)
		}
	}
}

func (s *Store) handleChange(log pslog.Logger, onExternalUpdate func(ports.Snapshot)) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug("snapshot re-read failed", "err", err)
		}
		return
	}

	if !s.externalData(data) {
		return
	}

	s.mu.RLock()
	snapshot, err := s.readSnapshot()
	s.mu.RUnlock()
	if err != nil {
		log.Debug("external snapshot decode failed", "err", err)
		return
	}

	onExternalUpdate(snapshot)
}
