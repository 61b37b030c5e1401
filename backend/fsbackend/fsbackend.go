// Package fsbackend contains an implementation of the backend.Backend
// interface that stores everything on a filesystem, through afero.Fs
package fsbackend

import (
	"path/filepath"
	"sync"

	"github.com/mycroft/mg/backend"
	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/packfile"
	"github.com/mycroft/mg/internal/cache"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/mycroft/mg/internal/syncutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// defaultCacheSize is the number of objects kept in the in-memory LRU
const defaultCacheSize = 128

// Backend is a backend.Backend implementation that uses a filesystem
// (real or in-memory) to store data
type Backend struct {
	root string
	fs   afero.Fs

	objectMu *syncutil.NamedMutex
	cache    *cache.LRU

	looseObjects sync.Map // ginternals.Oid -> struct{}

	packMu      sync.RWMutex
	packfiles   map[ginternals.Oid]*packfile.Pack
	packsLoaded bool
}

// New returns a new Backend rooted at dotGitPath
func New(fs afero.Fs, dotGitPath string) *Backend {
	return &Backend{
		root:      dotGitPath,
		fs:        fs,
		objectMu:  syncutil.NewNamedMutex(64),
		cache:     cache.NewLRU(defaultCacheSize),
		packfiles: map[ginternals.Oid]*packfile.Pack{},
	}
}

// Init initializes a repository's metadata directory: the directory
// layout, the default config, and the description file
func (b *Backend) Init() error {
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(fullPath, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	descPath := filepath.Join(b.root, gitpath.DescriptionPath)
	desc := []byte("Unnamed repository; edit this file 'description' to name the repository.\n")
	if err := afero.WriteFile(b.fs, descPath, desc, 0o644); err != nil {
		return xerrors.Errorf("could not create file %s: %w", descPath, err)
	}

	if err := b.writeConfig(ginternals.DefaultConfig()); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return nil
}

// Config loads the repository configuration from disk
func (b *Backend) Config() (*ginternals.Config, error) {
	data, err := afero.ReadFile(b.fs, filepath.Join(b.root, gitpath.ConfigPath))
	if err != nil {
		return nil, xerrors.Errorf("could not read config: %w", err)
	}
	cfg, err := ginternals.LoadConfigBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("could not parse config: %w", err)
	}
	return cfg, nil
}

// writeConfig persists cfg to the repository's config file
func (b *Backend) writeConfig(cfg *ginternals.Config) error {
	data, err := cfg.Bytes()
	if err != nil {
		return xerrors.Errorf("could not render config: %w", err)
	}
	if err := afero.WriteFile(b.fs, filepath.Join(b.root, gitpath.ConfigPath), data, 0o644); err != nil {
		return xerrors.Errorf("could not write config: %w", err)
	}
	return nil
}

// Close releases every packfile handle opened by this backend
func (b *Backend) Close() error {
	b.packMu.Lock()
	defer b.packMu.Unlock()

	for _, pack := range b.packfiles {
		if err := pack.Close(); err != nil {
			return xerrors.Errorf("could not close packfile: %w", err)
		}
	}
	return nil
}
