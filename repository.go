// Package mg implements a minimal content-addressed version control
// system: an object store, a staging index, a linear commit history
// with branch refs, and enough of the pack/wire protocol to read what
// a server sends back.
package mg

import (
	"errors"
	"path/filepath"

	"github.com/mycroft/mg/backend"
	"github.com/mycroft/mg/backend/fsbackend"
	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Errors returned while initializing or opening a repository
var (
	ErrRepositoryNotExist           = errors.New("repository does not exist")
	ErrRepositoryExists             = errors.New("repository already exists")
	ErrRepositoryUnsupportedVersion = errors.New("repository format version not supported")
)

// Repository represents a single repository: its metadata directory
// (object store, refs, config) and, unless bare, the working tree it
// tracks.
type Repository struct {
	dotGitPath string
	dotGit     backend.Backend
	repoRoot   string
	wt         afero.Fs
}

// InitOptions customizes InitRepositoryWithOptions
type InitOptions struct {
	// IsBare, if true, skips creating/tracking a working tree: only
	// the metadata directory is created, directly at repoPath.
	IsBare bool
	// Backend overrides the object/ref store. Defaults to fsbackend
	// rooted at the metadata directory.
	Backend backend.Backend
	// WorkingTree overrides the filesystem backing the working tree.
	// Defaults to the real OS filesystem. Unused when IsBare is true.
	WorkingTree afero.Fs
}

// InitRepository creates a new repository at repoPath, with a working
// tree and a .git metadata directory inside it
func InitRepository(repoPath string) (*Repository, error) {
	return InitRepositoryWithOptions(repoPath, InitOptions{})
}

// InitRepositoryWithOptions creates a new repository at repoPath
func InitRepositoryWithOptions(repoPath string, opts InitOptions) (*Repository, error) {
	dotGitPath := repoPath
	if !opts.IsBare {
		dotGitPath = filepath.Join(repoPath, gitpath.DotGitPath)
	}

	r := &Repository{repoRoot: repoPath, dotGitPath: dotGitPath}

	r.dotGit = opts.Backend
	if r.dotGit == nil {
		r.dotGit = fsbackend.New(afero.NewOsFs(), dotGitPath)
	}

	if !opts.IsBare {
		r.wt = opts.WorkingTree
		if r.wt == nil {
			r.wt = afero.NewOsFs()
		}
	}

	if err := r.dotGit.Init(); err != nil {
		return nil, xerrors.Errorf("could not initialize backend: %w", err)
	}

	ref := ginternals.NewSymbolicReference(ginternals.Head, "refs/heads/"+ginternals.Main)
	if err := r.dotGit.WriteReferenceSafe(ref); err != nil {
		if errors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrRepositoryExists
		}
		return nil, xerrors.Errorf("could not write HEAD: %w", err)
	}

	return r, nil
}

// OpenOptions customizes OpenRepositoryWithOptions
type OpenOptions struct {
	IsBare      bool
	Backend     backend.Backend
	WorkingTree afero.Fs
}

// OpenRepository loads an existing repository from repoPath
func OpenRepository(repoPath string) (*Repository, error) {
	return OpenRepositoryWithOptions(repoPath, OpenOptions{})
}

// OpenRepositoryWithOptions loads an existing repository from repoPath
func OpenRepositoryWithOptions(repoPath string, opts OpenOptions) (*Repository, error) {
	dotGitPath := repoPath
	if !opts.IsBare {
		dotGitPath = filepath.Join(repoPath, gitpath.DotGitPath)
	}

	r := &Repository{repoRoot: repoPath, dotGitPath: dotGitPath}

	r.dotGit = opts.Backend
	if r.dotGit == nil {
		r.dotGit = fsbackend.New(afero.NewOsFs(), dotGitPath)
	}
	if !opts.IsBare {
		r.wt = opts.WorkingTree
		if r.wt == nil {
			r.wt = afero.NewOsFs()
		}
	}

	// there's no reliable way to check a backend "exists" generically,
	// so we use HEAD as a proxy: every repository has one. Read it one
	// hop instead of fully resolving it - on a freshly-initialized
	// repository HEAD's branch target has no commit yet, and a full
	// resolve would fail even though the repository plainly exists.
	if _, err := r.dotGit.SymbolicTarget(ginternals.Head); err != nil {
		return nil, ErrRepositoryNotExist
	}

	cfg, err := r.dotGit.Config()
	if err != nil {
		return nil, xerrors.Errorf("could not read config: %w", err)
	}
	if v := cfg.String(ginternals.CfgCore, ginternals.CfgCoreFormatVersion, "0"); v != "0" {
		return nil, ErrRepositoryUnsupportedVersion
	}

	return r, nil
}

// IsBare returns whether this repository has no working tree
func (r *Repository) IsBare() bool {
	return r.wt == nil
}

// Backend returns the underlying object/ref store
func (r *Repository) Backend() backend.Backend {
	return r.dotGit
}

// Close releases the resources held by the repository's backend
func (r *Repository) Close() error {
	return r.dotGit.Close()
}
