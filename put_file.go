package mg

import (
	"path/filepath"
	"strings"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// PutFile reads path's content and writes it to the object store as a
// blob, returning its id. path must canonicalize to somewhere under
// the repository's working tree; ErrPathOutsideRepo is returned
// otherwise.
func (r *Repository) PutFile(path string) (ginternals.Oid, error) {
	if r.wt == nil {
		return ginternals.NullOid, xerrors.Errorf("repository has no working tree: %w", ginternals.ErrPathOutsideRepo)
	}

	if err := r.CheckPathInRepo(path); err != nil {
		return ginternals.NullOid, err
	}

	content, err := afero.ReadFile(r.wt, path)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read %s: %w", path, err)
	}

	oid, err := r.dotGit.WriteObject(object.New(object.TypeBlob, content))
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not write object: %w", err)
	}

	return oid, nil
}

// CheckPathInRepo verifies that path, once made absolute and cleaned,
// falls under the repository root - rejecting paths that escape it
// via ".." segments or point elsewhere on the filesystem entirely.
func (r *Repository) CheckPathInRepo(path string) error {
	absRoot, err := filepath.Abs(r.repoRoot)
	if err != nil {
		return xerrors.Errorf("could not resolve repository root: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return xerrors.Errorf("could not resolve %s: %w", path, err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return xerrors.Errorf("%s: %w", path, ginternals.ErrPathOutsideRepo)
	}

	return nil
}
