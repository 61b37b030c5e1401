package fsbackend

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Index reads the staging index from disk. A repository with no
// staged changes yet has no index file, in which case an empty one is
// returned.
func (b *Backend) Index() (*ginternals.Index, error) {
	p := filepath.Join(b.root, gitpath.IndexPath)

	f, err := b.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return ginternals.NewIndex(), nil
		}
		return nil, xerrors.Errorf("could not open index at %s: %w", p, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	idx, err := ginternals.ReadIndex(f)
	if err != nil {
		return nil, xerrors.Errorf("could not parse index at %s: %w", p, err)
	}
	return idx, nil
}

// WriteIndex persists the given staging index to disk
func (b *Backend) WriteIndex(idx *ginternals.Index) error {
	p := filepath.Join(b.root, gitpath.IndexPath)

	var buf bytes.Buffer
	if err := idx.Write(&buf); err != nil {
		return xerrors.Errorf("could not encode index: %w", err)
	}
	if err := afero.WriteFile(b.fs, p, buf.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("could not write index at %s: %w", p, err)
	}
	return nil
}
