package fsbackend

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mycroft/mg/backend"
	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Reference returns a stored reference from its name.
// ErrRefNotFound is returned if the reference doesn't exist.
func (b *Backend) Reference(name string) (*ginternals.Reference, error) {
	var packedRef map[string]string

	finder := func(name string) ([]byte, error) {
		data, err := afero.ReadFile(b.fs, b.systemPath(name))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, xerrors.Errorf("could not read reference content: %w", err)
			}
			if packedRef == nil {
				packedRef, err = b.parsePackedRefs()
				if err != nil {
					return nil, xerrors.Errorf("couldn't load packed-refs: %w", err)
				}
			}
			sha, ok := packedRef[name]
			if !ok {
				return nil, xerrors.Errorf(`ref "%s": %w`, name, ginternals.ErrRefNotFound)
			}
			return []byte(sha), nil
		}
		return data, nil
	}
	return ginternals.ResolveReference(name, finder)
}

// SymbolicTarget reads name's raw content and, if it's a symbolic
// reference ("ref: <target>"), returns the target name without
// resolving it further - unlike Reference, this works even when the
// target doesn't exist on disk yet (e.g. HEAD on a branch with no
// commit).
func (b *Backend) SymbolicTarget(name string) (string, error) {
	data, err := afero.ReadFile(b.fs, b.systemPath(name))
	if err != nil {
		return "", xerrors.Errorf("could not read reference %s: %w", name, err)
	}
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte("ref: ")) {
		return "", xerrors.Errorf("%s is not a symbolic reference: %w", name, ginternals.ErrRefInvalid)
	}
	return string(data[len("ref: "):]), nil
}

// systemPath returns the filesystem path for a ref name,
// e.g. refs/heads/main -> <root>/refs/heads/main
func (b *Backend) systemPath(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

// parsePackedRefs parses the packed-refs file into a name -> sha map
// https://git-scm.com/docs/git-pack-refs
func (b *Backend) parsePackedRefs() (refs map[string]string, err error) {
	refs = map[string]string{}
	f, err := b.fs.Open(filepath.Join(b.root, gitpath.PackedRefsPath))
	if err != nil {
		if os.IsNotExist(err) {
			return refs, nil
		}
		return nil, xerrors.Errorf("could not open %s: %w", gitpath.PackedRefsPath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	sc := bufio.NewScanner(f)
	for i := 1; sc.Scan(); i++ {
		line := sc.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			return nil, xerrors.Errorf("unexpected data on line %d: %w", i, ginternals.ErrPackedRefInvalid)
		}
		refs[parts[1]] = parts[0]
	}
	if sc.Err() != nil {
		return nil, xerrors.Errorf("could not parse %s: %w", gitpath.PackedRefsPath, sc.Err())
	}
	return refs, nil
}

// WriteReference writes the given reference to disk, overwriting any
// existing content
func (b *Backend) WriteReference(ref *ginternals.Reference) error {
	if !ginternals.IsRefNameValid(ref.Name()) {
		return ginternals.ErrRefNameInvalid
	}

	var target string
	switch ref.Type() {
	case ginternals.SymbolicReference:
		target = fmt.Sprintf("ref: %s\n", ref.SymbolicTarget())
	case ginternals.OidReference:
		target = fmt.Sprintf("%s\n", ref.Target().String())
	default:
		return xerrors.Errorf("reference type %d: %w", ref.Type(), ginternals.ErrUnknownRefType)
	}

	p := b.systemPath(ref.Name())
	if err := b.fs.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return xerrors.Errorf("could not create parent directory of %s: %w", p, err)
	}
	if err := afero.WriteFile(b.fs, p, []byte(target), 0o644); err != nil {
		return xerrors.Errorf("could not persist reference to disk: %w", err)
	}
	return nil
}

// WriteReferenceSafe writes the given reference to the db.
// ErrRefExists is returned if the reference already exists.
func (b *Backend) WriteReferenceSafe(ref *ginternals.Reference) error {
	if !ginternals.IsRefNameValid(ref.Name()) {
		return ginternals.ErrRefNameInvalid
	}

	p := b.systemPath(ref.Name())
	_, err := b.fs.Stat(p)
	if !os.IsNotExist(err) {
		if err != nil {
			return xerrors.Errorf("could not check if reference exists on disk: %w", err)
		}
		return ginternals.ErrRefExists
	}

	refs, err := b.parsePackedRefs()
	if err != nil {
		return xerrors.Errorf("could not check %s: %w", gitpath.PackedRefsPath, err)
	}
	if _, ok := refs[ref.Name()]; ok {
		return ginternals.ErrRefExists
	}

	return b.WriteReference(ref)
}

// WalkReferences runs f on every reference under refs/, resolved to
// the oid it ultimately points to
func (b *Backend) WalkReferences(f backend.RefWalkFunc) error {
	refsRoot := filepath.Join(b.root, gitpath.RefsPath)
	err := afero.Walk(b.fs, refsRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // an empty repo may not have refs/ yet
		}
		if info.IsDir() {
			return nil
		}
		name := filepath.ToSlash(strings.TrimPrefix(path, b.root+string(os.PathSeparator)))
		ref, rErr := b.Reference(name)
		if rErr != nil {
			return xerrors.Errorf("could not resolve ref %s: %w", name, rErr)
		}
		return f(ref)
	})
	if errors.Is(err, backend.WalkStop) {
		return nil
	}
	return err
}
