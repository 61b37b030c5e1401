package mg

import (
	"sort"

	"github.com/mycroft/mg/backend"
	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// TreeBuilder accumulates entries to be written as a single Tree object
type TreeBuilder struct {
	backend backend.Backend
	entries map[string]object.TreeEntry
}

// NewTreeBuilder creates an empty tree builder writing through the
// repository's backend
func (r *Repository) NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{backend: r.dotGit}
}

// NewTreeBuilderFromTree creates a tree builder seeded with the
// entries of an existing tree, useful to amend a handful of paths
// without re-walking the whole working tree
func (r *Repository) NewTreeBuilderFromTree(t *object.Tree) *TreeBuilder {
	entries := map[string]object.TreeEntry{}
	for _, e := range t.Entries() {
		entries[e.Path] = e
	}
	return &TreeBuilder{backend: r.dotGit, entries: entries}
}

// Insert adds or replaces an entry. The object it points to must
// already exist in the odb.
func (tb *TreeBuilder) Insert(path string, oid ginternals.Oid, mode object.TreeObjectMode) error {
	if !mode.IsValid() {
		return xerrors.Errorf("invalid mode %o", mode)
	}

	o, err := tb.backend.Object(oid)
	if err != nil {
		return xerrors.Errorf("cannot verify object: %w", err)
	}
	if o.Type() != object.TypeBlob && o.Type() != object.TypeTree {
		return xerrors.Errorf("unexpected object %s: %w", o.Type().String(), object.ErrObjectInvalid)
	}

	if tb.entries == nil {
		tb.entries = map[string]object.TreeEntry{}
	}
	tb.entries[path] = object.TreeEntry{Mode: mode, Path: path, ID: oid}
	return nil
}

// Remove drops an entry by path
func (tb *TreeBuilder) Remove(path string) {
	delete(tb.entries, path)
}

// Write persists the accumulated entries as a new Tree object
func (tb *TreeBuilder) Write() (*object.Tree, error) {
	paths := make([]string, 0, len(tb.entries))
	for p := range tb.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]object.TreeEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, tb.entries[p])
	}

	t := object.NewTree(entries)
	if _, err := tb.backend.WriteObject(t.ToObject()); err != nil {
		return nil, xerrors.Errorf("could not write tree to the odb: %w", err)
	}
	return t, nil
}

// WriteTreeFromWorkingTree walks the working tree starting at dir
// (relative to the repository root, "" for the root itself),
// recursively creating Blob and Tree objects for everything it finds,
// and returns the resulting root Tree. The metadata directory is
// always skipped.
func (r *Repository) WriteTreeFromWorkingTree(dir string) (*object.Tree, error) {
	if r.IsBare() {
		return nil, xerrors.Errorf("cannot build a tree from the working tree of a bare repository")
	}
	return r.writeTreeFromDir(dir)
}

func (r *Repository) writeTreeFromDir(dir string) (*object.Tree, error) {
	fullPath := r.repoRoot
	if dir != "" {
		fullPath = fullPath + "/" + dir
	}

	entries, err := afero.ReadDir(r.wt, fullPath)
	if err != nil {
		return nil, xerrors.Errorf("could not read directory %s: %w", fullPath, err)
	}

	tb := r.NewTreeBuilder()
	for _, entry := range entries {
		name := entry.Name()
		if name == gitpath.DotGitPath {
			continue
		}
		childRelPath := name
		if dir != "" {
			childRelPath = dir + "/" + name
		}

		if entry.IsDir() {
			subTree, err := r.writeTreeFromDir(childRelPath)
			if err != nil {
				return nil, err
			}
			if len(subTree.Entries()) == 0 {
				// git never tracks empty directories
				continue
			}
			if err := tb.Insert(name, subTree.ID(), object.ModeDirectory); err != nil {
				return nil, xerrors.Errorf("could not insert %s: %w", childRelPath, err)
			}
			continue
		}

		// Symlinks and other non-regular entries are not handled in
		// this minimal core: they fall through to the same path a
		// regular file takes, content read as-is.
		content, err := afero.ReadFile(r.wt, r.repoRoot+"/"+childRelPath)
		if err != nil {
			return nil, xerrors.Errorf("could not read file %s: %w", childRelPath, err)
		}
		blob := object.New(object.TypeBlob, content)
		oid, err := r.dotGit.WriteObject(blob)
		if err != nil {
			return nil, xerrors.Errorf("could not write blob %s: %w", childRelPath, err)
		}

		mode := object.ModeFile
		if entry.Mode()&0o111 != 0 {
			mode = object.ModeExecutable
		}
		if err := tb.Insert(name, oid, mode); err != nil {
			return nil, xerrors.Errorf("could not insert %s: %w", childRelPath, err)
		}
	}

	return tb.Write()
}
