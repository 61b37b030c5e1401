package object

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/internal/readutil"
	"golang.org/x/xerrors"
)

// TreeObjectMode is the mode of an entry inside a tree. Non-standard
// modes are rejected.
type TreeObjectMode int32

// The modes a tree entry may carry
const (
	ModeFile       TreeObjectMode = 0o100644
	ModeExecutable TreeObjectMode = 0o100755
	ModeDirectory  TreeObjectMode = 0o040000
	ModeSymLink    TreeObjectMode = 0o120000
	ModeGitLink    TreeObjectMode = 0o160000
)

// IsValid returns whether m is a mode this implementation understands
func (m TreeObjectMode) IsValid() bool {
	switch m {
	case ModeFile, ModeExecutable, ModeDirectory, ModeSymLink, ModeGitLink:
		return true
	default:
		return false
	}
}

// ObjectType returns the object kind a tree entry's mode renders as.
// This is independent of the underlying stored Object's own type: a
// symlink entry's target is stored as an ordinary blob (see Symlink),
// but its kind text is "symlink", not "blob".
func (m TreeObjectMode) ObjectType() Type {
	switch m {
	case ModeDirectory:
		return TypeTree
	case ModeGitLink:
		return TypeCommit
	case ModeSymLink:
		return TypeSymlink
	case ModeExecutable, ModeFile:
		return TypeBlob
	default:
		return TypeBlob
	}
}

// String renders the mode the way it appears in a tree entry: no
// leading zero for directories (40000, not 040000), zero-padded
// to 6 digits otherwise.
func (m TreeObjectMode) String() string {
	if m == ModeDirectory {
		return "40000"
	}
	return strconv.FormatInt(int64(m), 8)
}

// ParseTreeObjectMode parses the mode text found in a tree entry,
// accepting "40000" as an alias for "040000"
func ParseTreeObjectMode(text string) (TreeObjectMode, error) {
	if text == "40000" {
		return ModeDirectory, nil
	}
	v, err := strconv.ParseInt(text, 8, 32)
	if err != nil {
		return 0, xerrors.Errorf("invalid mode %q: %w", text, err)
	}
	m := TreeObjectMode(v)
	if !m.IsValid() {
		return 0, xerrors.Errorf("invalid mode %q: %w", text, ErrTreeInvalid)
	}
	return m, nil
}

// Tree is a sorted sequence of directory entries
type Tree struct {
	rawObject *Object
	entries   []TreeEntry
}

// TreeEntry is one entry of a tree: a name, the id of the object it
// points to, and the mode under which it was recorded
type TreeEntry struct {
	Path string
	ID   ginternals.Oid
	Mode TreeObjectMode
}

// NewTree builds a Tree from entries, sorting them by path and
// computing the underlying object
func NewTree(entries []TreeEntry) *Tree {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	t := &Tree{entries: sorted}
	t.rawObject = t.ToObject()
	return t
}

// NewTreeFromObject parses the object as a Tree.
//
// A tree is a back-to-back sequence of entries, each one encoded as:
//
//	{mode_text} {path_name}\0{20 raw id bytes}
func NewTreeFromObject(o *Object) (*Tree, error) {
	if o.Type() != TypeTree {
		return nil, xerrors.Errorf("type %s is not a tree: %w", o.typ, ErrObjectInvalid)
	}

	entries := []TreeEntry{}
	objData := o.Bytes()
	offset := 0
	for i := 1; offset < len(objData); i++ {
		data := readutil.ReadTo(objData[offset:], ' ')
		if len(data) == 0 {
			return nil, xerrors.Errorf("could not retrieve the mode of entry %d: %w", i, ErrTreeInvalid)
		}
		offset += len(data) + 1
		mode, err := ParseTreeObjectMode(string(data))
		if err != nil {
			return nil, xerrors.Errorf("entry %d: %w", i, err)
		}

		data = readutil.ReadTo(objData[offset:], 0)
		if data == nil {
			return nil, xerrors.Errorf("could not retrieve the path of entry %d: %w", i, ErrTreeInvalid)
		}
		offset += len(data) + 1
		path := string(data)

		if offset+ginternals.OidSize > len(objData) {
			return nil, xerrors.Errorf("not enough space to retrieve the id of entry %d: %w", i, ErrTreeInvalid)
		}
		id, err := ginternals.NewOidFromHex(objData[offset : offset+ginternals.OidSize])
		if err != nil {
			return nil, xerrors.Errorf("invalid id for entry %d: %w", i, ErrTreeInvalid)
		}
		offset += ginternals.OidSize

		entries = append(entries, TreeEntry{Path: path, ID: id, Mode: mode})
	}

	return &Tree{rawObject: o, entries: entries}, nil
}

// Entries returns a copy of the tree's entries, in encoded (sorted) order
func (t *Tree) Entries() []TreeEntry {
	out := make([]TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ID returns the tree's id
func (t *Tree) ID() ginternals.Oid {
	return t.rawObject.ID()
}

// ToObject encodes the tree's entries and returns the backing Object
func (t *Tree) ToObject() *Object {
	buf := new(bytes.Buffer)
	for _, e := range t.entries {
		buf.WriteString(e.Mode.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
		buf.WriteByte(0)
		buf.Write(e.ID.Bytes())
	}
	return New(TypeTree, buf.Bytes())
}

// Render formats the tree the way "cat-file -p" would: one line per
// entry, mode zero-padded to 6 digits, kind text, hex id, and the
// entry's name, name column left-padded to the longest name's width.
func (t *Tree) Render() string {
	maxLen := 0
	for _, e := range t.entries {
		if len(e.Path) > maxLen {
			maxLen = len(e.Path)
		}
	}

	buf := new(bytes.Buffer)
	for _, e := range t.entries {
		fmtMode := e.Mode
		modeText := strconv.FormatInt(int64(fmtMode), 8)
		for len(modeText) < 6 {
			modeText = "0" + modeText
		}
		buf.WriteString(modeText)
		buf.WriteByte(' ')
		buf.WriteString(e.Mode.ObjectType().String())
		buf.WriteByte(' ')
		buf.WriteString(e.ID.String())
		buf.WriteString("    ")
		name := e.Path
		for len(name) < maxLen {
			name += " "
		}
		buf.WriteString(name)
		buf.WriteByte('\n')
	}
	return buf.String()
}
