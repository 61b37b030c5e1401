// Package object contains the types and codecs for the four object
// kinds stored in the object database: blob, tree, commit, and the
// symlink-flavored blob.
package object

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"strconv"

	"github.com/mycroft/mg/ginternals"
	"golang.org/x/xerrors"
)

var (
	// ErrObjectUnknown is returned when parsing an unrecognized kind text
	ErrObjectUnknown = errors.New("invalid object type")
	// ErrObjectInvalid is returned when an object holds unexpected data,
	// or the wrong kind of object was handed to a typed accessor
	ErrObjectInvalid = errors.New("invalid object")
	// ErrTreeInvalid is returned when a Tree object fails to parse
	ErrTreeInvalid = errors.New("invalid tree")
	// ErrCommitInvalid is returned when a Commit object fails to parse
	ErrCommitInvalid = errors.New("invalid commit")
)

// Type is the kind of an object, as stored in the header of a loose
// object and in the type field of a packed object record
type Type int8

// The object kinds this implementation stores and reads
const (
	TypeCommit Type = 1
	TypeTree   Type = 2
	TypeBlob   Type = 3
	TypeTag    Type = 4
	// 5 is reserved
	ObjectDeltaOFS Type = 6
	ObjectDeltaRef Type = 7
	// TypeSymlink never appears as a loose or packed object's own
	// header - a symlink is stored on disk as an ordinary blob-shaped
	// object (see Symlink). It exists only so the tree-entry kind
	// codec (TreeObjectMode.ObjectType) can render mode 120000 as
	// "symlink" rather than "blob".
	TypeSymlink Type = 8
)

func (t Type) String() string {
	switch t {
	case TypeCommit:
		return "commit"
	case TypeTree:
		return "tree"
	case TypeBlob:
		return "blob"
	case TypeTag:
		return "tag"
	case ObjectDeltaOFS:
		return "ofs-delta"
	case ObjectDeltaRef:
		return "ref-delta"
	case TypeSymlink:
		return "symlink"
	default:
		panic(fmt.Sprintf("unknown object type %d", t))
	}
}

// IsValid returns whether t is one of the known object kinds
func (t Type) IsValid() bool {
	switch t {
	case TypeCommit, TypeTree, TypeBlob, TypeTag, ObjectDeltaOFS, ObjectDeltaRef:
		return true
	default:
		return false
	}
}

// NewTypeFromString parses the textual kind used in a loose-object header
func NewTypeFromString(t string) (Type, error) {
	switch t {
	case "commit":
		return TypeCommit, nil
	case "tree":
		return TypeTree, nil
	case "blob":
		return TypeBlob, nil
	case "tag":
		return TypeTag, nil
	default:
		return 0, ErrObjectUnknown
	}
}

// Object is the common representation shared by every object kind:
// the same framing, the same content-addressing, the same compressed
// on-disk form. Blob/Tree/Commit are thin typed views over an Object.
type Object struct {
	id      ginternals.Oid
	typ     Type
	content []byte
}

// New creates a new object of the given kind from raw payload bytes,
// computing its id immediately
func New(typ Type, content []byte) *Object {
	o := &Object{typ: typ, content: content}
	o.id, _ = o.build()
	return o
}

// NewWithID creates an object whose id is already known, e.g. while
// reconstructing a delta inside a pack, where the caller already
// resolved (or doesn't yet care about) the id.
func NewWithID(id ginternals.Oid, typ Type, content []byte) *Object {
	return &Object{id: id, typ: typ, content: content}
}

// ID returns the object's id
func (o *Object) ID() ginternals.Oid {
	return o.id
}

// Size returns the size of the object's payload
func (o *Object) Size() int {
	return len(o.content)
}

// Type returns the object's kind
func (o *Object) Type() Type {
	return o.typ
}

// Bytes returns the object's raw payload
func (o *Object) Bytes() []byte {
	return o.content
}

// build frames the object as "<kind> <size>\0<content>" and hashes it
func (o *Object) build() (oid ginternals.Oid, framed []byte) {
	w := new(bytes.Buffer)
	w.WriteString(o.Type().String())
	w.WriteByte(' ')
	w.WriteString(strconv.Itoa(o.Size()))
	w.WriteByte(0)
	w.Write(o.Bytes())

	framed = w.Bytes()
	oid = ginternals.NewOidFromContent(framed)
	return oid, framed
}

// Compress returns the object zlib-compressed, framed exactly as it's
// stored on disk: "<kind> <size>\0<content>"
func (o *Object) Compress() (data []byte, err error) {
	_, framed := o.build()

	compressed := new(bytes.Buffer)
	zw := zlib.NewWriter(compressed)

	if _, err = zw.Write(framed); err != nil {
		zw.Close() //nolint:errcheck // already failing
		return nil, xerrors.Errorf("could not zlib-compress object: %w", err)
	}
	// the stream is only complete once the writer is closed
	if err = zw.Close(); err != nil {
		return nil, xerrors.Errorf("could not flush zlib stream: %w", err)
	}
	return compressed.Bytes(), nil
}

// AsBlob views the object as a Blob
func (o *Object) AsBlob() *Blob {
	return NewBlob(o)
}

// AsTree parses the object as a Tree
func (o *Object) AsTree() (*Tree, error) {
	return NewTreeFromObject(o)
}

// AsCommit parses the object as a Commit
func (o *Object) AsCommit() (*Commit, error) {
	return NewCommitFromObject(o)
}

// AsSymlink views the object as a Symlink
func (o *Object) AsSymlink() *Symlink {
	return NewSymlink(o)
}
