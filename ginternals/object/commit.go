package object

import (
	"bytes"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/internal/readutil"
	"golang.org/x/xerrors"
)

// Commit is a single linear-history revision: a tree snapshot, an
// optional parent, and a message. This implementation carries no
// author/committer signature, matching the minimal commit format this
// repository interoperates with.
type Commit struct {
	rawObject *Object

	message  string
	parentID ginternals.Oid
	treeID   ginternals.Oid
}

// NewCommit builds a Commit from a tree id, an optional parent id, and
// a message, and computes the backing Object
func NewCommit(treeID, parentID ginternals.Oid, message string) *Commit {
	c := &Commit{
		treeID:   treeID,
		parentID: parentID,
		message:  message,
	}
	c.rawObject = c.ToObject()
	return c
}

// NewCommitFromObject parses a raw object as a Commit.
//
// A commit has the following format:
//
//	tree {40-hex}\n
//	[parent {40-hex}\n]
//	\n
//	{message}\n
//
// There is at most one parent line in this implementation: history is
// linear, so merges are out of scope.
func NewCommitFromObject(o *Object) (*Commit, error) {
	if o.Type() != TypeCommit {
		return nil, xerrors.Errorf("type %s is not a commit: %w", o.typ, ErrObjectInvalid)
	}
	c := &Commit{rawObject: o}

	offset := 0
	objData := o.Bytes()
	for {
		line := readutil.ReadTo(objData[offset:], '\n')
		if line == nil && offset == 0 {
			return nil, xerrors.Errorf("could not find commit first line: %w", ErrCommitInvalid)
		}
		offset += len(line) + 1

		if len(line) == 0 {
			if offset < len(objData) {
				c.message = string(objData[offset:])
			}
			break
		}

		kv := bytes.SplitN(line, []byte{' '}, 2)
		if len(kv) != 2 {
			return nil, xerrors.Errorf("malformed commit header %q: %w", line, ErrCommitInvalid)
		}
		switch string(kv[0]) {
		case "tree":
			id, err := ginternals.NewOidFromChars(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("could not parse tree id %q: %w", kv[1], err)
			}
			c.treeID = id
		case "parent":
			id, err := ginternals.NewOidFromChars(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("could not parse parent id %q: %w", kv[1], err)
			}
			c.parentID = id
		}
	}

	if c.treeID.IsZero() {
		return nil, xerrors.Errorf("commit has no tree: %w", ErrCommitInvalid)
	}

	return c, nil
}

// ID returns the commit's id
func (c *Commit) ID() ginternals.Oid {
	return c.rawObject.ID()
}

// TreeID returns the id of the tree this commit snapshots
func (c *Commit) TreeID() ginternals.Oid {
	return c.treeID
}

// ParentID returns the id of the parent commit, or the zero Oid if
// this is the first commit of the branch
func (c *Commit) ParentID() ginternals.Oid {
	return c.parentID
}

// HasParent returns whether the commit has a parent
func (c *Commit) HasParent() bool {
	return !c.parentID.IsZero()
}

// Message returns the commit's message
func (c *Commit) Message() string {
	return c.message
}

// ToObject encodes the commit and returns the backing Object
func (c *Commit) ToObject() *Object {
	if c.rawObject != nil {
		return c.rawObject
	}

	buf := new(bytes.Buffer)
	buf.WriteString("tree ")
	buf.WriteString(c.treeID.String())
	buf.WriteByte('\n')

	if c.HasParent() {
		buf.WriteString("parent ")
		buf.WriteString(c.parentID.String())
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.WriteString(c.message)
	return New(TypeCommit, buf.Bytes())
}
