package object

import "github.com/mycroft/mg/ginternals"

// Symlink is a blob-shaped object whose content is interpreted as the
// target path of a symbolic link rather than file data
type Symlink struct {
	rawObject *Object
}

// NewSymlink wraps a raw Object as a Symlink
func NewSymlink(o *Object) *Symlink {
	return &Symlink{rawObject: o}
}

// ID returns the symlink object's id
func (s *Symlink) ID() ginternals.Oid {
	return s.rawObject.ID()
}

// Target returns the link target stored in the object's payload
func (s *Symlink) Target() string {
	return string(s.rawObject.Bytes())
}

// ToObject returns the underlying Object
func (s *Symlink) ToObject() *Object {
	return s.rawObject
}
