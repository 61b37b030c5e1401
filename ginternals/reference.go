package ginternals

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

// Common ref names
const (
	// Head is a reference to the current branch, or to a commit if
	// we're detached
	Head = "HEAD"
	// Main is the branch HEAD points to in a newly initialized repository
	Main = "main"
)

var (
	// ErrRefNotFound is returned when acting on a reference that doesn't exist
	ErrRefNotFound = errors.New("reference not found")
	// ErrRefExists is returned when a reference that should not exist does
	ErrRefExists = errors.New("reference already exists")
	// ErrRefNameInvalid is returned when the name of a reference is not valid
	ErrRefNameInvalid = errors.New("reference name is not valid")
	// ErrRefInvalid is returned when a reference's content is not valid
	ErrRefInvalid = errors.New("reference is not valid")
	// ErrPackedRefInvalid is returned when the packed-refs file cannot be
	// parsed
	ErrPackedRefInvalid = errors.New("packed-refs file is invalid")
	// ErrUnknownRefType is returned when the type of a reference is unknown
	ErrUnknownRefType = errors.New("unknown reference type")
)

// ReferenceType represents the type of a reference
type ReferenceType int8

const (
	// OidReference targets an Oid directly
	OidReference ReferenceType = 1
	// SymbolicReference targets another reference by name
	SymbolicReference ReferenceType = 2
)

// Reference is a named pointer to either an object id or another
// reference.
// https://git-scm.com/book/en/v2/Git-Internals-Git-References
type Reference struct {
	name   string
	target string
	id     Oid
	typ    ReferenceType
}

// RefContent loads the raw bytes stored for a reference name, without
// knowing anything about the backend storing them.
type RefContent func(name string) ([]byte, error)

// ResolveReference follows symbolic references until it reaches an Oid
func ResolveReference(name string, finder RefContent) (*Reference, error) {
	return resolveRefs(name, finder, map[string]struct{}{})
}

func resolveRefs(name string, finder RefContent, visited map[string]struct{}) (*Reference, error) {
	// protect against cycles, e.g. refs/heads/a -> refs/heads/b -> refs/heads/a
	if _, ok := visited[name]; ok {
		return nil, xerrors.Errorf("circular symbolic reference: %w", ErrRefInvalid)
	}
	visited[name] = struct{}{}

	if !IsRefNameValid(name) {
		return nil, xerrors.Errorf(`ref "%s": %w`, name, ErrRefNameInvalid)
	}

	data, err := finder(name)
	if err != nil {
		return nil, err
	}
	data = bytes.Trim(data, " \n")

	// at the very least "ref: " followed by a ref name
	if len(data) < 6 {
		return nil, ErrRefInvalid
	}

	if string(data[0:5]) == "ref: " {
		symbolicTarget := string(data[5:])
		ref, err := resolveRefs(symbolicTarget, finder, visited)
		if err != nil {
			return nil, err
		}
		return &Reference{
			typ:    SymbolicReference,
			name:   name,
			id:     ref.id,
			target: symbolicTarget,
		}, nil
	}

	oid, err := NewOidFromChars(data)
	if err != nil {
		return nil, ErrRefInvalid
	}
	return &Reference{
		typ:  OidReference,
		name: name,
		id:   oid,
	}, nil
}

// NewReference returns a Reference that targets an object
func NewReference(name string, target Oid) *Reference {
	return &Reference{
		typ:  OidReference,
		name: name,
		id:   target,
	}
}

// NewSymbolicReference returns a Reference that targets another
// reference, e.g. HEAD targeting refs/heads/main
func NewSymbolicReference(name, target string) *Reference {
	return &Reference{
		typ:    SymbolicReference,
		name:   name,
		target: target,
	}
}

// Name returns the full name of the reference, e.g. refs/heads/main
func (ref *Reference) Name() string {
	return ref.name
}

// Target returns the Oid targeted by the reference
func (ref *Reference) Target() Oid {
	return ref.id
}

// Type returns the type of the reference
func (ref *Reference) Type() ReferenceType {
	return ref.typ
}

// SymbolicTarget returns the name of the reference this one points to
func (ref *Reference) SymbolicTarget() string {
	return ref.target
}

// IsRefNameValid returns whether name could be used as a reference name
// https://stackoverflow.com/a/12093994/382879
func IsRefNameValid(name string) bool {
	if name == "" || name == "/" || name[len(name)-1] == '/' || name[len(name)-1] == '.' {
		return false
	}

	for i, c := range name {
		if c < 32 || c == 127 {
			return false
		}
		if c == '*' || c == '?' || c == '!' || c == '^' {
			return false
		}
		if c == ' ' || c == '[' || c == '\\' || c == ':' {
			return false
		}
		if i < len(name)-1 {
			substr := name[i : i+2]
			if substr == "@{" || substr == ".." {
				return false
			}
		}
	}

	segments := strings.Split(name, "/")
	for _, s := range segments {
		if s == "" || s[0] == '.' || s[len(s)-1] == '.' || strings.HasSuffix(s, ".lock") {
			return false
		}
	}

	return true
}
