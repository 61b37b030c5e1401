// Package backend contains interfaces and implementations to store
// and retrieve objects and references from the object database
package backend

import (
	"errors"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/ginternals/packfile"
)

// Backend represents a store that can persist and retrieve objects
// and references
type Backend interface {
	// Close releases the resources held by the backend
	Close() error

	// Init initializes a repository
	Init() error

	// Reference returns a stored reference from its name
	Reference(name string) (*ginternals.Reference, error)
	// SymbolicTarget reads name's raw content one hop, without
	// resolving further. Unlike Reference, it succeeds even when the
	// target it points to doesn't exist yet (e.g. HEAD on a branch
	// with no commit). ErrRefInvalid is returned if name is not itself
	// a symbolic reference.
	SymbolicTarget(name string) (string, error)
	// WriteReference writes the given reference to the db. If the
	// reference already exists it will be overwritten
	WriteReference(ref *ginternals.Reference) error
	// WriteReferenceSafe writes the given reference to the db.
	// ErrRefExists is returned if the reference already exists
	WriteReferenceSafe(ref *ginternals.Reference) error
	// WalkReferences runs the provided method on all the references
	WalkReferences(f RefWalkFunc) error

	// Object returns the object with the given oid
	Object(oid ginternals.Oid) (*object.Object, error)
	// HasObject returns whether an object exists in the odb
	HasObject(oid ginternals.Oid) (bool, error)
	// WriteObject adds an object to the odb
	WriteObject(o *object.Object) (ginternals.Oid, error)
	// WalkPackedObjectIDs runs the provided method on all the packed oids
	WalkPackedObjectIDs(f packfile.OidWalkFunc) error
	// WalkLooseObjectIDs runs the provided method on all the loose oids
	WalkLooseObjectIDs(f packfile.OidWalkFunc) error

	// Index returns the current staging index
	Index() (*ginternals.Index, error)
	// WriteIndex persists the given staging index
	WriteIndex(idx *ginternals.Index) error

	// Config returns the repository configuration
	Config() (*ginternals.Config, error)
}

// RefWalkFunc is applied to every reference found by WalkReferences
type RefWalkFunc = func(ref *ginternals.Reference) error

// WalkStop lets a walk function ask the walk to stop early
var WalkStop = errors.New("stop walking") //nolint:revive // sentinel, not a real error
