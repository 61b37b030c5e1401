package ginternals

import "errors"

// Error sentinels shared across the object store, pack reader, and
// reference resolver. Component-specific errors (tree/commit parsing,
// pack framing) live next to the component they describe.
var (
	// ErrObjectNotFound is returned when an object cannot be located in
	// either the loose object store or any loaded packfile
	ErrObjectNotFound = errors.New("object not found")

	// ErrPathOutsideRepo is returned when a path passed to the object
	// store does not canonicalize to somewhere under the repository root
	ErrPathOutsideRepo = errors.New("path is outside the repository")
)
