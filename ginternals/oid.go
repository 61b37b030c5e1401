// Package ginternals contains the core types shared by the object
// store, the pack reader, and the reference resolver: object
// identifiers, references, the staging index, and the repository
// config.
package ginternals

import (
	"crypto/sha1" //nolint:gosec // the object format is fixed to SHA-1
	"encoding/hex"
	"errors"
)

// OidSize is the length of an Oid, in bytes
const OidSize = 20

// NullOid is the zero-value Oid
var NullOid = Oid{}

// ErrInvalidOid is returned when a given value isn't a valid Oid
var ErrInvalidOid = errors.New("invalid oid")

// Oid is a content-addressed object identifier: the SHA-1 digest of
// an object's framed bytes.
type Oid [OidSize]byte

// Bytes returns the raw 20 bytes of the Oid
func (o Oid) Bytes() []byte {
	return o[:]
}

// String renders the Oid as 40 lowercase hex characters
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero returns whether the oid is the zero value (NullOid)
func (o Oid) IsZero() bool {
	return o == NullOid
}

// NewOidFromContent returns the Oid of the given content: the SHA-1
// sum of the bytes, which are expected to already carry the
// "<kind> <size>\0" framing.
func NewOidFromContent(b []byte) Oid {
	return sha1.Sum(b) //nolint:gosec // fixed by format
}

// NewOidFromHex returns an Oid from a 20-byte slice of raw digest bytes
func NewOidFromHex(id []byte) (Oid, error) {
	if len(id) < OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], id)
	return oid, nil
}

// NewOidFromChars creates an Oid from 40 ASCII hex characters given
// as a byte slice
func NewOidFromChars(id []byte) (Oid, error) {
	return NewOidFromStr(string(id))
}

// NewOidFromStr creates an Oid from a 40-character hex string
func NewOidFromStr(id string) (Oid, error) {
	b, err := hex.DecodeString(id)
	if err != nil {
		return NullOid, err
	}
	if len(b) != OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], b)
	return oid, nil
}
