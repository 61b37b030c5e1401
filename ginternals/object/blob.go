package object

import "github.com/mycroft/mg/ginternals"

// Blob is an opaque byte payload: the content of a regular file
type Blob struct {
	rawObject *Object
}

// NewBlob wraps a raw Object as a Blob. The caller is responsible for
// only calling this with a TypeBlob object.
func NewBlob(o *Object) *Blob {
	return &Blob{rawObject: o}
}

// ID returns the blob's id
func (b *Blob) ID() ginternals.Oid {
	return b.rawObject.ID()
}

// Size returns the number of bytes in the blob
func (b *Blob) Size() int {
	return b.rawObject.Size()
}

// Bytes returns the blob's content. The returned slice shares memory
// with the underlying object and must not be retained across mutation.
func (b *Blob) Bytes() []byte {
	return b.rawObject.Bytes()
}

// BytesCopy returns an independent copy of the blob's content
func (b *Blob) BytesCopy() []byte {
	out := make([]byte, len(b.rawObject.Bytes()))
	copy(out, b.rawObject.Bytes())
	return out
}

// ToObject returns the underlying Object
func (b *Blob) ToObject() *Object {
	return b.rawObject
}
