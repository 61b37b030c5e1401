package object_test

import (
	"testing"

	"github.com/mycroft/mg/ginternals/object"
	"github.com/stretchr/testify/assert"
)

func TestBlob(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		data := "this is a fake content"
		o := object.New(object.TypeBlob, []byte(data))
		blob := object.NewBlob(o)

		assert.Equal(t, len(data), blob.Size())
		assert.Equal(t, []byte(data), blob.Bytes())
		assert.Equal(t, []byte(data), blob.BytesCopy())
		assert.Equal(t, o, blob.ToObject())
	})

	t.Run(".BytesCopy() should return immutable data", func(t *testing.T) {
		t.Parallel()

		data := "this is a fake content"
		o := object.New(object.TypeBlob, []byte(data))
		blob := object.NewBlob(o)

		blob.BytesCopy()[0] = '0'
		assert.Equal(t, []byte(data), blob.BytesCopy())
	})

	t.Run("empty blob has the well-known SHA", func(t *testing.T) {
		t.Parallel()

		o := object.New(object.TypeBlob, []byte{})
		assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", o.ID().String())
	})

	t.Run("hello\\n blob has the well-known SHA", func(t *testing.T) {
		t.Parallel()

		o := object.New(object.TypeBlob, []byte("hello\n"))
		assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", o.ID().String())
	})
}
