// Package packfile contains methods and structs to read packfiles and
// their companion index files. Only reading is supported; this
// implementation never generates a pack.
package packfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// File extensions used for packfiles and their index
const (
	ExtPackfile = ".pack"
	ExtIndex    = ".idx"
)

const packfileHeaderSize = 12

func packfileMagic() []byte   { return []byte{'P', 'A', 'C', 'K'} }
func packfileVersion() []byte { return []byte{0, 0, 0, 2} }

// ObjectBackend is the minimal contract the pack reader needs from a
// surrounding object store to resolve a ref-delta's base object when
// it isn't found in the same pack.
type ObjectBackend interface {
	Object(oid ginternals.Oid) (*object.Object, error)
}

var (
	// ErrIntOverflow is returned when a varint in the pack stream
	// couldn't fit in a uint64
	ErrIntOverflow = errors.New("int64 overflow")
	// ErrInvalidMagic is returned when a pack or index file doesn't
	// start with the expected magic bytes
	ErrInvalidMagic = errors.New("invalid magic")
	// ErrInvalidVersion is returned when a pack declares an unsupported
	// version. An index with an unsupported version fails its header
	// check with ErrInvalidMagic instead.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrUnsupportedFeature is returned for pack features this reader
	// deliberately doesn't implement (64-bit index offsets)
	ErrUnsupportedFeature = errors.New("unsupported pack feature")
)

// OidWalkFunc is applied to every oid reachable from a Walk*OidIDs call
type OidWalkFunc = func(oid ginternals.Oid) error

// OidWalkStop lets an OidWalkFunc ask the walk to stop early
var OidWalkStop = errors.New("stop walking") //nolint:revive // intentionally not prefixed, it's a sentinel not a real error

// Pack represents a single parsed packfile: a 12-byte header, a
// sequence of object records (each zlib-compressed, some deltified
// against an earlier object in the same pack), and a 20-byte trailer.
// https://git-scm.com/docs/pack-format
type Pack struct {
	r       afero.File
	idxFile afero.File
	idx     *PackIndex
	header  [packfileHeaderSize]byte
	id      ginternals.Oid

	// backend is consulted to resolve a ref-delta base that isn't
	// present in this pack's own index
	backend ObjectBackend

	mu sync.Mutex
}

// NewFromFile opens a pack and its companion .idx file. The returned
// Pack must be closed with Close().
func NewFromFile(fs afero.Fs, filePath string) (pack *Pack, err error) {
	return newFromFile(fs, filePath, nil)
}

// NewFromFileWithBackend is like NewFromFile but additionally wires an
// ObjectBackend to resolve ref-delta bases that live outside this pack.
func NewFromFileWithBackend(fs afero.Fs, filePath string, backend ObjectBackend) (pack *Pack, err error) {
	return newFromFile(fs, filePath, backend)
}

func newFromFile(fs afero.Fs, filePath string, backend ObjectBackend) (pack *Pack, err error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return nil, xerrors.Errorf("could not open %s: %w", filePath, err)
	}
	defer func() {
		if err != nil {
			f.Close() //nolint:errcheck // already failing
		}
	}()

	p := &Pack{r: f, id: ginternals.NullOid, backend: backend}

	if _, err = f.ReadAt(p.header[:], 0); err != nil {
		return nil, xerrors.Errorf("could not read header of packfile: %w", err)
	}
	if !bytes.Equal(p.header[0:4], packfileMagic()) {
		return nil, xerrors.Errorf("invalid header: %w", ErrInvalidMagic)
	}
	if !bytes.Equal(p.header[4:8], packfileVersion()) {
		return nil, xerrors.Errorf("invalid header: %w", ErrInvalidVersion)
	}

	indexFilePath := strings.TrimSuffix(filePath, ExtPackfile) + ExtIndex
	p.idxFile, err = fs.Open(indexFilePath)
	if err != nil {
		return nil, xerrors.Errorf("could not open %s: %w", indexFilePath, err)
	}
	defer func() {
		if err != nil {
			p.idxFile.Close() //nolint:errcheck // already failing
		}
	}()
	p.idx, err = NewIndex(bufio.NewReader(p.idxFile))
	if err != nil {
		return nil, xerrors.Errorf("could not create index for %s: %w", indexFilePath, err)
	}

	return p, nil
}

// getRawObjectAt parses the object record at objectOffset, returning
// its raw (possibly still-deltified) bytes along with the base's
// identity, if the record is a delta.
func (pck *Pack) getRawObjectAt(objectOffset uint64) (o *object.Object, deltaBaseSHA ginternals.Oid, deltaBaseOffset uint64, err error) {
	if _, err = pck.r.Seek(int64(objectOffset), io.SeekStart); err != nil {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("could not seek to object offset %d: %w", objectOffset, err)
	}
	buf := bufio.NewReader(pck.r)

	metadata, err := buf.Peek(10)
	if err != nil {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("could not get object meta: %w", err)
	}

	objectType := object.Type((metadata[0] & 0b_0111_0000) >> 4)
	if !objectType.IsValid() {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("unknown object type %d", objectType)
	}

	objectSize := uint64(metadata[0] & 0b_0000_1111)
	metadataSize := 1
	if isMSBSet(metadata[0]) {
		size, byteRead, szErr := readSizeLE(metadata[1:])
		if szErr != nil {
			return nil, ginternals.NullOid, 0, xerrors.Errorf("couldn't read object size: %w", szErr)
		}
		metadataSize += byteRead
		objectSize |= size << 4
	}

	if _, err = buf.Discard(metadataSize); err != nil {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("could not skip the metadata: %w", err)
	}

	var baseObjectOffset uint64
	var baseObjectOid ginternals.Oid
	switch objectType { //nolint:exhaustive // only the 2 delta kinds need special handling
	case object.ObjectDeltaRef:
		baseSHA := make([]byte, ginternals.OidSize)
		if _, err = io.ReadFull(buf, baseSHA); err != nil {
			return nil, ginternals.NullOid, 0, xerrors.Errorf("could not get base object SHA: %w", err)
		}
		baseObjectOid, err = ginternals.NewOidFromHex(baseSHA)
		if err != nil {
			return nil, ginternals.NullOid, 0, xerrors.Errorf("could not parse base object SHA: %w", err)
		}
	case object.ObjectDeltaOFS:
		offsetParts, peekErr := buf.Peek(9)
		if peekErr != nil {
			return nil, ginternals.NullOid, 0, xerrors.Errorf("could not get base object offset: %w", peekErr)
		}
		offset, bytesRead, roErr := readDeltaOffsetBE(offsetParts)
		if roErr != nil {
			return nil, ginternals.NullOid, 0, xerrors.Errorf("couldn't read base object offset: %w", roErr)
		}
		baseObjectOffset = objectOffset - offset
		if _, err = buf.Discard(bytesRead); err != nil {
			return nil, ginternals.NullOid, 0, xerrors.Errorf("could not skip the offset: %w", err)
		}
	}

	zlibR, err := zlib.NewReader(buf)
	if err != nil {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("could not get zlib reader: %w", err)
	}
	defer func() {
		if cerr := zlibR.Close(); err == nil {
			err = cerr
		}
	}()

	var objectData bytes.Buffer
	if _, err = io.Copy(&objectData, zlibR); err != nil {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("could not decompress: %w", err)
	}
	if objectData.Len() != int(objectSize) {
		return nil, ginternals.NullOid, 0, xerrors.Errorf("object size not valid: expected %d, got %d", objectSize, objectData.Len())
	}

	return object.NewWithID(ginternals.NullOid, objectType, objectData.Bytes()), baseObjectOid, baseObjectOffset, nil
}

// getObjectAt fully materializes the object at the given offset,
// following delta chains (both ofs and ref) to completion.
func (pck *Pack) getObjectAt(oid ginternals.Oid, objectOffset uint64) (*object.Object, error) {
	o, baseOid, baseOffset, err := pck.getRawObjectAt(objectOffset)
	if err != nil {
		return nil, err
	}

	if o.Type() != object.ObjectDeltaRef && o.Type() != object.ObjectDeltaOFS {
		if !oid.IsZero() {
			return object.NewWithID(oid, o.Type(), o.Bytes()), nil
		}
		return o, nil
	}

	var base *object.Object
	switch {
	case o.Type() == object.ObjectDeltaOFS:
		base, err = pck.getObjectAt(ginternals.NullOid, baseOffset)
		if err != nil {
			return nil, xerrors.Errorf("could not get ofs-delta base at offset %d: %w", baseOffset, err)
		}
	default: // ObjectDeltaRef
		base, err = pck.resolveRefDeltaBase(baseOid)
		if err != nil {
			return nil, xerrors.Errorf("could not get ref-delta base %s: %w", baseOid.String(), err)
		}
	}

	patched, err := applyDelta(base, o.Bytes())
	if err != nil {
		return nil, err
	}
	return object.NewWithID(oid, base.Type(), patched), nil
}

// resolveRefDeltaBase finds a ref-delta's base object, first in this
// pack's own index, then (if wired) in the surrounding object store -
// ref-deltas routinely point at objects a server already assumes the
// client has, which may live in a different pack or as a loose object.
func (pck *Pack) resolveRefDeltaBase(oid ginternals.Oid) (*object.Object, error) {
	offset, err := pck.idx.GetObjectOffset(oid)
	if err == nil {
		return pck.getObjectAt(oid, offset)
	}
	if !errors.Is(err, ginternals.ErrObjectNotFound) {
		return nil, err
	}
	if pck.backend == nil {
		return nil, xerrors.Errorf("ref-delta base %s not in this pack and no backend wired: %w", oid.String(), ginternals.ErrObjectNotFound)
	}
	return pck.backend.Object(oid)
}

// applyDelta reconstructs a patched payload from a base object and a
// delta instruction stream: a (base_size, patched_size) header
// followed by COPY/INSERT instructions.
func applyDelta(base *object.Object, delta []byte) ([]byte, error) {
	sourceSize, sourceSizeLen, err := readSizeLE(delta)
	if err != nil {
		return nil, xerrors.Errorf("couldn't read source size of delta: %w", err)
	}
	if int(sourceSize) != base.Size() {
		return nil, xerrors.Errorf("invalid base object size: expected %d, got %d", base.Size(), sourceSize)
	}
	patchedSize, targetSizeLen, err := readSizeLE(delta[sourceSizeLen:])
	if err != nil {
		return nil, xerrors.Errorf("couldn't read target size of delta: %w", err)
	}

	instructions := delta[sourceSizeLen+targetSizeLen:]
	baseContent := base.Bytes()
	var out bytes.Buffer

	for i := 0; i < len(instructions); i++ {
		instr := instructions[i]
		if isMSBSet(instr) {
			offsetBytes := make([]byte, 4)
			byteRead := 0
			for j := uint(0); j < 4; j++ {
				if (instr>>j)&1 == 1 {
					offsetBytes[j] = instructions[i+1+byteRead]
					byteRead++
				}
			}
			offset := binary.LittleEndian.Uint32(offsetBytes)
			i += byteRead

			lenBytes := make([]byte, 4)
			byteRead = 0
			for j := uint(0); j < 3; j++ {
				if (instr>>(4+j))&1 == 1 {
					lenBytes[j] = instructions[i+1+byteRead]
					byteRead++
				}
			}
			copyLen := binary.LittleEndian.Uint32(lenBytes)
			if copyLen == 0 {
				copyLen = 0x10000
			}
			i += byteRead
			out.Write(baseContent[offset : offset+copyLen])
		} else {
			start := i + 1
			end := start + int(instr)
			out.Write(instructions[start:end])
			i += int(instr)
		}
	}

	if out.Len() != int(patchedSize) {
		return nil, xerrors.Errorf("patched object size not valid: expected %d, got %d", patchedSize, out.Len())
	}
	return out.Bytes(), nil
}

// GetObject returns the fully-materialized object with the given id
func (pck *Pack) GetObject(oid ginternals.Oid) (*object.Object, error) {
	pck.mu.Lock()
	defer pck.mu.Unlock()

	offset, err := pck.idx.GetObjectOffset(oid)
	if err != nil {
		if !errors.Is(err, ginternals.ErrObjectNotFound) {
			return nil, xerrors.Errorf("could not look up object: %w", err)
		}
		return nil, err
	}
	return pck.getObjectAt(oid, offset)
}

// ObjectCount returns the number of objects declared in the pack header
func (pck *Pack) ObjectCount() uint32 {
	return binary.BigEndian.Uint32(pck.header[8:])
}

// ID returns the pack's id: the trailing SHA-1 over the whole file
func (pck *Pack) ID() (ginternals.Oid, error) {
	pck.mu.Lock()
	defer pck.mu.Unlock()

	if !pck.id.IsZero() {
		return pck.id, nil
	}

	id := make([]byte, ginternals.OidSize)
	offset, err := pck.r.Seek(-ginternals.OidSize, io.SeekEnd)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not seek to the trailer: %w", err)
	}
	if _, err = pck.r.ReadAt(id, offset); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read the trailer: %w", err)
	}
	pck.id, err = ginternals.NewOidFromHex(id)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not parse trailer as oid: %w", err)
	}
	return pck.id, nil
}

// WalkOids runs f on every oid this pack's index knows about
func (pck *Pack) WalkOids(f OidWalkFunc) error {
	return pck.idx.WalkOids(f)
}

// Close releases the pack and index file handles
func (pck *Pack) Close() error {
	pck.mu.Lock()
	defer pck.mu.Unlock()

	packErr := pck.r.Close()
	idxErr := pck.idxFile.Close()
	if packErr != nil {
		return packErr
	}
	return idxErr
}

// readSizeLE reads a little-endian-chunked variable-length integer
// (object size or delta-instruction size): each byte's top bit signals
// continuation, the low 7 bits are the next-more-significant chunk.
func readSizeLE(data []byte) (value uint64, bytesRead int, err error) {
	for i, b := range data {
		bytesRead++
		chunk := unsetMSB(b)
		value |= uint64(chunk) << (uint(i) * 7)
		if !isMSBSet(b) {
			return value, bytesRead, nil
		}
	}
	return 0, 0, ErrIntOverflow
}

// readDeltaOffsetBE reads the big-endian-chunked varint used for an
// ofs-delta's negative offset: after the first byte, the accumulated
// offset is incremented by 1 before each subsequent chunk is folded
// in - a carry, not a per-byte bias, so it must be added to the
// running offset rather than to the incoming chunk.
func readDeltaOffsetBE(data []byte) (offset uint64, bytesRead int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrIntOverflow
	}

	b := data[0]
	offset = uint64(unsetMSB(b))
	bytesRead = 1

	for isMSBSet(b) {
		if bytesRead >= len(data) {
			return 0, 0, ErrIntOverflow
		}
		b = data[bytesRead]
		offset = (offset+1)<<7 + uint64(unsetMSB(b))
		bytesRead++
	}

	return offset, bytesRead, nil
}

func isMSBSet(b byte) bool { return b >= 0b_1000_0000 }
func unsetMSB(b byte) byte { return b & 0b_0111_1111 }
