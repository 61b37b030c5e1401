package ginternals

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // fixed by the index format
	"encoding/binary"
	"errors"
	"io"
	"sort"

	"golang.org/x/xerrors"
)

// indexSignature is the magic 4 bytes starting a staging-index file
var indexSignature = [4]byte{'D', 'I', 'R', 'C'}

// IndexVersion is the only staging-index version this implementation
// understands
const IndexVersion = 2

// pathLenMask extracts the 12-bit path length packed into an entry's flags
const pathLenMask = 0x0FFF

var (
	// ErrIndexInvalidMagic is returned when a file doesn't start with DIRC
	ErrIndexInvalidMagic = errors.New("not a staging index file")
	// ErrIndexUnsupportedVersion is returned for any version other than 2
	ErrIndexUnsupportedVersion = errors.New("unsupported staging index version")
	// ErrIndexCorrupt is returned when an entry cannot be parsed
	ErrIndexCorrupt = errors.New("corrupt staging index entry")
)

// IndexEntry mirrors one staging-index record: cached stat() data plus
// the blob id of the file's content at the time it was staged.
type IndexEntry struct {
	CTimeSec  uint32
	CTimeNano uint32
	MTimeSec  uint32
	MTimeNano uint32
	Dev       uint32
	Ino       uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint32
	SHA1      Oid
	Path      string
}

// Index is the in-memory representation of the .git/index file (DIRC v2)
type Index struct {
	Entries []IndexEntry
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{}
}

// Add inserts or replaces (by path) an entry, keeping Entries sorted by
// path as required by the format.
func (idx *Index) Add(e IndexEntry) {
	for i := range idx.Entries {
		if idx.Entries[i].Path == e.Path {
			idx.Entries[i] = e
			return
		}
	}
	idx.Entries = append(idx.Entries, e)
	sort.Slice(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].Path < idx.Entries[j].Path
	})
}

// entryPadding returns how many NUL bytes must follow path so the
// entry (62 fixed bytes + path) ends on an 8-byte boundary, with at
// least one NUL.
func entryPadding(pathLen int) int {
	used := 62 + pathLen
	pad := 8 - (used % 8)
	if pad == 0 {
		pad = 8
	}
	return pad
}

// ReadIndex parses the canonical staging-index encoding: DIRC v2
// header, fixed-prefix/variable-path entries, and a trailing SHA-1
// over everything that precedes it.
func ReadIndex(r io.Reader) (*Index, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("could not read index: %w", err)
	}
	if len(all) < 12+20 {
		return nil, xerrors.Errorf("index too short: %w", ErrIndexCorrupt)
	}

	body := all[:len(all)-20]
	trailer := all[len(all)-20:]
	sum := sha1.Sum(body) //nolint:gosec // fixed by format
	if !bytes.Equal(sum[:], trailer) {
		return nil, xerrors.Errorf("index checksum mismatch: %w", ErrIndexCorrupt)
	}

	if !bytes.Equal(body[0:4], indexSignature[:]) {
		return nil, ErrIndexInvalidMagic
	}
	version := binary.BigEndian.Uint32(body[4:8])
	if version != IndexVersion {
		return nil, xerrors.Errorf("version %d: %w", version, ErrIndexUnsupportedVersion)
	}
	count := binary.BigEndian.Uint32(body[8:12])

	idx := &Index{Entries: make([]IndexEntry, 0, count)}
	offset := 12
	for i := uint32(0); i < count; i++ {
		if offset+62 > len(body) {
			return nil, xerrors.Errorf("entry %d truncated: %w", i, ErrIndexCorrupt)
		}
		e := IndexEntry{}
		fields := []*uint32{
			&e.CTimeSec, &e.CTimeNano, &e.MTimeSec, &e.MTimeNano,
			&e.Dev, &e.Ino, &e.Mode, &e.UID, &e.GID, &e.Size,
		}
		p := offset
		for _, f := range fields {
			*f = binary.BigEndian.Uint32(body[p : p+4])
			p += 4
		}
		copy(e.SHA1[:], body[p:p+20])
		p += 20
		flags := binary.BigEndian.Uint16(body[p : p+2])
		p += 2
		pathLen := int(flags & pathLenMask)

		if p+pathLen > len(body) {
			return nil, xerrors.Errorf("entry %d path truncated: %w", i, ErrIndexCorrupt)
		}
		e.Path = string(body[p : p+pathLen])
		p += pathLen

		pad := entryPadding(pathLen)
		p += pad

		idx.Entries = append(idx.Entries, e)
		offset = p
	}

	return idx, nil
}

// Write emits the canonical staging-index encoding described in
// ReadIndex: header, sorted entries, trailing SHA-1 over the body.
func (idx *Index) Write(w io.Writer) error {
	sort.Slice(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].Path < idx.Entries[j].Path
	})

	buf := new(bytes.Buffer)
	buf.Write(indexSignature[:])
	writeU32(buf, IndexVersion)
	writeU32(buf, uint32(len(idx.Entries)))

	for _, e := range idx.Entries {
		writeU32(buf, e.CTimeSec)
		writeU32(buf, e.CTimeNano)
		writeU32(buf, e.MTimeSec)
		writeU32(buf, e.MTimeNano)
		writeU32(buf, e.Dev)
		writeU32(buf, e.Ino)
		writeU32(buf, e.Mode)
		writeU32(buf, e.UID)
		writeU32(buf, e.GID)
		writeU32(buf, e.Size)
		buf.Write(e.SHA1.Bytes())

		pathLen := len(e.Path)
		flags := uint16(pathLen)
		if pathLen > pathLenMask {
			flags = pathLenMask
		}
		writeU16(buf, flags)
		buf.WriteString(e.Path)
		pad := entryPadding(pathLen)
		buf.Write(make([]byte, pad))
	}

	sum := sha1.Sum(buf.Bytes()) //nolint:gosec // fixed by format
	buf.Write(sum[:])

	if _, err := w.Write(buf.Bytes()); err != nil {
		return xerrors.Errorf("could not write index: %w", err)
	}
	return nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
