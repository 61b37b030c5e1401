package packfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/internal/readutil"
)

const (
	fanoutSize      = 256
	fanoutEntrySize = 4
	crcEntrySize    = 4
	offsetEntrySize = 4
)

// indexHeader is the 8-byte magic+version prefix of a .idx v2 file
func indexHeader() []byte {
	return []byte{0xFF, 't', 'O', 'c', 0, 0, 0, 2}
}

// PackIndex is a parsed .idx (v2) file: a 256-slot cumulative fanout,
// object names, a CRC-32 per object, and 32-bit offsets into the pack.
//
// header: 8 bytes, see indexHeader
// fanout: 256 * 4 bytes, cumulative counts keyed by an oid's first byte
// names:  numObjects * 20 bytes, ascending
// crc32:  numObjects * 4 bytes
// offset: numObjects * 4 bytes (the 64-bit extension table is not read;
//
//	a set MSB on an offset entry surfaces as ErrUnsupportedFeature)
//
// trailer: 20 bytes pack SHA-1, 20 bytes index SHA-1
//
// https://git-scm.com/docs/pack-format
type PackIndex struct {
	mu sync.Mutex

	r readutil.BufferedReader

	offsets map[ginternals.Oid]uint64
	crc32s  map[ginternals.Oid]uint32
	order   []ginternals.Oid

	parseError error
	parsed     bool
}

// NewIndex validates the header of r and returns a PackIndex that
// will lazily parse the rest of the file on first lookup
func NewIndex(r readutil.BufferedReader) (idx *PackIndex, err error) {
	header := make([]byte, len(indexHeader()))
	if _, err = io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("could not read header of index file: %w", err)
	}
	if !bytes.Equal(header, indexHeader()) {
		return nil, fmt.Errorf("invalid header: %w", ErrInvalidMagic)
	}
	return &PackIndex{r: r}, nil
}

// GetObjectOffset returns the offset of oid in the companion packfile
func (idx *PackIndex) GetObjectOffset(oid ginternals.Oid) (uint64, error) {
	if err := idx.parse(); err != nil {
		return 0, fmt.Errorf("could not parse the index file: %w", err)
	}
	offset, exists := idx.offsets[oid]
	if !exists {
		return 0, ginternals.ErrObjectNotFound
	}
	return offset, nil
}

// GetObjectCRC32 returns the CRC-32 checksum recorded for oid
func (idx *PackIndex) GetObjectCRC32(oid ginternals.Oid) (uint32, error) {
	if err := idx.parse(); err != nil {
		return 0, fmt.Errorf("could not parse the index file: %w", err)
	}
	crc, exists := idx.crc32s[oid]
	if !exists {
		return 0, ginternals.ErrObjectNotFound
	}
	return crc, nil
}

// WalkOids runs f on every oid known to this index, in ascending order
func (idx *PackIndex) WalkOids(f OidWalkFunc) error {
	if err := idx.parse(); err != nil {
		return fmt.Errorf("could not parse the index file: %w", err)
	}
	for _, oid := range idx.order {
		if err := f(oid); err != nil {
			if err == OidWalkStop { //nolint:errorlint,goerr113 // sentinel comparison by design
				return nil
			}
			return err
		}
	}
	return nil
}

// parse reads the fanout, names, CRC table, and offset table into memory
func (idx *PackIndex) parse() (err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.parsed {
		return nil
	}
	if idx.parseError != nil {
		return idx.parseError
	}
	defer func() {
		if err != nil {
			idx.parseError = err
		}
	}()

	bufInt32 := make([]byte, 4)

	// The fanout is a cumulative count: the last slot (for byte 0xff)
	// equals the total object count, so we only need to reach it.
	if _, err = idx.r.Discard((fanoutSize - 1) * fanoutEntrySize); err != nil {
		return fmt.Errorf("could not move pointer to the last fanout entry: %w", err)
	}
	if _, err = io.ReadFull(idx.r, bufInt32); err != nil {
		return fmt.Errorf("couldn't get the total number of objects: %w", err)
	}
	objectCount := int(binary.BigEndian.Uint32(bufInt32))

	oids := make([]ginternals.Oid, 0, objectCount)
	bufOid := make([]byte, ginternals.OidSize)
	for i := 0; i < objectCount; i++ {
		if _, err = io.ReadFull(idx.r, bufOid); err != nil {
			return fmt.Errorf("couldn't get oid %d: %w", i, err)
		}
		oid, oErr := ginternals.NewOidFromHex(bufOid)
		if oErr != nil {
			return fmt.Errorf("invalid oid %d: %w", i, oErr)
		}
		oids = append(oids, oid)
	}

	idx.crc32s = make(map[ginternals.Oid]uint32, objectCount)
	for _, oid := range oids {
		if _, err = io.ReadFull(idx.r, bufInt32); err != nil {
			return fmt.Errorf("couldn't read crc32 of %s: %w", oid.String(), err)
		}
		idx.crc32s[oid] = binary.BigEndian.Uint32(bufInt32)
	}

	idx.offsets = make(map[ginternals.Oid]uint64, objectCount)
	idx.order = oids
	for _, oid := range oids {
		if _, err = io.ReadFull(idx.r, bufInt32); err != nil {
			return fmt.Errorf("couldn't read offset of %s: %w", oid.String(), err)
		}
		entry := binary.BigEndian.Uint32(bufInt32)
		if entry>>31 == 1 {
			return fmt.Errorf("offset of %s needs the 64-bit extension table: %w", oid.String(), ErrUnsupportedFeature)
		}
		idx.offsets[oid] = uint64(entry)
	}

	idx.parsed = true
	return nil
}
