package fsbackend

import (
	"compress/zlib"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/ginternals/packfile"
	"github.com/mycroft/mg/internal/errutil"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/mycroft/mg/internal/readutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the backend satisfies the packfile.ObjectBackend
// contract, so a pack reader can resolve a ref-delta base that lives
// outside its own pack
var _ packfile.ObjectBackend = (*Backend)(nil)

// Object returns the object that has the given oid.
// This method can be called concurrently.
func (b *Backend) Object(oid ginternals.Oid) (*object.Object, error) {
	key := oid[:]
	b.objectMu.Lock(key)
	defer b.objectMu.Unlock(key)

	return b.objectUnsafe(oid)
}

func (b *Backend) objectUnsafe(oid ginternals.Oid) (*object.Object, error) {
	if cached, found := b.cache.Get(oid); found {
		if o, valid := cached.(*object.Object); valid {
			return o, nil
		}
	}

	o, err := b.looseObject(oid)
	if err == nil {
		b.cache.Add(oid, o)
		return o, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, xerrors.Errorf("failed looking for loose object: %w", err)
	}

	o, err = b.objectFromPackfile(oid)
	if err != nil {
		return nil, err
	}
	b.cache.Add(oid, o)
	return o, nil
}

// looseObjectPath returns the absolute path of an object:
// .git/objects/<first 2 chars of sha>/<remaining chars of sha>
func (b *Backend) looseObjectPath(sha string) string {
	return filepath.Join(b.root, gitpath.ObjectsPath, sha[:2], sha[2:])
}

// looseObject returns the loose object matching the given oid
func (b *Backend) looseObject(oid ginternals.Oid) (o *object.Object, err error) {
	strOid := oid.String()
	p := b.looseObjectPath(strOid)
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, xerrors.Errorf("could not get object %s at path %s: %w", strOid, p, err)
	}
	defer errutil.Close(f, &err)

	zlibReader, err := zlib.NewReader(f)
	if err != nil {
		return nil, xerrors.Errorf("could not decompress object %s at path %s: %w", strOid, p, err)
	}
	defer errutil.Close(zlibReader, &err)

	buff, err := io.ReadAll(zlibReader)
	if err != nil {
		return nil, xerrors.Errorf("could not read object %s at path %s: %w", strOid, p, err)
	}

	pointerPos := 0

	typ := readutil.ReadTo(buff, ' ')
	if typ == nil {
		return nil, xerrors.Errorf("could not find object type for %s at path %s", strOid, p)
	}
	oType, err := object.NewTypeFromString(string(typ))
	if err != nil {
		return nil, xerrors.Errorf("unsupported type %s for object %s at path %s", string(typ), strOid, p)
	}
	pointerPos += len(typ)
	pointerPos++ // the space

	size := readutil.ReadTo(buff[pointerPos:], 0)
	if size == nil {
		return nil, xerrors.Errorf("could not find object size for %s at path %s", strOid, p)
	}
	oSize, err := strconv.Atoi(string(size))
	if err != nil {
		return nil, xerrors.Errorf("invalid size %s for object %s at path %s: %w", size, strOid, p, err)
	}
	pointerPos += len(size)
	pointerPos++ // the NUL
	oContent := buff[pointerPos:]

	if len(oContent) != oSize {
		return nil, xerrors.Errorf("object marked as size %d, but has %d at path %s", oSize, len(oContent), p)
	}

	return object.New(oType, oContent), nil
}

// loadPacks loads every packfile under objects/pack into memory
func (b *Backend) loadPacks() error {
	b.packMu.Lock()
	defer b.packMu.Unlock()

	p := filepath.Join(b.root, gitpath.ObjectsPackPath)
	return afero.Walk(b.fs, p, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// an empty repo may not have an objects/pack directory at all
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(info.Name()) != packfile.ExtPackfile {
			return nil
		}

		pack, err := packfile.NewFromFileWithBackend(b.fs, path, b)
		if err != nil {
			return xerrors.Errorf("could not parse packfile at %s: %w", path, err)
		}
		id, err := pack.ID()
		if err != nil {
			return xerrors.Errorf("could not read id of packfile at %s: %w", path, err)
		}
		b.packfiles[id] = pack
		return nil
	})
}

// objectFromPackfile looks for an object in every loaded packfile
func (b *Backend) objectFromPackfile(oid ginternals.Oid) (*object.Object, error) {
	if err := b.ensurePacksLoaded(); err != nil {
		return nil, err
	}

	b.packMu.RLock()
	defer b.packMu.RUnlock()

	for _, pack := range b.packfiles {
		o, err := pack.GetObject(oid)
		if err == nil {
			return o, nil
		}
		if errors.Is(err, ginternals.ErrObjectNotFound) {
			continue
		}
		return nil, err
	}
	return nil, ginternals.ErrObjectNotFound
}

func (b *Backend) ensurePacksLoaded() error {
	b.packMu.RLock()
	loaded := b.packsLoaded
	b.packMu.RUnlock()
	if loaded {
		return nil
	}
	if err := b.loadPacks(); err != nil {
		return err
	}
	b.packMu.Lock()
	b.packsLoaded = true
	b.packMu.Unlock()
	return nil
}

// HasObject returns whether an object exists in the odb.
// This method can be called concurrently.
func (b *Backend) HasObject(oid ginternals.Oid) (bool, error) {
	key := oid[:]
	b.objectMu.Lock(key)
	defer b.objectMu.Unlock(key)

	return b.hasObjectUnsafe(oid)
}

func (b *Backend) hasObjectUnsafe(oid ginternals.Oid) (bool, error) {
	_, err := b.objectUnsafe(oid)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ginternals.ErrObjectNotFound) {
		return false, nil
	}
	return false, xerrors.Errorf("could not get object: %w", err)
}

// WriteObject adds an object to the odb as a loose object.
// This method can be called concurrently.
func (b *Backend) WriteObject(o *object.Object) (ginternals.Oid, error) {
	data, err := o.Compress()
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not compress object: %w", err)
	}

	oid := o.ID()
	b.objectMu.Lock(oid[:])
	defer b.objectMu.Unlock(oid[:])

	found, err := b.hasObjectUnsafe(oid)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not check if object (%s) already exists: %w", oid.String(), err)
	}
	if found {
		return oid, nil
	}

	sha := oid.String()
	p := b.looseObjectPath(sha)
	dest := filepath.Dir(p)
	if err = b.fs.MkdirAll(dest, 0o750); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not create the destination directory %s: %w", dest, err)
	}

	// git objects are read-only once written
	if err = afero.WriteFile(b.fs, p, data, 0o444); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not persist object %s at path %s: %w", sha, p, err)
	}

	b.looseObjects.Store(oid, struct{}{})
	b.cache.Add(oid, o)
	return oid, nil
}

// WalkPackedObjectIDs runs f on every oid of every loaded packfile
func (b *Backend) WalkPackedObjectIDs(f packfile.OidWalkFunc) error {
	if err := b.ensurePacksLoaded(); err != nil {
		return err
	}

	b.packMu.RLock()
	defer b.packMu.RUnlock()

	for _, pack := range b.packfiles {
		if err := pack.WalkOids(f); err != nil {
			return err
		}
	}
	return nil
}

// loadLooseObjects indexes every loose object present on disk
func (b *Backend) loadLooseObjects() error {
	p := filepath.Join(b.root, gitpath.ObjectsPath)
	return afero.Walk(b.fs, p, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path == p {
			return nil
		}
		if info.IsDir() {
			if !isLooseObjectDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		prefix := filepath.Base(filepath.Dir(path))
		if !isLooseObjectDir(prefix) {
			return nil
		}
		if filepath.Ext(info.Name()) != "" {
			return nil
		}

		sha := prefix + info.Name()
		oid, oErr := ginternals.NewOidFromStr(sha)
		if oErr != nil {
			return xerrors.Errorf("could not get oid from %s: %w", sha, oErr)
		}
		b.looseObjects.Store(oid, struct{}{})
		return nil
	})
}

// isLooseObjectDir checks if a directory name is anything between 00 and ff
func isLooseObjectDir(name string) bool {
	if len(name) != 2 {
		return false
	}
	dirNum, err := strconv.ParseInt(name, 16, 64)
	return err == nil && dirNum >= 0x00 && dirNum <= 0xff
}

// WalkLooseObjectIDs runs f on every loose object's oid
func (b *Backend) WalkLooseObjectIDs(f packfile.OidWalkFunc) (err error) {
	if err = b.loadLooseObjects(); err != nil {
		return xerrors.Errorf("could not load loose objects: %w", err)
	}

	b.looseObjects.Range(func(key, _ interface{}) bool {
		err = f(key.(ginternals.Oid)) //nolint:forcetypeassert // key is always an Oid, we control every Store call
		if err != nil {
			if errors.Is(err, packfile.OidWalkStop) {
				err = nil
			}
			return false
		}
		return true
	})
	return err
}
