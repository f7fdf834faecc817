package serializer

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
)

// errLocked marks a failed non-blocking lock attempt
var errLocked = errors.New("file is locked")

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// NewJSONFileSerializer creates a serializer persisting compact json to the file at path.
func NewJSONFileSerializer[T any](path string, opts ...Option) (ISerializer[T], error) {
	return newFileSerializer[T](FormatJSON, path, opts)
}

// NewXMLFileSerializer creates a serializer persisting compact xml to the file at path.
// knownTypes lists the concrete types that may appear in interface typed fields.
func NewXMLFileSerializer[T any](path string, knownTypes []reflect.Type, opts ...Option) (ISerializer[T], error) {
	return newFileSerializer[T](FormatXML, path, append(opts[:len(opts):len(opts)], WithKnownTypes(knownTypes...)))
}

func newFileSerializer[T any](format Format, path string, opts []Option) (*fileSerializerImpl[T], error) {
	if path == "" {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "path is empty")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	core, err := newSerializerCore(format, o)
	if err != nil {
		return nil, err
	}
	return &fileSerializerImpl[T]{serializerCore: core, path: path}, nil
}

// fileSerializerImpl implements the ISerializer interface for a file path.
// The file is opened, locked and closed once per call.
type fileSerializerImpl[T any] struct {
	*serializerCore
	path string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (s *fileSerializerImpl[T]) Serialize(obj T) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("serialize", start, err) }()

	f, err := openExclusive(s.path, true)
	if err != nil {
		return err
	}
	defer func() { err = release(f, err) }()

	inner := &streamSerializerImpl[T]{serializerCore: s.serializerCore, stream: f}
	if err := inner.serialize(obj); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return cacheerr.NewWithCause(cacheerr.ErrCUnknown, "sync "+s.path, err)
	}
	return nil
}

func (s *fileSerializerImpl[T]) Deserialize() (obj T, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("deserialize", start, err) }()

	f, err := openExclusive(s.path, false)
	if err != nil {
		return obj, err
	}
	defer func() { err = release(f, err) }()

	inner := &streamSerializerImpl[T]{serializerCore: s.serializerCore, stream: f}
	return inner.deserialize()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// openExclusive opens path and takes an exclusive, non-blocking lock on it.
// For writing the file is created if missing and truncated only after the lock is held.
func openExclusive(path string, write bool) (*os.File, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("path %s is a directory", path))
	}

	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "open "+path, err)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errLocked) {
			return nil, cacheerr.NewWithCause(cacheerr.ErrCResourceBusy, path, err)
		}
		return nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "lock "+path, err)
	}

	if write {
		if err := f.Truncate(0); err != nil {
			_ = release(f, nil)
			return nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "truncate "+path, err)
		}
	}
	return f, nil
}

// release unlocks and closes f. The error of the operation (opErr) takes precedence,
// a release failure is only returned if the operation itself succeeded.
func release(f *os.File, opErr error) error {
	var relErr error
	if err := unlockFile(f); err != nil {
		relErr = cacheerr.NewWithCause(cacheerr.ErrCUnknown, "unlock "+f.Name(), err)
	}
	if err := f.Close(); err != nil && relErr == nil {
		relErr = cacheerr.NewWithCause(cacheerr.ErrCUnknown, "close "+f.Name(), err)
	}
	if opErr != nil {
		if relErr != nil {
			log.Warningf("release after failed operation: %v (cause: %v)", relErr, errors.Unwrap(relErr))
		}
		return opErr
	}
	return relErr
}
