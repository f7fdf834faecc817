package codec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Codec is the format stage of the serializer pipeline. Implementations are stateless per call.
type Codec interface {
	// Name returns the short format name (e.g. "json").
	Name() string
	// Encode writes the value ptr points to into w. Everything buffered internally is flushed to w
	// before Encode returns, w itself is neither flushed nor closed.
	Encode(w io.Writer, ptr any) error
	// Decode reads one value from r and stores it in the value ptr points to.
	Decode(r io.Reader, ptr any) error
}

// --------------------------------------------------------------------------
// Type Registry
// --------------------------------------------------------------------------

// Registry holds the concrete types that may appear in interface typed positions of a serialized value.
// Every serializer owns its own registry, there is no process wide type table.
type Registry struct {
	byName map[string]reflect.Type
}

// NewRegistry validates and registers the given types. A nil type or an interface type is a configuration error.
func NewRegistry(types ...reflect.Type) (*Registry, error) {
	r := &Registry{byName: make(map[string]reflect.Type, len(types))}
	for i, t := range types {
		if t == nil {
			return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("known type #%d is nil", i))
		}
		if t.Kind() == reflect.Interface {
			return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("known type %s is not concrete", t))
		}
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		r.byName[NameOf(t)] = t
	}
	return r, nil
}

// Types returns the registered types (pointer types are stored by their element type).
func (r *Registry) Types() []reflect.Type {
	out := make([]reflect.Type, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	return out
}

// Known reports whether values of type t may be written into an interface typed position.
// Predeclared types are always known.
func (r *Registry) Known(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if isPredeclared(t) {
		return true
	}
	registered, ok := r.byName[NameOf(t)]
	return ok && registered == t
}

// Lookup resolves a type name produced by NameOf.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	if len(name) > 0 && name[0] == '*' {
		elem, ok := r.Lookup(name[1:])
		if !ok {
			return nil, false
		}
		return reflect.PointerTo(elem), true
	}
	if t, ok := predeclared[name]; ok {
		return t, true
	}
	t, ok := r.byName[name]
	return t, ok
}

// NameOf returns the stable name of t as written into serialized output.
func NameOf(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + NameOf(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var predeclared = func() map[string]reflect.Type {
	m := make(map[string]reflect.Type)
	for _, v := range []any{
		false, "", 0, int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0), uintptr(0),
		float32(0), float64(0), []byte(nil),
	} {
		t := reflect.TypeOf(v)
		m[t.String()] = t
	}
	return m
}()

func isPredeclared(t reflect.Type) bool {
	p, ok := predeclared[t.String()]
	return ok && p == t
}
