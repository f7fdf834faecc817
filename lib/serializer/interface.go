package serializer

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ISerializer persists and restores values of type T.
// Implementations hold no open resource between calls and are safe for concurrent use,
// concurrent calls against the same file fail with cacheerr.ErrCResourceBusy instead of interleaving.
type ISerializer[T any] interface {
	// Serialize writes obj to the target. On failure the target must be treated as corrupt.
	Serialize(obj T) error
	// Deserialize reads a value of type T from the target.
	Deserialize() (T, error)
}

// Stage is one transform layer between the format codec and the target stream.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string
	// WrapWriter returns a writer feeding w. Closing it finalizes the stage.
	WrapWriter(w io.Writer) (io.WriteCloser, error)
	// WrapReader returns a reader consuming r.
	WrapReader(r io.Reader) (io.ReadCloser, error)
	// OwnsUnderlying reports whether closing the stage also closes the wrapped stream.
	OwnsUnderlying() bool
}

// --------------------------------------------------------------------------
// Format
// --------------------------------------------------------------------------

// Format selects the wire format of a serializer.
type Format string

const (
	FormatJSON Format = "json" // compact structured text
	FormatXML  Format = "xml"  // compact tagged markup, requires known types for polymorphic fields
)

// ParseFormat converts a (case-insensitive) format name into a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatXML:
		return f, nil
	default:
		return "", cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid format %q", name))
	}
}

// TypeOf returns the reflect.Type of T, useful for building known type lists.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
