package serializer

import (
	"io"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
)

// Target is the destination of a serializer created with New. Exactly one field must be set.
type Target struct {
	Path   string        // file target, opened and locked per call
	Stream io.ReadWriter // caller owned stream target
}

// New creates a serializer for the given format and target, so that callers can select the
// implementation by configuration. For FormatXML the known types are taken from WithKnownTypes.
func New[T any](format Format, target Target, opts ...Option) (ISerializer[T], error) {
	if (target.Path == "") == (target.Stream == nil) {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "exactly one of path and stream must be set")
	}
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if target.Stream != nil {
		return newStreamSerializer[T](format, target.Stream, opts)
	}
	return newFileSerializer[T](format, target.Path, opts)
}
