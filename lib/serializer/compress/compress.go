package compress

import (
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// --------------------------------------------------------------------------
// Scheme and Level
// --------------------------------------------------------------------------

// Scheme selects the compression algorithm. The zero value is SchemeDeflate.
type Scheme uint8

const (
	SchemeDeflate Scheme = iota // raw deflate stream, no framing
	SchemeGZip                  // gzip framing (header, deflate body, crc trailer)
)

func (s Scheme) String() string {
	switch s {
	case SchemeDeflate:
		return "deflate"
	case SchemeGZip:
		return "gzip"
	default:
		return fmt.Sprintf("Scheme(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined schemes.
func (s Scheme) Valid() bool {
	return s == SchemeDeflate || s == SchemeGZip
}

// ParseScheme converts a (case-insensitive) scheme name into a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deflate", "":
		return SchemeDeflate, nil
	case "gzip", "gz":
		return SchemeGZip, nil
	default:
		return SchemeDeflate, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression scheme %q", name))
	}
}

// Level controls the time/size trade-off of the compressor. The zero value is LevelOptimal.
// The level has no influence on decompression.
type Level uint8

const (
	LevelOptimal       Level = iota // balanced speed and size
	LevelFastest                    // fastest compression
	LevelSmallestSize               // smallest output
	LevelNoCompression              // stored blocks only
)

func (l Level) String() string {
	switch l {
	case LevelOptimal:
		return "optimal"
	case LevelFastest:
		return "fastest"
	case LevelSmallestSize:
		return "smallest"
	case LevelNoCompression:
		return "none"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l <= LevelNoCompression
}

// ParseLevel converts a (case-insensitive) level name into a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "optimal", "default", "":
		return LevelOptimal, nil
	case "fastest", "fast":
		return LevelFastest, nil
	case "smallest", "smallestsize", "best":
		return LevelSmallestSize, nil
	case "none", "nocompression":
		return LevelNoCompression, nil
	default:
		return LevelOptimal, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression level %q", name))
	}
}

// flateLevel maps a Level to the numeric level understood by the deflate and gzip writers
func flateLevel(l Level) (int, error) {
	switch l {
	case LevelOptimal:
		return flate.DefaultCompression, nil
	case LevelFastest:
		return flate.BestSpeed, nil
	case LevelSmallestSize:
		return flate.BestCompression, nil
	case LevelNoCompression:
		return flate.NoCompression, nil
	default:
		return 0, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression level %s", l))
	}
}

// --------------------------------------------------------------------------
// Writer / Reader
// --------------------------------------------------------------------------

// NewWriter returns a compressing writer on top of w.
// Close finalizes the compressed stream (the trailing bytes are written to w), but never closes w itself.
func NewWriter(w io.Writer, scheme Scheme, level Level) (io.WriteCloser, error) {
	lvl, err := flateLevel(level)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case SchemeDeflate:
		fw, err := flate.NewWriter(w, lvl)
		if err != nil {
			return nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "create deflate writer", err)
		}
		return fw, nil
	case SchemeGZip:
		gw, err := gzip.NewWriterLevel(w, lvl)
		if err != nil {
			return nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "create gzip writer", err)
		}
		return gw, nil
	default:
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression scheme %s", scheme))
	}
}

// NewReader returns a decompressing reader on top of r. Close releases the decompressor, r stays open.
// For gzip the header is read eagerly, so a stream without gzip framing fails here. The gzip checksum
// is verified when the reader reaches the end of the member.
func NewReader(r io.Reader, scheme Scheme) (io.ReadCloser, error) {
	switch scheme {
	case SchemeDeflate:
		return flate.NewReader(r), nil
	case SchemeGZip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, cacheerr.NewWithCause(cacheerr.ErrCUnknown, "read gzip header", err)
		}
		// one member per value, the end of the member (checksum included) is the end of the stream
		gr.Multistream(false)
		return gr, nil
	default:
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression scheme %s", scheme))
	}
}

// --------------------------------------------------------------------------
// Pipeline Stage
// --------------------------------------------------------------------------

// Middleware is the compression stage of a serializer pipeline.
type Middleware struct {
	Scheme Scheme
	Level  Level
}

// NewMiddleware validates scheme and level and returns the stage.
func NewMiddleware(scheme Scheme, level Level) (*Middleware, error) {
	if !scheme.Valid() {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression scheme %s", scheme))
	}
	if !level.Valid() {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression level %s", level))
	}
	return &Middleware{Scheme: scheme, Level: level}, nil
}

func (m *Middleware) Name() string {
	return "compress/" + m.Scheme.String()
}

func (m *Middleware) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return NewWriter(w, m.Scheme, m.Level)
}

func (m *Middleware) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return NewReader(r, m.Scheme)
}

// OwnsUnderlying is always false: the wrapped stream belongs to the caller.
func (m *Middleware) OwnsUnderlying() bool {
	return false
}
