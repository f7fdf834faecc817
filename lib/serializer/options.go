package serializer

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	"github.com/VictoriaMetrics/metrics"
)

// Options is the configuration of a serializer. It is copied at construction, later changes have no effect.
type Options struct {
	UseCompression bool            // wrap the target with the compression stage (default true)
	Scheme         compress.Scheme // compression algorithm (default deflate)
	Level          compress.Level  // compression aggressiveness (default optimal)
	KnownTypes     []reflect.Type  // concrete types allowed in interface typed fields
	Metrics        *metrics.Set    // optional metrics set, nil disables metrics
}

// Option mutates Options during construction.
type Option func(*Options)

// DefaultOptions returns the default configuration: deflate compression at the optimal level.
func DefaultOptions() *Options {
	return &Options{
		UseCompression: true,
		Scheme:         compress.SchemeDeflate,
		Level:          compress.LevelOptimal,
	}
}

// WithCompression enables or disables the compression stage.
func WithCompression(enabled bool) Option {
	return func(o *Options) { o.UseCompression = enabled }
}

// WithScheme sets the compression scheme.
func WithScheme(scheme compress.Scheme) Option {
	return func(o *Options) { o.Scheme = scheme }
}

// WithLevel sets the compression level.
func WithLevel(level compress.Level) Option {
	return func(o *Options) { o.Level = level }
}

// WithKnownTypes adds concrete types that may appear in interface typed fields.
func WithKnownTypes(types ...reflect.Type) Option {
	return func(o *Options) { o.KnownTypes = append(o.KnownTypes, types...) }
}

// WithMetrics records operation counters and durations into set.
func WithMetrics(set *metrics.Set) Option {
	return func(o *Options) { o.Metrics = set }
}

func buildOptions(opts []Option) (*Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.KnownTypes = append([]reflect.Type(nil), o.KnownTypes...)
	if !o.Scheme.Valid() {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression scheme %s", o.Scheme))
	}
	if !o.Level.Valid() {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("invalid compression level %s", o.Level))
	}
	return o, nil
}

// String returns a short human readable description, used in logs
func (o *Options) String() string {
	var sb strings.Builder
	if o.UseCompression {
		fmt.Fprintf(&sb, "compression=%s/%s", o.Scheme, o.Level)
	} else {
		sb.WriteString("compression=off")
	}
	fmt.Fprintf(&sb, " knownTypes=%d metrics=%t", len(o.KnownTypes), o.Metrics != nil)
	return sb.String()
}
