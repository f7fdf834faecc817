package serializer

import (
	"io"
	"reflect"
	"time"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec/jsoncodec"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec/xmlcodec"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("serializer")

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// NewJSONStreamSerializer creates a serializer writing compact json to (and reading it from) rw.
// rw is never closed by the serializer.
func NewJSONStreamSerializer[T any](rw io.ReadWriter, opts ...Option) (ISerializer[T], error) {
	return newStreamSerializer[T](FormatJSON, rw, opts)
}

// NewXMLStreamSerializer creates a serializer writing compact xml to (and reading it from) rw.
// knownTypes lists the concrete types that may appear in interface typed fields.
func NewXMLStreamSerializer[T any](rw io.ReadWriter, knownTypes []reflect.Type, opts ...Option) (ISerializer[T], error) {
	return newStreamSerializer[T](FormatXML, rw, append(opts[:len(opts):len(opts)], WithKnownTypes(knownTypes...)))
}

func newStreamSerializer[T any](format Format, rw io.ReadWriter, opts []Option) (*streamSerializerImpl[T], error) {
	if rw == nil {
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "stream is nil")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	core, err := newSerializerCore(format, o)
	if err != nil {
		return nil, err
	}
	return &streamSerializerImpl[T]{serializerCore: core, stream: rw}, nil
}

// serializerCore is the immutable part shared by stream and file serializers
type serializerCore struct {
	format   Format
	options  *Options
	pipeline *pipeline
	metrics  *opMetrics
}

func newSerializerCore(format Format, o *Options) (*serializerCore, error) {
	reg, err := codec.NewRegistry(o.KnownTypes...)
	if err != nil {
		return nil, err
	}
	var c codec.Codec
	switch format {
	case FormatJSON:
		c = jsoncodec.New(reg)
	case FormatXML:
		c = xmlcodec.New(reg)
	default:
		return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "invalid format "+string(format))
	}
	p, err := newPipeline(c, o)
	if err != nil {
		return nil, err
	}
	return &serializerCore{
		format:   format,
		options:  o,
		pipeline: p,
		metrics:  newOpMetrics(o.Metrics, format),
	}, nil
}

// streamSerializerImpl implements the ISerializer interface on top of a caller owned stream
type streamSerializerImpl[T any] struct {
	*serializerCore
	stream io.ReadWriter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (s *streamSerializerImpl[T]) Serialize(obj T) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("serialize", start, err) }()
	return s.serialize(obj)
}

func (s *streamSerializerImpl[T]) Deserialize() (obj T, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("deserialize", start, err) }()
	return s.deserialize()
}

// serialize is Serialize without metrics, the file serializer records them around the whole file operation
func (s *streamSerializerImpl[T]) serialize(obj T) error {
	if ow, ok := s.stream.(*oneWayStream); ok && ow.w == nil {
		return cacheerr.NewWithDetail(cacheerr.ErrCConfig, "stream is read only")
	}
	log.Debugf("serialize %T via %v (%s)", obj, s.pipeline.stageNames(), s.options)
	return s.pipeline.encode(s.metrics.countWriter(s.stream), &obj)
}

func (s *streamSerializerImpl[T]) deserialize() (obj T, err error) {
	if ow, ok := s.stream.(*oneWayStream); ok && ow.r == nil {
		return obj, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "stream is write only")
	}
	log.Debugf("deserialize %T via %v (%s)", obj, s.pipeline.stageNames(), s.options)
	if err := s.pipeline.decode(s.stream, &obj); err != nil {
		var zero T
		return zero, err
	}
	return obj, nil
}

// --------------------------------------------------------------------------
// One directional streams
// --------------------------------------------------------------------------

// WriterStream adapts a write only stream (e.g. a raft snapshot writer) for use with a stream serializer.
// Deserialize on it fails with a configuration error.
func WriterStream(w io.Writer) io.ReadWriter {
	return &oneWayStream{w: w}
}

// ReaderStream adapts a read only stream for use with a stream serializer.
// Serialize on it fails with a configuration error.
func ReaderStream(r io.Reader) io.ReadWriter {
	return &oneWayStream{r: r}
}

type oneWayStream struct {
	r io.Reader
	w io.Writer
}

func (s *oneWayStream) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "stream is write only")
	}
	return s.r.Read(p)
}

func (s *oneWayStream) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "stream is read only")
	}
	return s.w.Write(p)
}

// Flush forwards to the wrapped writer if it is buffered
func (s *oneWayStream) Flush() error {
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
