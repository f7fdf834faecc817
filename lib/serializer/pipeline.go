package serializer

import (
	"io"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
)

// pipeline is the ordered list of stages (outermost first) in front of a format codec.
// It is built once per serializer and holds no per call state.
type pipeline struct {
	stages []Stage
	codec  codec.Codec
}

func newPipeline(c codec.Codec, o *Options) (*pipeline, error) {
	p := &pipeline{codec: c}
	if o.UseCompression {
		m, err := compress.NewMiddleware(o.Scheme, o.Level)
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, m)
	}
	for _, s := range p.stages {
		// the target stream always belongs to the caller
		if s.OwnsUnderlying() {
			return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, "stage "+s.Name()+" must not own the target stream")
		}
	}
	return p, nil
}

// flusher is implemented by buffered targets (e.g. *bufio.Writer)
type flusher interface {
	Flush() error
}

// encode writes ptr through all stages into w. On success every stage has been finalized
// innermost first and w has been flushed if it supports flushing. w is never closed.
func (p *pipeline) encode(w io.Writer, ptr any) error {
	opened := make([]io.WriteCloser, 0, len(p.stages))
	defer func() {
		// only reached with open stages on failure
		for i := len(opened) - 1; i >= 0; i-- {
			if cerr := opened[i].Close(); cerr != nil {
				log.Warningf("release of stage %s failed: %v", p.stages[i].Name(), cerr)
			}
		}
	}()

	var sink io.Writer = w
	for _, s := range p.stages {
		sw, err := s.WrapWriter(sink)
		if err != nil {
			return cacheerr.Wrap(cacheerr.ErrCUnknown, "open stage "+s.Name(), err)
		}
		opened = append(opened, sw)
		sink = sw
	}

	if err := p.codec.Encode(sink, ptr); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "encode "+p.codec.Name(), err)
	}

	for i := len(opened) - 1; i >= 0; i-- {
		sw := opened[i]
		opened = opened[:i]
		if err := sw.Close(); err != nil {
			return cacheerr.Wrap(cacheerr.ErrCUnknown, "finalize stage "+p.stages[i].Name(), err)
		}
	}

	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return cacheerr.Wrap(cacheerr.ErrCUnknown, "flush target stream", err)
		}
	}
	return nil
}

// decode reads ptr from r through all stages and reads the stages to their end. All stages are
// released on return, r is never closed.
func (p *pipeline) decode(r io.Reader, ptr any) error {
	opened := make([]io.ReadCloser, 0, len(p.stages))
	defer func() {
		for i := len(opened) - 1; i >= 0; i-- {
			if cerr := opened[i].Close(); cerr != nil {
				log.Warningf("release of stage %s failed: %v", p.stages[i].Name(), cerr)
			}
		}
	}()

	var source io.Reader = r
	for _, s := range p.stages {
		sr, err := s.WrapReader(source)
		if err != nil {
			return cacheerr.Wrap(cacheerr.ErrCUnknown, "open stage "+s.Name(), err)
		}
		opened = append(opened, sr)
		source = sr
	}

	if err := p.codec.Decode(source, ptr); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "decode "+p.codec.Name(), err)
	}

	// stages verify their trailer (e.g. the gzip checksum) only once they are read to the end
	if len(opened) > 0 {
		if _, err := io.Copy(io.Discard, source); err != nil {
			return cacheerr.Wrap(cacheerr.ErrCUnknown, "drain stage "+p.stages[len(p.stages)-1].Name(), err)
		}
	}
	return nil
}

// stageNames is used for logging
func (p *pipeline) stageNames() []string {
	names := make([]string, 0, len(p.stages)+1)
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return append(names, p.codec.Name())
}
