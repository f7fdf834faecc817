package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeTracker records whether Close was called on the wrapped buffer
type closeTracker struct {
	bytes.Buffer
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func compressBytes(t *testing.T, data []byte, scheme Scheme, level Level) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, scheme, level)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200))

	for _, scheme := range []Scheme{SchemeDeflate, SchemeGZip} {
		for _, level := range []Level{LevelOptimal, LevelFastest, LevelSmallestSize, LevelNoCompression} {
			t.Run(scheme.String()+"/"+level.String(), func(t *testing.T) {
				compressed := compressBytes(t, payload, scheme, level)
				if level != LevelNoCompression {
					assert.Less(t, len(compressed), len(payload))
				}

				r, err := NewReader(bytes.NewReader(compressed), scheme)
				require.NoError(t, err)
				out, err := io.ReadAll(r)
				require.NoError(t, err)
				require.NoError(t, r.Close())
				assert.Equal(t, payload, out)
			})
		}
	}
}

func TestCloseKeepsUnderlyingOpen(t *testing.T) {
	for _, scheme := range []Scheme{SchemeDeflate, SchemeGZip} {
		t.Run(scheme.String(), func(t *testing.T) {
			target := &closeTracker{}
			w, err := NewWriter(target, scheme, LevelOptimal)
			require.NoError(t, err)
			_, err = w.Write([]byte("hello"))
			require.NoError(t, err)

			before := target.Len()
			require.NoError(t, w.Close())
			assert.False(t, target.closed)
			// the trailer is only emitted on close
			assert.Greater(t, target.Len(), before)

			_, err = target.Write([]byte("more"))
			assert.NoError(t, err)
		})
	}
}

func TestSchemeMismatchFails(t *testing.T) {
	payload := []byte(`{"key":"a","value":1}`)

	t.Run("gzip read as deflate", func(t *testing.T) {
		gz := compressBytes(t, payload, SchemeGZip, LevelFastest)
		r, err := NewReader(bytes.NewReader(gz), SchemeDeflate)
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		assert.Error(t, err)
	})

	t.Run("deflate read as gzip", func(t *testing.T) {
		raw := compressBytes(t, payload, SchemeDeflate, LevelFastest)
		_, err := NewReader(bytes.NewReader(raw), SchemeGZip)
		require.Error(t, err)
		assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCUnknown))
	})
}

func TestDeterministicOutput(t *testing.T) {
	payload := []byte(strings.Repeat("abc", 1000))
	for _, scheme := range []Scheme{SchemeDeflate, SchemeGZip} {
		a := compressBytes(t, payload, scheme, LevelOptimal)
		b := compressBytes(t, payload, scheme, LevelOptimal)
		assert.Equal(t, a, b, scheme.String())
	}
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := NewWriter(io.Discard, Scheme(9), LevelOptimal)
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))

	_, err = NewWriter(io.Discard, SchemeDeflate, Level(9))
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))

	_, err = NewReader(bytes.NewReader(nil), Scheme(9))
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))

	_, err = NewMiddleware(Scheme(9), LevelOptimal)
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		scheme Scheme
		ok     bool
	}{
		{"deflate", SchemeDeflate, true},
		{"GZIP", SchemeGZip, true},
		{"", SchemeDeflate, true},
		{"brotli", SchemeDeflate, false},
	}
	for _, tt := range tests {
		s, err := ParseScheme(tt.in)
		if tt.ok {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.scheme, s, tt.in)
		} else {
			assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig), tt.in)
		}
	}

	for _, l := range []Level{LevelOptimal, LevelFastest, LevelSmallestSize, LevelNoCompression} {
		parsed, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
	_, err := ParseLevel("ultra")
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))
}

func TestMiddleware(t *testing.T) {
	m, err := NewMiddleware(SchemeGZip, LevelFastest)
	require.NoError(t, err)
	assert.Equal(t, "compress/gzip", m.Name())
	assert.False(t, m.OwnsUnderlying())

	var buf bytes.Buffer
	w, err := m.WrapWriter(&buf)
	require.NoError(t, err)
	_, _ = w.Write([]byte("stage"))
	require.NoError(t, w.Close())

	r, err := m.WrapReader(&buf)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "stage", string(out))
}
