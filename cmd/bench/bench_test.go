package bench

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/dPersist/lib/serializer"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCases(t *testing.T) {
	cases := Cases()
	assert.Len(t, cases, 2*(1+2*4))

	seen := make(map[string]bool)
	for _, c := range cases {
		assert.False(t, seen[c.Name], "duplicate case %s", c.Name)
		seen[c.Name] = true
	}
	assert.True(t, seen["json/plain"])
	assert.True(t, seen["xml/gzip/smallest"])
}

func TestMeasure(t *testing.T) {
	r := gometrics.NewRegistry()
	p := Payload(20, 16)
	require.Equal(t, 20, p.Len())

	for _, c := range Cases() {
		t.Run(c.Name, func(t *testing.T) {
			res, err := Measure(r, c, p, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(2), res.Serialize.Count())
			assert.Equal(t, int64(2), res.Deserialize.Count())
			assert.Positive(t, res.Bytes)
		})
	}
	assert.NotNil(t, r.Get("json/plain/serialize"))
}

func TestShouldSkip(t *testing.T) {
	benchSkip = []string{"xml", "json/deflate/fastest"}
	defer func() { benchSkip = nil }()

	assert.True(t, shouldSkip("xml/plain"))
	assert.True(t, shouldSkip("json/deflate/fastest"))
	assert.False(t, shouldSkip("json/deflate/optimal"))
	assert.False(t, shouldSkip("json/plain"))
}

func TestWriteResultsToCSV(t *testing.T) {
	r := gometrics.NewRegistry()
	res, err := Measure(r, Case{Name: "json/plain", Format: serializer.FormatJSON, Opts: []serializer.Option{serializer.WithCompression(false)}}, Payload(3, 4), 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeResultsToCSV(path, []Result{res}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Case,Format,Iterations"))
	assert.True(t, strings.HasPrefix(lines[1], "json/plain,json,1,"))
}
