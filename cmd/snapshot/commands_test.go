package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/common"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seed = map[string]string{
	"alpha": "1",
	"beta":  "two",
	"gamma": "",
}

func jsonConf() *common.PersistConfig {
	c := common.DefaultPersistConfig()
	return &c
}

func xmlGzipConf() *common.PersistConfig {
	c := common.DefaultPersistConfig()
	c.Format = serializer.FormatXML
	c.Scheme = compress.SchemeGZip
	return &c
}

func TestSaveAndLoad(t *testing.T) {
	for name, conf := range map[string]*common.PersistConfig{"json": jsonConf(), "xml": xmlGzipConf()} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "snap.bin")

			n, err := Save(path, seed, conf)
			require.NoError(t, err)
			assert.Equal(t, len(seed), n)

			c, err := Load(path, conf)
			require.NoError(t, err)
			assert.Equal(t, len(seed), c.Len())
			for k, v := range seed {
				p, ok := c.TryGet(k)
				require.True(t, ok, k)
				assert.Equal(t, v, p.Value())
			}
		})
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")

	_, err := Save(in, seed, jsonConf())
	require.NoError(t, err)

	n, err := Convert(in, out, jsonConf(), xmlGzipConf())
	require.NoError(t, err)
	assert.Equal(t, len(seed), n)

	_, err = Load(out, jsonConf())
	assert.Error(t, err, "converted file must not decode with the source settings")

	c, err := Load(out, xmlGzipConf())
	require.NoError(t, err)
	assert.Equal(t, len(seed), c.Len())
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	bad := filepath.Join(dir, "bad")
	missing := filepath.Join(dir, "missing")

	_, err := Save(good, seed, jsonConf())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(bad, []byte("not a snapshot"), 0o644))

	var out bytes.Buffer
	require.NoError(t, Verify(&out, []string{good}, jsonConf()))
	assert.Contains(t, out.String(), "ok   "+good+" (3 entries)")

	out.Reset()
	err = Verify(&out, []string{bad, good, missing}, jsonConf())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, out.String(), "FAIL "+bad)
	assert.Contains(t, out.String(), "ok   "+good)
	assert.Contains(t, out.String(), "FAIL "+missing)
}

func TestSaveToDirectoryIsConfigError(t *testing.T) {
	_, err := Save(t.TempDir(), seed, jsonConf())
	assert.True(t, cacheerr.IsCode(err, cacheerr.ErrCConfig))
}

func TestReadSeedAndPrintYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("b: 2\na: one\n"), 0o644))

	got, err := readSeed(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "one", "b": "2"}, got)

	snapPath := filepath.Join(t.TempDir(), "snap")
	_, err = Save(snapPath, got, jsonConf())
	require.NoError(t, err)
	c, err := Load(snapPath, jsonConf())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printYAML(&out, c))
	assert.Equal(t, "a: one\nb: \"2\"\n", out.String())

	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o644))
	_, err = readSeed(path)
	assert.Error(t, err)
}
