package snapshot

import (
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/dPersist/cmd/util"
	"github.com/ValentinKolb/dPersist/lib/cache"
	"github.com/ValentinKolb/dPersist/lib/cache/lcache"
	"github.com/ValentinKolb/dPersist/lib/common"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var log = logger.GetLogger("cli")

// File is the content of a snapshot file written by the CLI
type File = cache.Snapshot[string, string]

var (
	saveCmd = &cobra.Command{
		Use:   "save [file]",
		Short: "Seeds a cache from a YAML file and writes its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := util.GetPersistConfig()
			if err != nil {
				return err
			}
			seed, err := readSeed(viper.GetString("from"))
			if err != nil {
				return err
			}
			n, err := Save(args[0], seed, conf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d entries to %s\n", n, args[0])
			return nil
		},
	}
	loadCmd = &cobra.Command{
		Use:   "load [file]",
		Short: "Reads a snapshot file and prints its entries as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := util.GetPersistConfig()
			if err != nil {
				return err
			}
			c, err := Load(args[0], conf)
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), c)
		},
	}
	convertCmd = &cobra.Command{
		Use:   "convert [in] [out]",
		Short: "Rewrites a snapshot file with another format or compression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := util.GetPersistConfig()
			if err != nil {
				return err
			}
			dst, err := util.ReadPersistConfig(viper.GetViper(), "to-")
			if err != nil {
				return err
			}
			n, err := Convert(args[0], args[1], src, dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d entries from %s (%s) to %s (%s)\n", n, args[0], src.Format, args[1], dst.Format)
			return nil
		},
	}
	verifyCmd = &cobra.Command{
		Use:   "verify [files...]",
		Short: "Checks that every file decodes with the current settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := util.GetPersistConfig()
			if err != nil {
				return err
			}
			return Verify(cmd.OutOrStdout(), args, conf)
		},
	}
)

// --------------------------------------------------------------------------
// Operations (used by the commands above, callable without cobra)
// --------------------------------------------------------------------------

// Save fills a local cache with seed and writes its snapshot to path. It returns the number of entries written.
func Save(path string, seed map[string]string, conf *common.PersistConfig) (int, error) {
	c := lcache.NewLocalCache[string, string]()
	for k, v := range seed {
		c.AddOrReplaceUnsafe(k, v)
	}
	s, err := serializer.New[File](conf.Format, serializer.Target{Path: path}, conf.SerializerOptions()...)
	if err != nil {
		return 0, err
	}
	snap := cache.TakeSnapshot[string, string](c)
	if err := s.Serialize(snap); err != nil {
		return 0, err
	}
	log.Infof("wrote %d entries to %s", snap.Len(), path)
	return snap.Len(), nil
}

// Load reads the snapshot at path into a new local cache.
func Load(path string, conf *common.PersistConfig) (cache.ICacheData[string, string], error) {
	s, err := serializer.New[File](conf.Format, serializer.Target{Path: path}, conf.SerializerOptions()...)
	if err != nil {
		return nil, err
	}
	snap, err := s.Deserialize()
	if err != nil {
		return nil, err
	}
	c := lcache.NewLocalCache[string, string]()
	cache.Restore(c, snap)
	return c, nil
}

// Convert reads in with src and writes the same entries to out with dst.
func Convert(in, out string, src, dst *common.PersistConfig) (int, error) {
	c, err := Load(in, src)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", in, err)
	}
	s, err := serializer.New[File](dst.Format, serializer.Target{Path: out}, dst.SerializerOptions()...)
	if err != nil {
		return 0, err
	}
	snap := cache.TakeSnapshot[string, string](c)
	if err := s.Serialize(snap); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", out, err)
	}
	return snap.Len(), nil
}

// Verify decodes every file and reports one line per file to w. Failures are collected, so
// one broken file does not hide the state of the others.
func Verify(w io.Writer, paths []string, conf *common.PersistConfig) error {
	var result *multierror.Error
	for _, path := range paths {
		c, err := Load(path, conf)
		if err != nil {
			fmt.Fprintf(w, "FAIL %s: %v\n", path, err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(w, "ok   %s (%d entries)\n", path, c.Len())
	}
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// readSeed parses a YAML mapping of keys to scalar values
func readSeed(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	seed := make(map[string]string)
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("seed file %s is not a mapping of keys to values: %w", path, err)
	}
	return seed, nil
}

// printYAML writes the cache content as a sorted YAML mapping
func printYAML(w io.Writer, c cache.ICache[string, string]) error {
	out := make(map[string]string, c.Len())
	for p := range c.All() {
		out[p.Key()] = p.Value()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
