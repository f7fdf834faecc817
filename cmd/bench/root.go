package bench

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dPersist/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd measures serializer throughput for every format and compression setting
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for the serializer pipeline",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchEntries    = 1000
	benchValueSize  = 64
	benchIterations = 50
	benchSkip       = make([]string, 0)
)

func init() {
	key := "entries"
	BenchCmd.Flags().Int(key, 1000, util.WrapString("Number of cache entries in the benchmarked snapshot"))
	key = "value-size"
	BenchCmd.Flags().Int(key, 64, util.WrapString("Size of each value in bytes"))
	key = "iterations"
	BenchCmd.Flags().Int(key, 50, util.WrapString("How often each configuration is serialized and deserialized"))
	key = "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Configurations to skip (comma separated - e.g. xml,gzip)"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchEntries = viper.GetInt("entries")
	benchValueSize = viper.GetInt("value-size")
	benchIterations = viper.GetInt("iterations")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	if benchEntries < 0 || benchValueSize < 0 || benchIterations <= 0 {
		return fmt.Errorf("entries and value-size must not be negative, iterations must be positive")
	}
	return nil
}
