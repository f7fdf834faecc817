package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dPersist/cmd/bench"
	"github.com/ValentinKolb/dPersist/cmd/snapshot"
	"github.com/ValentinKolb/dPersist/cmd/util"
	"github.com/ValentinKolb/dPersist/lib/common"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dpersist",
		Short: "cache snapshot persistence",
		Long: fmt.Sprintf(`dPersist (v%s)

Serializes cache snapshots to files and streams as JSON or XML,
optionally compressed with deflate or gzip.`, Version),
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: dumpMetrics,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dPersist",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dPersist v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(snapshot.SnapshotCommands)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupPersistFlags(RootCmd)
}

// setup binds the flags of the executed command and configures logging
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	conf, err := util.GetPersistConfig()
	if err != nil {
		return err
	}
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return err
	}
	util.PrintConfig(conf)
	return nil
}

// dumpMetrics writes the serializer metrics to stderr if --metrics is set
func dumpMetrics(_ *cobra.Command, _ []string) error {
	conf, err := util.GetPersistConfig()
	if err != nil || conf.Metrics == nil {
		return err
	}
	conf.Metrics.WritePrometheus(os.Stderr)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
