package snapshot

import (
	"github.com/ValentinKolb/dPersist/cmd/util"
	"github.com/spf13/cobra"
)

// SnapshotCommands represents the snapshot command group
var SnapshotCommands = &cobra.Command{
	Use:   "snapshot",
	Short: "Create, inspect, convert and verify cache snapshot files",
}

func init() {
	key := "from"
	saveCmd.Flags().String(key, "", util.WrapString("YAML file with a mapping of keys to values used to seed the cache (required)"))
	_ = saveCmd.MarkFlagRequired(key)

	key = "to-format"
	convertCmd.Flags().String(key, "", util.WrapString("Format of the output file (defaults to --format)"))
	key = "to-compress"
	convertCmd.Flags().Bool(key, true, util.WrapString("Whether to compress the output file (defaults to --compress)"))
	key = "to-scheme"
	convertCmd.Flags().String(key, "", util.WrapString("Compression scheme of the output file (defaults to --scheme)"))
	key = "to-level"
	convertCmd.Flags().String(key, "", util.WrapString("Compression level of the output file (defaults to --level)"))

	SnapshotCommands.AddCommand(saveCmd)
	SnapshotCommands.AddCommand(loadCmd)
	SnapshotCommands.AddCommand(convertCmd)
	SnapshotCommands.AddCommand(verifyCmd)
}
