package util

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ValentinKolb/dPersist/lib/common"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupPersistFlags adds the serializer flags shared by all commands
func SetupPersistFlags(cmd *cobra.Command) {
	d := common.DefaultPersistConfig()

	key := "format"
	cmd.PersistentFlags().String(key, string(d.Format), WrapString("Wire format of snapshot files (json, xml)"))

	key = "compress"
	cmd.PersistentFlags().Bool(key, d.UseCompression, WrapString("Whether to compress snapshot files"))

	key = "scheme"
	cmd.PersistentFlags().String(key, d.Scheme.String(), WrapString("Compression scheme (deflate, gzip), ignored without --compress"))

	key = "level"
	cmd.PersistentFlags().String(key, d.Level.String(), WrapString("Compression level (optimal, fastest, smallest, none)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, d.LogLevel, WrapString("Log level (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print serializer metrics in prometheus format to stderr on exit"))
}

// InitConfig initializes configuration from .env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dpersist")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetPersistConfig reads the serializer configuration from viper
func GetPersistConfig() (*common.PersistConfig, error) {
	return ReadPersistConfig(viper.GetViper(), "")
}

// ReadPersistConfig reads a serializer configuration from v. Every key is looked up with prefix
// first, so "to-" reads the target side of a conversion. Keys missing under prefix fall back to the
// unprefixed key.
func ReadPersistConfig(v *viper.Viper, prefix string) (*common.PersistConfig, error) {
	get := func(key string) string {
		if prefix != "" && v.IsSet(prefix+key) {
			return v.GetString(prefix + key)
		}
		return v.GetString(key)
	}

	format, err := serializer.ParseFormat(get("format"))
	if err != nil {
		return nil, err
	}
	scheme, err := compress.ParseScheme(get("scheme"))
	if err != nil {
		return nil, err
	}
	level, err := compress.ParseLevel(get("level"))
	if err != nil {
		return nil, err
	}
	useCompression := v.GetBool("compress")
	if prefix != "" && v.IsSet(prefix+"compress") {
		useCompression = v.GetBool(prefix + "compress")
	}

	conf := &common.PersistConfig{
		Format:         format,
		UseCompression: useCompression,
		Scheme:         scheme,
		Level:          level,
		LogLevel:       v.GetString("log-level"),
	}
	if conf.LogLevel == "" {
		conf.LogLevel = common.DefaultPersistConfig().LogLevel
	}
	if v.GetBool("metrics") {
		conf.Metrics = MetricsSet()
	}
	return conf, conf.Validate()
}

var (
	metricsOnce sync.Once
	metricsSet  *metrics.Set
)

// MetricsSet returns the process wide metrics set shared by all serializers the CLI creates
func MetricsSet() *metrics.Set {
	metricsOnce.Do(func() { metricsSet = metrics.NewSet() })
	return metricsSet
}

// PrintConfig prints the configuration to stderr when the log level is info or debug
func PrintConfig(conf *common.PersistConfig) {
	if lvl, err := common.ParseLogLevel(conf.LogLevel); err == nil && lvl >= logger.INFO {
		fmt.Fprintln(os.Stderr, "Configuration:")
		fmt.Fprintln(os.Stderr, conf.String())
	}
}
