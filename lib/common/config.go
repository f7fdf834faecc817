package common

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	"github.com/VictoriaMetrics/metrics"
)

// PersistConfig holds the serializer settings assembled by the CLI
type PersistConfig struct {
	// Format selects the codec (json or xml)
	Format serializer.Format

	// Compression settings, Scheme and Level are ignored unless UseCompression is set
	UseCompression bool
	Scheme         compress.Scheme
	Level          compress.Level

	// Logging configuration
	LogLevel string

	// Metrics, when set, receives the serializer counters and histograms
	Metrics *metrics.Set
}

// DefaultPersistConfig mirrors serializer.DefaultOptions
func DefaultPersistConfig() PersistConfig {
	d := serializer.DefaultOptions()
	return PersistConfig{
		Format:         serializer.FormatJSON,
		UseCompression: d.UseCompression,
		Scheme:         d.Scheme,
		Level:          d.Level,
		LogLevel:       "warn",
	}
}

// Validate checks that every enum field holds a known value
func (c *PersistConfig) Validate() error {
	if _, err := serializer.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if !c.Scheme.Valid() {
		return fmt.Errorf("invalid compression scheme: %d", c.Scheme)
	}
	if !c.Level.Valid() {
		return fmt.Errorf("invalid compression level: %d", c.Level)
	}
	_, err := ParseLogLevel(c.LogLevel)
	return err
}

// SerializerOptions converts the config into options for serializer.New
func (c *PersistConfig) SerializerOptions() []serializer.Option {
	opts := []serializer.Option{
		serializer.WithCompression(c.UseCompression),
		serializer.WithScheme(c.Scheme),
		serializer.WithLevel(c.Level),
	}
	if c.Metrics != nil {
		opts = append(opts, serializer.WithMetrics(c.Metrics))
	}
	return opts
}

// String returns a formatted string representation of the configuration
func (c *PersistConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Serializer")
	addField("Format", string(c.Format))

	addSection("Compression")
	addField("Enabled", fmt.Sprintf("%t", c.UseCompression))
	if c.UseCompression {
		addField("Scheme", c.Scheme.String())
		addField("Level", c.Level.String())
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Metrics", fmt.Sprintf("%t", c.Metrics != nil))

	return sb.String()
}
