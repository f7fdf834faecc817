package bench

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dPersist/cmd/util"
	"github.com/ValentinKolb/dPersist/lib/cache"
	"github.com/ValentinKolb/dPersist/lib/cache/lcache"
	"github.com/ValentinKolb/dPersist/lib/serializer"
	"github.com/ValentinKolb/dPersist/lib/serializer/compress"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// payload is the benchmarked value type
type payload = cache.Snapshot[string, []byte]

// Case is one benchmarked serializer configuration
type Case struct {
	Name   string
	Format serializer.Format
	Opts   []serializer.Option
}

// Result holds the timers of one case
type Result struct {
	Case        Case
	Serialize   gometrics.Timer
	Deserialize gometrics.Timer
	Bytes       int
}

// Cases returns every format combined with no compression and each scheme and level
func Cases() []Case {
	var cases []Case
	for _, format := range []serializer.Format{serializer.FormatJSON, serializer.FormatXML} {
		cases = append(cases, Case{
			Name:   fmt.Sprintf("%s/plain", format),
			Format: format,
			Opts:   []serializer.Option{serializer.WithCompression(false)},
		})
		for _, scheme := range []compress.Scheme{compress.SchemeDeflate, compress.SchemeGZip} {
			for _, level := range []compress.Level{compress.LevelOptimal, compress.LevelFastest, compress.LevelSmallestSize, compress.LevelNoCompression} {
				cases = append(cases, Case{
					Name:   fmt.Sprintf("%s/%s/%s", format, scheme, level),
					Format: format,
					Opts:   []serializer.Option{serializer.WithScheme(scheme), serializer.WithLevel(level)},
				})
			}
		}
	}
	return cases
}

// Payload builds a snapshot with n entries of size bytes each
func Payload(n, size int) payload {
	c := lcache.NewLocalCache[string, []byte]()
	for i := 0; i < n; i++ {
		value := bytes.Repeat([]byte{byte('a' + i%26)}, size)
		c.AddOrReplaceUnsafe(fmt.Sprintf("bench-%06d", i), value)
	}
	return cache.TakeSnapshot[string, []byte](c)
}

// Measure serializes and deserializes p iterations times with the given case.
// Timers are registered in r under "<case>/serialize" and "<case>/deserialize".
func Measure(r gometrics.Registry, c Case, p payload, iterations int, extra ...serializer.Option) (Result, error) {
	res := Result{
		Case:        c,
		Serialize:   gometrics.GetOrRegisterTimer(c.Name+"/serialize", r),
		Deserialize: gometrics.GetOrRegisterTimer(c.Name+"/deserialize", r),
	}
	opts := append(append([]serializer.Option{}, c.Opts...), extra...)

	var buf bytes.Buffer
	for i := 0; i < iterations; i++ {
		buf.Reset()
		w, err := serializer.New[payload](c.Format, serializer.Target{Stream: serializer.WriterStream(&buf)}, opts...)
		if err != nil {
			return res, err
		}
		start := time.Now()
		if err := w.Serialize(p); err != nil {
			return res, fmt.Errorf("%s: serialize: %w", c.Name, err)
		}
		res.Serialize.UpdateSince(start)
		res.Bytes = buf.Len()

		rd, err := serializer.New[payload](c.Format, serializer.Target{Stream: serializer.ReaderStream(bytes.NewReader(buf.Bytes()))}, opts...)
		if err != nil {
			return res, err
		}
		start = time.Now()
		got, err := rd.Deserialize()
		if err != nil {
			return res, fmt.Errorf("%s: deserialize: %w", c.Name, err)
		}
		res.Deserialize.UpdateSince(start)
		if got.Len() != p.Len() {
			return res, fmt.Errorf("%s: decoded %d entries, want %d", c.Name, got.Len(), p.Len())
		}
	}
	return res, nil
}

func run(cmd *cobra.Command, _ []string) error {
	conf, err := util.GetPersistConfig()
	if err != nil {
		return err
	}
	var extra []serializer.Option
	if conf.Metrics != nil {
		extra = append(extra, serializer.WithMetrics(conf.Metrics))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Performance testing tool for the serializer pipeline")
	fmt.Fprintf(out, "Entries: %d, value size: %d bytes, iterations: %d\n\n", benchEntries, benchValueSize, benchIterations)

	p := Payload(benchEntries, benchValueSize)
	registry := gometrics.NewRegistry()
	results := make([]Result, 0)

	for _, c := range Cases() {
		if shouldSkip(c.Name) {
			printSkipped(out, c.Name)
			continue
		}
		res, err := Measure(registry, c, p, benchIterations, extra...)
		if err != nil {
			return err
		}
		results = append(results, res)
		printResult(out, res)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// shouldSkip reports whether any element of the case name is in the skip list
func shouldSkip(name string) bool {
	parts := strings.Split(name, "/")
	for _, skip := range benchSkip {
		if skip == "" {
			continue
		}
		if skip == name {
			return true
		}
		for _, part := range parts {
			if part == skip {
				return true
			}
		}
	}
	return false
}

func printSkipped(w io.Writer, name string) {
	fmt.Fprintf(w, "%-28sskipped\n", name)
}

// printResult prints the result of a benchmark case in a formatted way
func printResult(w io.Writer, r Result) {
	fmt.Fprintf(w, "%-28sser %-12s deser %-12s p99 %-12s %8d bytes\n",
		r.Case.Name,
		time.Duration(r.Serialize.Mean()),
		time.Duration(r.Deserialize.Mean()),
		time.Duration(r.Serialize.Percentile(0.99)),
		r.Bytes,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []Result) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Case", "Format", "Iterations", "SerializeMeanNs", "SerializeP99Ns",
		"DeserializeMeanNs", "DeserializeP99Ns", "Bytes", "Entries", "ValueSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		row := []string{
			r.Case.Name,
			string(r.Case.Format),
			strconv.FormatInt(r.Serialize.Count(), 10),
			fmt.Sprintf("%.0f", r.Serialize.Mean()),
			fmt.Sprintf("%.0f", r.Serialize.Percentile(0.99)),
			fmt.Sprintf("%.0f", r.Deserialize.Mean()),
			fmt.Sprintf("%.0f", r.Deserialize.Percentile(0.99)),
			strconv.Itoa(r.Bytes),
			strconv.Itoa(benchEntries),
			strconv.Itoa(benchValueSize),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for case %s: %v", r.Case.Name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
