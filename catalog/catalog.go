// Package catalog enumerates parquet files under date-partitioned
// storage: `{data_dir}/{YYYY-MM-DD}/{kind}_{iso8601}.parquet`
// locally, or `weather_data/{YYYY-MM-DD}/{filename}` under an S3 prefix.
//
// A single Catalog interface lets the ETL and query layers swap
// storage backends without runtime reflection.
package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind names the two row-group families the columnar writer produces.
type Kind string

const (
	KindForecasts    Kind = "forecasts"
	KindObservations Kind = "observations"
)

// Params bounds a List query by kind and timestamp window.
type Params struct {
	Kind  Kind
	Start time.Time
	End   time.Time
}

// Entry is one cataloged file.
type Entry struct {
	Path        string // catalog-relative path/key
	Kind        Kind
	GeneratedAt time.Time
}

// Catalog is implemented by every storage backend the ETL/query layers
// can read from.
type Catalog interface {
	List(ctx context.Context, p Params) ([]Entry, error)
	BuildPath(filename string, generatedAt time.Time) string
	Download(ctx context.Context, filename string, generatedAt time.Time) (io.ReadCloser, error)
}

// dateLayout is the date-partition directory/prefix format.
const dateLayout = "2006-01-02"

// FormatFilename builds the `{kind}_{iso8601_utc}.parquet` filename.
func FormatFilename(kind Kind, generatedAt time.Time) string {
	return fmt.Sprintf("%s_%s.parquet", kind, generatedAt.UTC().Format(time.RFC3339))
}

// ParseFilename extracts the kind and embedded timestamp from a
// cataloged filename, the reverse of FormatFilename. The timestamp is
// always trusted over the current clock.
func ParseFilename(name string) (Kind, time.Time, error) {
	base := name
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".parquet")
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 {
		return "", time.Time{}, fmt.Errorf("catalog: malformed filename %q", name)
	}
	kind := Kind(parts[0])
	if kind != KindForecasts && kind != KindObservations {
		return "", time.Time{}, fmt.Errorf("catalog: unknown kind in filename %q", name)
	}
	ts, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("catalog: malformed timestamp in filename %q: %w", name, err)
	}
	return kind, ts.UTC(), nil
}

// inWindow reports whether generatedAt falls within [start, end]
// (inclusive), the filter List applies after the directory/prefix scan
// has already narrowed by date.
func inWindow(generatedAt, start, end time.Time) bool {
	return !generatedAt.Before(start) && !generatedAt.After(end)
}
