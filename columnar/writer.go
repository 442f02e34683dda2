package columnar

import (
	"fmt"
	"os"
	"sync"

	"github.com/parquet-go/parquet-go"
	pqzstd "github.com/parquet-go/parquet-go/compress/zstd"
)

// Writer serializes row-group writes to a single Parquet file under one
// mutex, mirroring cmn/jsp.Save's crash-safety discipline but applied at
// row-group granularity rather than whole-file granularity: each flushed
// row group is durable on its own, so a crash mid-run loses at most the
// in-flight group.
type Writer[T any] struct {
	mu sync.Mutex
	pw *parquet.GenericWriter[T]
	f  *os.File
}

func open[T any](path string) (*Writer[T], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("columnar: create %s: %w", path, err)
	}
	pw := parquet.NewGenericWriter[T](f, parquet.Compression(&pqzstd.Codec{}))
	return &Writer[T]{pw: pw, f: f}, nil
}

// OpenForecast opens a new forecast-schema Parquet file for writing.
func OpenForecast(path string) (*Writer[ForecastRecord], error) {
	return open[ForecastRecord](path)
}

// OpenObservation opens a new observation-schema Parquet file for
// writing.
func OpenObservation(path string) (*Writer[ObservationRecord], error) {
	return open[ObservationRecord](path)
}

// Write appends rows to the writer's current row group.
func (w *Writer[T]) Write(rows []T) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.pw.Write(rows)
	if err != nil {
		return n, fmt.Errorf("columnar: write: %w", err)
	}
	return n, nil
}

// NextRowGroup flushes the current row group to disk and starts a new
// one. Callers invoke this once per fan-out batch so a
// crash between batches never loses a fully-fetched batch's rows.
func (w *Writer[T]) NextRowGroup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.pw.Flush(); err != nil {
		return fmt.Errorf("columnar: flush row group: %w", err)
	}
	return nil
}

// Close flushes any buffered rows, writes the Parquet footer, and closes
// the underlying file.
func (w *Writer[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.pw.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("columnar: close writer: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("columnar: close file: %w", err)
	}
	return nil
}
