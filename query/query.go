// Package query is the embedded analytical engine over the columnar
// store: it reads columnar's Parquet files through package catalog,
// deduplicates by (station, begin, end) keeping the most recently
// generated row, and aggregates to daily rows behind value-range
// filters and the rain-decomposition formula.
//
// The pipeline (dedup -> per-interval filter -> per-day aggregate) runs
// as in-process Go aggregation over rows read via parquet-go rather
// than through an embedded SQL engine.
package query

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/golang/glog"
	"github.com/parquet-go/parquet-go"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/columnar"
	"github.com/tee8z/weather-oracle/unit"
	"github.com/tee8z/weather-oracle/weather"
)

// Range bounds a query by the forecast/observation validity window. A
// zero Start or End means unbounded on that side.
type Range struct {
	Start time.Time
	End   time.Time
}

// Request carries the query window, an optional station allow-list
// (empty means all stations), and the caller's preferred temperature
// unit (empty means leave values in their stored unit).
// "request carries a temperature_unit preference".
type Request struct {
	Range
	Stations        []string
	TemperatureUnit string
}

// Value-range filters applied before aggregation.
const (
	minTempBound, maxTempBound = -200.0, 200.0
	minHumidity, maxHumidity   = 0.0, 100.0
	minWindSpeed, maxWindSpeed = 0.0, 500.0
	minWindDir, maxWindDir     = 0.0, 360.0
	minPrecipChance, maxPrecip = 0.0, 100.0
)

func inRange(v *float64, lo, hi float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if *v < lo || *v > hi {
		return 0, false
	}
	return *v, true
}

func stationAllowed(allow []string, station string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, s := range allow {
		if s == station {
			return true
		}
	}
	return false
}

func overlapsWindow(begin, end, start, limit time.Time) bool {
	if !start.IsZero() && end.Before(start) {
		return false
	}
	if !limit.IsZero() && begin.After(limit) {
		return false
	}
	return true
}

// readForecastRecords downloads and decodes every forecast file whose
// date-partition overlaps the request window.
func readForecastRecords(ctx context.Context, cat catalog.Catalog, r Range) ([]columnar.ForecastRecord, error) {
	lookback := r.Start
	if !lookback.IsZero() {
		lookback = lookback.Add(-24 * time.Hour)
	}
	entries, err := cat.List(ctx, catalog.Params{Kind: catalog.KindForecasts, Start: lookback, End: r.End})
	if err != nil {
		return nil, fmt.Errorf("query: list forecast files: %w", err)
	}
	var all []columnar.ForecastRecord
	for _, e := range entries {
		rows, err := readRecords[columnar.ForecastRecord](ctx, cat, e)
		if err != nil {
			glog.Warningf("query: skipping unreadable forecast file %s: %v", e.Path, err)
			continue
		}
		all = append(all, rows...)
	}
	return all, nil
}

func readObservationRecords(ctx context.Context, cat catalog.Catalog, r Range) ([]columnar.ObservationRecord, error) {
	lookback := r.Start
	if !lookback.IsZero() {
		lookback = lookback.Add(-24 * time.Hour)
	}
	entries, err := cat.List(ctx, catalog.Params{Kind: catalog.KindObservations, Start: lookback, End: r.End})
	if err != nil {
		return nil, fmt.Errorf("query: list observation files: %w", err)
	}
	var all []columnar.ObservationRecord
	for _, e := range entries {
		rows, err := readRecords[columnar.ObservationRecord](ctx, cat, e)
		if err != nil {
			glog.Warningf("query: skipping unreadable observation file %s: %v", e.Path, err)
			continue
		}
		all = append(all, rows...)
	}
	return all, nil
}

// readRecords downloads one cataloged file and decodes every row group
// it contains.
func readRecords[T any](ctx context.Context, cat catalog.Catalog, e catalog.Entry) ([]T, error) {
	rc, err := cat.Download(ctx, path.Base(e.Path), e.GeneratedAt)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	reader := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows[:n], nil
}

// convertedMeasurement applies the request's temperature-unit
// preference to a stored measurement, leaving every other kind of
// measurement untouched.
func convertedMeasurement(m weather.Measurement, targetUnit string, isTemperature bool) weather.Measurement {
	if m.Value == nil || !isTemperature || targetUnit == "" {
		return m
	}
	converted := unit.ConvertTemperature(*m.Value, m.Unit, targetUnit)
	return weather.Measurement{Value: &converted, Unit: unit.Normalize(targetUnit)}
}

func ptr(v float64) *float64 { return &v }
