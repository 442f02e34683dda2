// Package fanout implements the forecast fan-out coordinator:
// partition a station set into upstream-API-sized batches, fetch and
// flatten each batch concurrently, and serialize the results through
// one writer task onto a columnar.Writer.
//
// One goroutine per batch, managed by golang.org/x/sync/errgroup; a
// shared atomic counter tracks outstanding batches; a single consumer
// drains a bounded channel.
package fanout

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tee8z/weather-oracle/columnar"
	"github.com/tee8z/weather-oracle/fetch"
	"github.com/tee8z/weather-oracle/station"
	"github.com/tee8z/weather-oracle/weather"
	"github.com/tee8z/weather-oracle/weather/forecast"
	"github.com/tee8z/weather-oracle/xmlgroup"
)

// maxBatchSize is the upstream NDFD REST endpoint's per-request station
// cap.
const maxBatchSize = 50

// forecastWindow is the one-week forecast horizon requested per batch.
const forecastWindow = 7 * 24 * time.Hour

const ndfdEndpoint = "https://digital.mdl.nws.noaa.gov/xml/sample_products/browser_interface/ndfdXMLclient.php"

// Options configures one fan-out run.
type Options struct {
	Stations     []station.Station
	Fetcher      *fetch.Fetcher
	Writer       *columnar.Writer[columnar.ForecastRecord]
	StationTable *station.Table // canonical catalog for coordinate-based enrichment
	Now          func() time.Time
}

type batch struct {
	stations []station.Station
	rows     []weather.ForecastRow
}

// Run executes one fan-out pass: spawns one fetch task per batch, and
// drains results through a single writer goroutine that writes one row
// group per non-empty batch.
func Run(ctx context.Context, opts Options) error {
	batches := partition(opts.Stations, maxBatchSize)
	if len(batches) == 0 {
		return nil
	}

	outstanding := atomic.NewInt64(int64(len(batches)))
	results := make(chan batch, len(batches))

	group, gctx := errgroup.WithContext(ctx)
	for _, stations := range batches {
		stations := stations
		group.Go(func() error {
			defer func() {
				n := outstanding.Dec()
				glog.V(3).Infof("fanout: batch done, %d outstanding", n)
			}()
			rows := fetchAndFlatten(gctx, opts, stations)
			select {
			case results <- batch{stations: stations, rows: rows}:
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		})
	}

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writeLoop(opts, results, len(batches))
	}()

	fetchErr := group.Wait()
	close(results)
	writeErr := <-writerDone

	if fetchErr != nil {
		return fmt.Errorf("fanout: fetch: %w", fetchErr)
	}
	if writeErr != nil {
		return fmt.Errorf("fanout: write: %w", writeErr)
	}
	return nil
}

func writeLoop(opts Options, results <-chan batch, total int) error {
	seen := 0
	for b := range results {
		seen++
		glog.V(2).Infof("fanout: writing batch %d/%d (%d rows)", seen, total, len(b.rows))
		if len(b.rows) == 0 {
			continue
		}
		records := make([]columnar.ForecastRecord, len(b.rows))
		for i, row := range b.rows {
			if opts.StationTable != nil {
				if s, ok := opts.StationTable.EnrichByCoord(row.Lat, row.Lon); ok && s.StationID != "" {
					row.StationID = s.StationID
				}
			}
			records[i] = columnar.ForecastRecordFromRow(row)
		}
		if _, err := opts.Writer.Write(records); err != nil {
			return err
		}
		if err := opts.Writer.NextRowGroup(); err != nil {
			return err
		}
	}
	return nil
}

// fetchAndFlatten implements one fetch task. A
// failing fetch or flatten logs and returns an empty batch rather than
// aborting the whole run; a rate-limit error also degrades to an empty
// batch (the run itself is never aborted by one batch's failure).
func fetchAndFlatten(ctx context.Context, opts Options, stations []station.Station) []weather.ForecastRow {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	begin := roundUpToHour(now())
	end := begin.Add(forecastWindow)

	reqURL := buildURL(stations, begin, end)
	raw, err := opts.Fetcher.FetchXML(ctx, reqURL)
	if err != nil {
		glog.Warningf("fanout: fetch batch of %d stations failed: %v", len(stations), err)
		return nil
	}
	if xmlgroup.IsErrorResponse([]byte(raw)) {
		glog.Warningf("fanout: upstream returned an error document for batch of %d stations", len(stations))
		return nil
	}

	var grouped strings.Builder
	if err := xmlgroup.Group(strings.NewReader(raw), &grouped); err != nil {
		glog.Warningf("fanout: grouping failed: %v", err)
		return nil
	}

	doc, err := forecast.ParseDocument(strings.NewReader(grouped.String()))
	if err != nil {
		glog.Warningf("fanout: parse failed: %v", err)
		return nil
	}

	byStation, err := forecast.Flatten(doc)
	if err != nil {
		glog.Warningf("fanout: flatten failed: %v", err)
		return nil
	}

	var rows []weather.ForecastRow
	for _, stationRows := range byStation {
		rows = append(rows, stationRows...)
	}
	return rows
}

// buildURL embeds batch coordinates and the forecast window into an
// NDFD REST time-series request.
func buildURL(stations []station.Station, begin, end time.Time) string {
	var latLon strings.Builder
	for i, s := range stations {
		if i > 0 {
			latLon.WriteByte(' ')
		}
		latLon.WriteString(strconv.FormatFloat(s.Latitude, 'f', 4, 64))
		latLon.WriteByte(',')
		latLon.WriteString(strconv.FormatFloat(s.Longitude, 'f', 4, 64))
	}
	q := url.Values{}
	q.Set("whichClient", "NDFDgenMultiZip")
	q.Set("listLatLon", latLon.String())
	q.Set("product", "time-series")
	q.Set("begin", begin.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	q.Set("maxt", "maxt")
	q.Set("mint", "mint")
	q.Set("pop12", "pop12")
	q.Set("qpf", "qpf")
	q.Set("sky", "sky")
	q.Set("wspd", "wspd")
	q.Set("wdir", "wdir")
	q.Set("rhm", "rhm")
	q.Set("snow", "snow")
	return ndfdEndpoint + "?" + q.Encode()
}

// roundUpToHour aligns t to the nearest hour boundary, rounding up when
// the minute component exceeds 30.
func roundUpToHour(t time.Time) time.Time {
	floor := t.Truncate(time.Hour)
	if t.Sub(floor) > 30*time.Minute {
		return floor.Add(time.Hour)
	}
	return floor
}

func partition(stations []station.Station, size int) [][]station.Station {
	var out [][]station.Station
	for i := 0; i < len(stations); i += size {
		end := i + size
		if end > len(stations) {
			end = len(stations)
		}
		out = append(out, stations[i:end])
	}
	return out
}
