package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/cmn"
	"github.com/tee8z/weather-oracle/columnar"
	"github.com/tee8z/weather-oracle/fetch"
	"github.com/tee8z/weather-oracle/weather/observation"
)

// metarCacheURL is the aviation-weather METAR cache feed: one
// station-agnostic, gzip-compressed XML document covering every
// reporting station.
const metarCacheURL = "https://aviationweather.gov/data/cache/metars.cache.xml.gz"

// observationRunner drives component E (the observation flattener) on
// the same cadence as fanoutRunner drives component D: fetch the
// gzip-compressed METAR cache, flatten it, and write one observation
// row group per run, so etl's weather-update step (etl/weather.go) has
// real observed data to score against.
type observationRunner struct {
	fetcher *fetch.Fetcher
	cfg     cmn.Config
	stopCh  chan struct{}
}

func newObservationRunner(fetcher *fetch.Fetcher, cfg cmn.Config) *observationRunner {
	return &observationRunner{fetcher: fetcher, cfg: cfg, stopCh: make(chan struct{})}
}

func (r *observationRunner) Name() string { return "observation" }

func (r *observationRunner) Run() error {
	ticker := time.NewTicker(r.cfg.SleepInterval.Duration)
	defer ticker.Stop()

	r.runOnce() // fetch immediately on startup rather than waiting a full interval
	for {
		select {
		case <-r.stopCh:
			return nil
		case <-ticker.C:
			r.runOnce()
		}
	}
}

func (r *observationRunner) runOnce() {
	var body strings.Builder
	err := r.fetcher.FetchXMLGzip(context.Background(), metarCacheURL, func(line string) error {
		body.WriteString(line)
		body.WriteByte('\n')
		return nil
	})
	if err != nil {
		glog.Errorf("observation: fetch metar cache: %v", err)
		return
	}

	rows, err := observation.ParseAndFlatten(strings.NewReader(body.String()))
	if err != nil {
		glog.Errorf("observation: flatten: %v", err)
		return
	}
	if len(rows) == 0 {
		glog.V(2).Infof("observation: empty batch, skipping write")
		return
	}

	now := time.Now().UTC()
	filename := catalog.FormatFilename(catalog.KindObservations, now)
	path := filepath.Join(r.cfg.WeatherDir, now.Format("2006-01-02"), filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		glog.Errorf("observation: create date partition dir: %v", err)
		return
	}
	writer, err := columnar.OpenObservation(path)
	if err != nil {
		glog.Errorf("observation: open writer: %v", err)
		return
	}
	defer writer.Close()

	records := make([]columnar.ObservationRecord, len(rows))
	for i, row := range rows {
		records[i] = columnar.ObservationRecordFromRow(row)
	}
	if _, err := writer.Write(records); err != nil {
		glog.Errorf("observation: write: %v", err)
		return
	}
	if err := writer.NextRowGroup(); err != nil {
		glog.Errorf("observation: next row group: %v", err)
		return
	}
	glog.V(2).Infof("observation: wrote %d rows to %s", len(records), path)
}

func (r *observationRunner) Stop(err error) {
	if err != nil {
		glog.Warningf("observation: stopping due to: %v", err)
	}
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}
