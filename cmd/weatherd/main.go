// Package main is the weatherd daemon entrypoint: it wires the rate
// limiter, fetcher, fan-out coordinator, columnar catalog, event store,
// and ETL orchestrator into one long-lived process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang/glog"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/cmn"
	"github.com/tee8z/weather-oracle/columnar"
	"github.com/tee8z/weather-oracle/dlccrypto"
	"github.com/tee8z/weather-oracle/etl"
	"github.com/tee8z/weather-oracle/eventstore"
	"github.com/tee8z/weather-oracle/fanout"
	"github.com/tee8z/weather-oracle/fetch"
	"github.com/tee8z/weather-oracle/ratelimit"
	"github.com/tee8z/weather-oracle/station"
)

var (
	configPath   = flag.String("config", "", "path to weatherd.toml (overrides discovery order)")
	stationsPath = flag.String("stations", "", "path to the station master-list CSV (required)")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	defer glog.Flush()

	cfg, err := cmn.Load(cmn.CLIOverride{ConfigPath: *configPath, Kind: "weatherd"})
	if err != nil {
		glog.Errorf("weatherd: load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		glog.Errorf("weatherd: invalid config: %v", err)
		return 1
	}
	if *stationsPath == "" {
		glog.Errorf("weatherd: -stations is required")
		return 1
	}

	if err := os.MkdirAll(cfg.WeatherDir, 0o755); err != nil {
		glog.Errorf("weatherd: create weather_dir: %v", err)
		return 1
	}
	if err := os.MkdirAll(cfg.EventDB, 0o755); err != nil {
		glog.Errorf("weatherd: create event_db dir: %v", err)
		return 1
	}

	stationsFile, err := os.Open(*stationsPath)
	if err != nil {
		glog.Errorf("weatherd: open stations file: %v", err)
		return 1
	}
	stations, err := station.LoadCSV(stationsFile)
	stationsFile.Close()
	if err != nil {
		glog.Errorf("weatherd: load stations: %v", err)
		return 1
	}
	stationTable := station.NewTable(stations)
	glog.Infof("weatherd: loaded %d stations from %s", len(stations), *stationsPath)

	priv, err := dlccrypto.LoadOrCreate(cfg.OraclePrivateKey)
	if err != nil {
		glog.Errorf("weatherd: load/create oracle key: %v", err)
		return 1
	}
	xonly := dlccrypto.XOnly(priv.PubKey())

	store, err := eventstore.Open(cfg.EventDB)
	if err != nil {
		glog.Errorf("weatherd: open event store: %v", err)
		return 1
	}
	defer store.Close()

	if err := store.HealthCheck(); err != nil {
		glog.Errorf("weatherd: %v", err)
		return 1
	}

	if err := checkOrPersistPubkey(store, priv, xonly); err != nil {
		glog.Errorf("weatherd: %v", err)
		return 1
	}

	var cat catalog.Catalog
	if cfg.S3Bucket != "" {
		s3cat, err := catalog.NewS3(cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			glog.Errorf("weatherd: init s3 catalog: %v", err)
			return 1
		}
		cat = s3cat
		glog.Infof("weatherd: using s3 catalog bucket=%s endpoint=%s", cfg.S3Bucket, cfg.S3Endpoint)
	} else {
		cat = catalog.NewLocal(cfg.WeatherDir)
		glog.Infof("weatherd: using local catalog root=%s", cfg.WeatherDir)
	}

	limiter := ratelimit.New(cfg.TokenCapacity, cfg.RefillRate)
	fetcher := fetch.New(limiter, cfg.UserAgent)

	orchestrator := etl.New(store, cat, priv, cfg.SleepInterval.Duration)

	group := cmn.NewRunGroup()
	group.Add(orchestrator)
	group.Add(newFanoutRunner(stations, stationTable, fetcher, cfg))
	group.Add(newObservationRunner(fetcher, cfg))
	group.Add(newHealthRunner(cfg.Host, cfg.Port, limiter.Collectors(), orchestrator.Collectors()))
	group.Add(newSignalRunner())

	glog.Infof("weatherd: starting (host=%s port=%d sleep_interval=%s)", cfg.Host, cfg.Port, cfg.SleepInterval.Duration)
	if err := group.Run("signal"); err != nil {
		glog.Warningf("weatherd: shut down with: %v", err)
	}

	if err := store.Checkpoint(); err != nil {
		glog.Errorf("weatherd: final WAL checkpoint: %v", err)
	}
	glog.Infof("weatherd: stopped cleanly")
	return 0
}

// checkOrPersistPubkey: the first run persists the oracle's x-only
// pubkey, every later run must match it exactly (a mismatch is fatal).
func checkOrPersistPubkey(store *eventstore.Store, priv *secp256k1.PrivateKey, xonly [32]byte) error {
	stored, err := store.GetStoredPublicKey()
	if err == eventstore.ErrNoOracleMetadata {
		return store.AddOracleMetadata(xonly, "weatherd")
	}
	if err != nil {
		return fmt.Errorf("read oracle_metadata: %w", err)
	}
	return dlccrypto.CheckMetadata(priv.PubKey(), stored)
}

// fanoutRunner drives fanout.Run on the same cadence as the ETL tick,
// writing one parquet file per run to cfg.WeatherDir so the ETL's next
// weather-update step has fresh data.
type fanoutRunner struct {
	stations []station.Station
	table    *station.Table
	fetcher  *fetch.Fetcher
	cfg      cmn.Config
	stopCh   chan struct{}
}

func newFanoutRunner(stations []station.Station, table *station.Table, fetcher *fetch.Fetcher, cfg cmn.Config) *fanoutRunner {
	return &fanoutRunner{stations: stations, table: table, fetcher: fetcher, cfg: cfg, stopCh: make(chan struct{})}
}

func (r *fanoutRunner) Name() string { return "fanout" }

func (r *fanoutRunner) Run() error {
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

func (r *fanoutRunner) runOnce() {
	now := time.Now().UTC()
	filename := catalog.FormatFilename(catalog.KindForecasts, now)
	path := filepath.Join(r.cfg.WeatherDir, now.Format("2006-01-02"), filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		glog.Errorf("fanout: create date partition dir: %v", err)
		return
	}
	writer, err := columnar.OpenForecast(path)
	if err != nil {
		glog.Errorf("fanout: open writer: %v", err)
		return
	}
	defer writer.Close()

	opts := fanout.Options{
		Stations:     r.stations,
		Fetcher:      r.fetcher,
		Writer:       writer,
		StationTable: r.table,
		Now:          time.Now,
	}
	if err := fanout.Run(context.Background(), opts); err != nil {
		glog.Errorf("fanout: run: %v", err)
	}
}

func (r *fanoutRunner) Stop(err error) {
	if err != nil {
		glog.Warningf("fanout: stopping due to: %v", err)
	}
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}
