// Package etl implements the oracle's periodic control loop: each tick
// runs weather update, scoring, and signing strictly in that order,
// ticks never overlap, and a failure against one event never blocks
// the others in the same tick.
//
// Orchestrator implements cmn.Runner, driven by a time.Ticker, with
// SIGTERM/SIGINT handled by the caller's cmn.RunGroup.
package etl

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/eventstore"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Orchestrator is the single `etl` Runner registered with the
// daemon's cmn.RunGroup.
type Orchestrator struct {
	store    *eventstore.Store
	catalog  catalog.Catalog
	priv     *secp256k1.PrivateKey
	pub      *secp256k1.PublicKey
	interval time.Duration

	stopping atomic.Bool
	stopCh   chan struct{}

	ticksTotal  prometheus.Counter
	ticksFailed prometheus.Counter
	tickSeconds prometheus.Histogram
}

// New builds an Orchestrator ticking every interval.
func New(store *eventstore.Store, cat catalog.Catalog, priv *secp256k1.PrivateKey, interval time.Duration) *Orchestrator {
	return &Orchestrator{
		store:    store,
		catalog:  cat,
		priv:     priv,
		pub:      priv.PubKey(),
		interval: interval,
		stopCh:   make(chan struct{}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_oracle_etl_ticks_total",
			Help: "Number of ETL ticks run.",
		}),
		ticksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_oracle_etl_ticks_failed_total",
			Help: "Number of ETL ticks that returned an error fetching active events.",
		}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_oracle_etl_tick_seconds",
			Help:    "Wall-clock duration of one ETL tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Collectors returns the orchestrator's metrics for registration with
// the daemon's prometheus registry.
func (o *Orchestrator) Collectors() []prometheus.Collector {
	return []prometheus.Collector{o.ticksTotal, o.ticksFailed, o.tickSeconds}
}

func (o *Orchestrator) Name() string { return "etl" }

// Run blocks, driving one strictly-sequential tick per timer fire, until
// Stop is called.
func (o *Orchestrator) Run() error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return nil
		case now := <-ticker.C:
			start := time.Now()
			if err := o.tick(context.Background(), now.UTC()); err != nil {
				o.ticksFailed.Inc()
				glog.Errorf("etl: tick failed: %v", err)
			}
			o.ticksTotal.Inc()
			o.tickSeconds.Observe(time.Since(start).Seconds())
		}
	}
}

// Stop signals Run to exit after finishing any in-flight tick.
func (o *Orchestrator) Stop(err error) {
	if err != nil {
		glog.Warningf("etl: stopping due to: %v", err)
	}
	if o.stopping.CompareAndSwap(false, true) {
		close(o.stopCh)
	}
}

// RunOnce executes a single tick immediately, outside the ticker
// schedule. The out-of-scope HTTP API's `POST /oracle/update` and weatherctl's manual `tick` subcommand both drive the same
// control loop through this entrypoint rather than duplicating it.
func (o *Orchestrator) RunOnce(ctx context.Context, now time.Time) error {
	return o.tick(ctx, now)
}

// tick runs the three ETL steps in order: weather, score, sign
// . Each step isolates per-event failures internally so
// one bad event never blocks the rest of the tick.
func (o *Orchestrator) tick(ctx context.Context, now time.Time) error {
	events, err := o.store.GetActiveEvents()
	if err != nil {
		return err
	}
	glog.V(2).Infof("etl: tick starting with %d active events", len(events))

	o.updateWeather(ctx, events, now)
	o.scoreEvents(events, now)
	o.signEvents(events, now)

	glog.V(2).Infof("etl: tick complete")
	return nil
}
