package etl

import (
	"time"

	"github.com/golang/glog"

	"github.com/tee8z/weather-oracle/event"
	"github.com/tee8z/weather-oracle/eventstore"
	"github.com/tee8z/weather-oracle/scoring"
)

// scoreEvents is the tick's second step: score every event that is
// Running or Completed and not yet signed. One BaseScore/TotalScore
// pair per entry, persisted in a single transaction per event. A
// scoring failure for one event is logged and does not block the
// others.
func (o *Orchestrator) scoreEvents(events []event.Event, now time.Time) {
	for _, ev := range events {
		status := ev.Status(now)
		if status != event.StatusRunning && status != event.StatusCompleted {
			continue
		}

		snapshot, ok, err := o.store.LatestWeather(ev.ID)
		if err != nil {
			glog.Errorf("etl: load weather snapshot failed for event %s: %v", ev.ID, err)
			continue
		}
		if !ok {
			glog.V(2).Infof("etl: no weather snapshot yet for event %s, skipping scoring this tick", ev.ID)
			continue
		}

		entries, err := o.store.GetEventEntries(ev.ID)
		if err != nil {
			glog.Errorf("etl: load entries failed for event %s: %v", ev.ID, err)
			continue
		}
		if len(entries) == 0 {
			continue
		}

		readings := make(map[string]scoring.StationReading, len(snapshot.ByStation))
		for station, sw := range snapshot.ByStation {
			readings[station] = scoring.StationReading{Station: station, Forecast: sw.Forecast, Observed: sw.Observed}
		}

		scores := make([]eventstore.EntryScore, 0, len(entries))
		for _, entry := range entries {
			base := scoring.BaseScore(entry, readings)
			total := scoring.TotalScore(entry, base)
			scores = append(scores, eventstore.EntryScore{EntryID: entry.ID, Total: total, Base: base})
		}

		if err := o.store.UpdateEntryScores(scores); err != nil {
			glog.Errorf("etl: persist scores failed for event %s: %v", ev.ID, err)
		}
	}
}
