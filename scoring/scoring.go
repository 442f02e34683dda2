// Package scoring implements the per-entry scoring rules: Par/Over/Under comparisons between each entry's choices and
// the observed-vs-forecast weather at each station, plus the
// UUIDv7-tail tie-breaker that turns a base score into a total score.
package scoring

import (
	"math"

	"github.com/golang/glog"

	"github.com/tee8z/weather-oracle/event"
)

const (
	parPoints       = 20
	overUnderPoints = 10
	// scoreFloor ensures even a zero-base-score entry gets a
	// distinguishable, monotonically-decreasing stored score.
	scoreFloor = 10_000
)

// StationReading is the forecast/observed pair for one station at the
// scoring instant, read via the query engine for the event's exact
// 1-day observation window.
type StationReading struct {
	Station  string
	Forecast map[string]float64
	Observed map[string]float64
}

// BaseScore sums Par/Over/Under points across every (station, field)
// choice in entry. A station missing from readings is
// logged and contributes nothing.
func BaseScore(entry event.Entry, readings map[string]StationReading) int64 {
	var total int64
	for _, choice := range entry.ExpectedObservations {
		reading, ok := readings[choice.Station]
		if !ok {
			glog.Warningf("scoring: no forecast/observation reading for station %s (entry %s)", choice.Station, entry.ID)
			continue
		}
		forecast, fok := reading.Forecast[choice.Field]
		observed, ook := reading.Observed[choice.Field]
		if !fok || !ook {
			glog.Warningf("scoring: missing %s forecast/observation for station %s (entry %s)", choice.Field, choice.Station, entry.ID)
			continue
		}
		total += points(choice.Rule, forecast, observed, isTemperatureField(choice.Field))
	}
	return total
}

// isTemperatureField reports whether field requires rounding the
// observation to the nearest integer before comparing.
func isTemperatureField(field string) bool {
	switch field {
	case "temp_high", "temp_low", "max_temp", "min_temp":
		return true
	default:
		return false
	}
}

func points(rule event.ScoringRule, forecast, observed float64, roundObserved bool) int64 {
	if roundObserved {
		observed = math.Round(observed)
	}
	switch rule {
	case event.RulePar:
		if forecast == observed {
			return parPoints
		}
	case event.RuleOver:
		if observed > forecast {
			return overUnderPoints
		}
	case event.RuleUnder:
		if observed < forecast {
			return overUnderPoints
		}
	}
	return 0
}

// TotalScore folds the entry-age tie-breaker into the base score:
// max(10_000, base*10_000) - ts_tail, where ts_tail is the low 4
// decimal digits of the entry's UUIDv7 millisecond timestamp. Higher
// base scores dominate; within a tie, earlier entries rank higher.
// Collisions above ~10,000 entries/sec/event silently break the total
// ordering.
func TotalScore(entry event.Entry, base int64) int64 {
	tail := event.MillisTail(entry.ID)
	floor := int64(scoreFloor)
	scaled := base * scoreFloor
	if scaled < floor {
		scaled = floor
	}
	return scaled - tail
}
