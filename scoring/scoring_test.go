package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tee8z/weather-oracle/event"
)

// uuidWithMillisTail builds a UUIDv7 whose embedded millisecond
// timestamp's low 4 decimal digits equal tail, for exercising the
// tie-break formula with known inputs.
func uuidWithMillisTail(t *testing.T, ms int64) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)
	id[6] = 0x70 // version 7 nibble
	return id
}

// TestBaseScorePerRule covers the Par/Over/Under point rules.
func TestBaseScorePerRule(t *testing.T) {
	readings := map[string]StationReading{
		"KDEN": {
			Station:  "KDEN",
			Forecast: map[string]float64{"temp_high": 70},
			Observed: map[string]float64{"temp_high": 75},
		},
	}
	cases := []struct {
		name string
		rule event.ScoringRule
		want int64
	}{
		{"par misses when unequal", event.RulePar, 0},
		{"over hits when observed > forecast", event.RuleOver, overUnderPoints},
		{"under misses when observed > forecast", event.RuleUnder, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			entry := event.Entry{ExpectedObservations: []event.Choice{{Station: "KDEN", Field: "temp_high", Rule: c.rule}}}
			if got := BaseScore(entry, readings); got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestBaseScoreParHit(t *testing.T) {
	readings := map[string]StationReading{
		"KDEN": {Forecast: map[string]float64{"temp_high": 70}, Observed: map[string]float64{"temp_high": 70.4}},
	}
	entry := event.Entry{ExpectedObservations: []event.Choice{{Station: "KDEN", Field: "temp_high", Rule: event.RulePar}}}
	if got := BaseScore(entry, readings); got != parPoints {
		t.Fatalf("expected rounded observation to match forecast for par, got %d", got)
	}
}

func TestBaseScoreMissingStationContributesZero(t *testing.T) {
	entry := event.Entry{ExpectedObservations: []event.Choice{{Station: "KMIA", Field: "temp_high", Rule: event.RulePar}}}
	if got := BaseScore(entry, map[string]StationReading{}); got != 0 {
		t.Fatalf("expected 0 for missing station, got %d", got)
	}
}

// TestTotalScoreTieBreak: two
// entries both earn base_score = 20; A's ms tail is 1234, B's is 5678;
// A's total (198766) must rank above B's (194322).
func TestTotalScoreTieBreak(t *testing.T) {
	a := event.Entry{ID: uuidWithMillisTail(t, 1234)}
	b := event.Entry{ID: uuidWithMillisTail(t, 5678)}

	totalA := TotalScore(a, 20)
	totalB := TotalScore(b, 20)

	if totalA != 198766 {
		t.Fatalf("expected A's total 198766, got %d", totalA)
	}
	if totalB != 194322 {
		t.Fatalf("expected B's total 194322, got %d", totalB)
	}
	if totalA <= totalB {
		t.Fatalf("expected A to rank above B, got A=%d B=%d", totalA, totalB)
	}
}

func TestTotalScoreFloorForZeroBase(t *testing.T) {
	e := event.Entry{ID: uuidWithMillisTail(t, 42)}
	got := TotalScore(e, 0)
	if got != scoreFloor-42 {
		t.Fatalf("expected floor-based score %d, got %d", scoreFloor-42, got)
	}
}
