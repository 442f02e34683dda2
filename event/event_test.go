package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestStatusTransitions walks the full lifecycle timeline: start = T+0,
// end = T+24h, signing = T+27h.
func TestStatusTransitions(t *testing.T) {
	start := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	signing := start.Add(27 * time.Hour)

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("new uuidv7: %v", err)
	}
	ev := Event{
		ID:                   id,
		StartObservationDate: start,
		EndObservationDate:   end,
		SigningDate:          signing,
	}

	cases := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"T-1s", start.Add(-time.Second), StatusLive},
		{"T+1s", start.Add(time.Second), StatusRunning},
		{"T+24h+1s", end.Add(time.Second), StatusRunning},
		{"T+27h+1s", signing.Add(time.Second), StatusCompleted},
	}
	for _, tc := range cases {
		if got := ev.Status(tc.now); got != tc.want {
			t.Errorf("%s: status = %s, want %s", tc.name, got, tc.want)
		}
	}

	attestation := [32]byte{1}
	ev.Attestation = &attestation
	for _, tc := range cases {
		if got := ev.Status(tc.now); got != StatusSigned {
			t.Errorf("%s with attestation: status = %s, want signed", tc.name, got)
		}
	}
}

// TestMillisTail builds a UUIDv7 with a known millisecond timestamp and
// checks the tie-breaker tail.
func TestMillisTail(t *testing.T) {
	var id uuid.UUID
	ms := int64(1_722_400_001_234) // ...1234 tail
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)
	id[6] = 0x70 // version 7

	if got := MillisTail(id); got != 1234 {
		t.Fatalf("MillisTail = %d, want 1234", got)
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	v7, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("new uuidv7: %v", err)
	}
	valid := Event{
		ID:                   v7,
		StartObservationDate: now,
		EndObservationDate:   now.Add(24 * time.Hour),
		SigningDate:          now.Add(27 * time.Hour),
		TotalAllowedEntries:  25,
		NumberOfPlacesWin:    5,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Event)
		want   error
	}{
		{"v4 id", func(e *Event) { e.ID = uuid.New() }, ErrNotUUIDv7},
		{"too many entries", func(e *Event) { e.TotalAllowedEntries = 26 }, ErrTooManyEntries},
		{"zero entries", func(e *Event) { e.TotalAllowedEntries = 0 }, ErrTooManyEntries},
		{"places win too high", func(e *Event) { e.NumberOfPlacesWin = 6 }, ErrInvalidPlacesWin},
		{"signing before end", func(e *Event) { e.SigningDate = e.EndObservationDate.Add(-time.Hour) }, ErrDatesOutOfOrder},
		{"end before start", func(e *Event) { e.EndObservationDate = e.StartObservationDate.Add(-time.Hour) }, ErrDatesOutOfOrder},
	}
	for _, tc := range cases {
		ev := valid
		tc.mutate(&ev)
		if err := ev.Validate(); err != tc.want {
			t.Errorf("%s: Validate = %v, want %v", tc.name, err, tc.want)
		}
	}
}
