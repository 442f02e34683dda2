// Package event defines the DLC event aggregate root, its entries, and
// the weather snapshot value type, plus the pure status
// derivation used throughout the ETL orchestrator and event store.
package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the event's derived lifecycle stage.
type Status int

const (
	StatusLive Status = iota
	StatusRunning
	StatusCompleted
	StatusSigned
)

func (s Status) String() string {
	switch s {
	case StatusLive:
		return "live"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusSigned:
		return "signed"
	default:
		return "unknown"
	}
}

// ScoringRule names the comparison applied to one scoring field.
type ScoringRule int

const (
	RulePar ScoringRule = iota
	RuleOver
	RuleUnder
)

// Choice is one entry's prediction for one station/field.
type Choice struct {
	Station string
	Field   string
	Rule    ScoringRule
}

// Announcement is the per-event set of published locking points: one
// per enumerated outcome, plus an expiry.
type Announcement struct {
	Expiry        time.Time
	LockingPoints [][]byte // compressed/serialized curve points, canonical-order aligned to outcome.Enumerate
}

// Event is the aggregate root.
type Event struct {
	ID                     uuid.UUID
	CoordinatorPubkey      string // bech32
	Locations              []string
	StartObservationDate   time.Time
	EndObservationDate     time.Time
	SigningDate            time.Time
	TotalAllowedEntries    int
	NumberOfValuesPerEntry int
	NumberOfPlacesWin      int
	ScoringFields          []string
	Nonce                  [32]byte
	Announcement           Announcement
	Attestation            *[32]byte
}

// Entry is one participant's submission.
type Entry struct {
	ID                   uuid.UUID
	EventID              uuid.UUID
	ExpectedObservations []Choice
	Score                *int64
	BaseScore            *int64
}

// StationWeather is the per-station forecast/observed pair carried in a
// WeatherSnapshot.
type StationWeather struct {
	Station  string
	Forecast map[string]float64
	Observed map[string]float64 // absent (nil map) before start_observation_date passes
}

// WeatherSnapshot is the read-only per-event, per-tick weather view.
type WeatherSnapshot struct {
	EventID   uuid.UUID
	Tick      time.Time
	ByStation map[string]StationWeather
}

var (
	ErrNotUUIDv7        = errors.New("event: id is not a UUIDv7")
	ErrTooManyEntries   = errors.New("event: total_allowed_entries out of range (1..=25)")
	ErrInvalidPlacesWin = errors.New("event: number_of_places_win out of range (1..=5)")
	ErrDatesOutOfOrder  = errors.New("event: require start <= end <= signing")
)

// Validate enforces the user-input invariants checked once at
// event-creation time (not re-checked on every status derivation).
func (e Event) Validate() error {
	if version := e.ID.Version(); version != 7 {
		return ErrNotUUIDv7
	}
	if e.TotalAllowedEntries < 1 || e.TotalAllowedEntries > 25 {
		return ErrTooManyEntries
	}
	if e.NumberOfPlacesWin < 1 || e.NumberOfPlacesWin > 5 {
		return ErrInvalidPlacesWin
	}
	if !(e.StartObservationDate.Before(e.EndObservationDate) || e.StartObservationDate.Equal(e.EndObservationDate)) {
		return ErrDatesOutOfOrder
	}
	if !(e.EndObservationDate.Before(e.SigningDate) || e.EndObservationDate.Equal(e.SigningDate)) {
		return ErrDatesOutOfOrder
	}
	return nil
}

// DeriveStatus computes the lifecycle stage purely from
// (attestation, now, start, end, signing) — no stored state.
func DeriveStatus(attestation *[32]byte, now, start, end, signing time.Time) Status {
	if attestation != nil {
		return StatusSigned
	}
	if now.Before(start) {
		return StatusLive
	}
	if now.Before(signing) {
		return StatusRunning
	}
	return StatusCompleted
}

// Status derives e's current lifecycle stage as of now.
func (e Event) Status(now time.Time) Status {
	return DeriveStatus(e.Attestation, now, e.StartObservationDate, e.EndObservationDate, e.SigningDate)
}

// MillisTail returns the scoring tie-breaker tail: the low 4 decimal
// digits of the UUIDv7's embedded millisecond timestamp. Collisions
// above ~10,000 entries/sec/event silently break the total ordering;
// the mechanism is kept anyway for announcement compatibility.
func MillisTail(id uuid.UUID) int64 {
	ms := int64(id[0])<<40 | int64(id[1])<<32 | int64(id[2])<<24 | int64(id[3])<<16 | int64(id[4])<<8 | int64(id[5])
	return ms % 10_000
}
