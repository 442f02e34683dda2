package eventstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/tee8z/weather-oracle/event"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type announcementDTO struct {
	Expiry        int64    `json:"expiry"`
	LockingPoints [][]byte `json:"locking_points"`
}

func encodeAnnouncement(a event.Announcement) ([]byte, error) {
	return json.Marshal(announcementDTO{
		Expiry:        a.Expiry.Unix(),
		LockingPoints: a.LockingPoints,
	})
}

func decodeAnnouncement(raw []byte) (event.Announcement, error) {
	var dto announcementDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return event.Announcement{}, err
	}
	return event.Announcement{
		Expiry:        time.Unix(dto.Expiry, 0).UTC(),
		LockingPoints: dto.LockingPoints,
	}, nil
}

// AddEvent inserts ev atomically; reusing an id fails with
// ErrConstraintViolation.
func (s *Store) AddEvent(ev event.Event) error {
	locations, err := json.Marshal(ev.Locations)
	if err != nil {
		return fmt.Errorf("eventstore: marshal locations: %w", err)
	}
	scoringFields, err := json.Marshal(ev.ScoringFields)
	if err != nil {
		return fmt.Errorf("eventstore: marshal scoring_fields: %w", err)
	}
	announcement, err := encodeAnnouncement(ev.Announcement)
	if err != nil {
		return fmt.Errorf("eventstore: marshal announcement: %w", err)
	}
	var attestation []byte
	if ev.Attestation != nil {
		attestation = ev.Attestation[:]
	}

	return wrapConstraint(s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO events (
				id, coordinator_pubkey, locations, start_observation_date,
				end_observation_date, signing_date, total_allowed_entries,
				number_of_values_per_entry, number_of_places_win,
				scoring_fields, nonce, event_announcement, attestation_signature
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID.String(), ev.CoordinatorPubkey, string(locations),
			ev.StartObservationDate.UTC().Unix(), ev.EndObservationDate.UTC().Unix(), ev.SigningDate.UTC().Unix(),
			ev.TotalAllowedEntries, ev.NumberOfValuesPerEntry, ev.NumberOfPlacesWin,
			string(scoringFields), ev.Nonce[:], announcement, attestation,
		)
		return err
	}))
}

// AddEventEntries inserts every entry and its choices in one
// transaction; any failure rolls the whole batch back.
func (s *Store) AddEventEntries(entries []event.Entry) error {
	return wrapConstraint(s.write(func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(
				`INSERT INTO events_entries (id, event_id, score, base_score) VALUES (?, ?, ?, ?)`,
				e.ID.String(), e.EventID.String(), nullInt64(e.Score), nullInt64(e.BaseScore),
			); err != nil {
				return err
			}
			for _, choice := range e.ExpectedObservations {
				if _, err := tx.Exec(
					`INSERT INTO expected_observations (entry_id, station, field, rule) VALUES (?, ?, ?, ?)`,
					e.ID.String(), choice.Station, choice.Field, int(choice.Rule),
				); err != nil {
					return err
				}
			}
		}
		return nil
	}))
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// GetEvent composes an Event plus its entries/choices/weather via
// separate queries.
func (s *Store) GetEvent(id uuid.UUID) (event.Event, []event.Entry, []event.WeatherSnapshot, error) {
	ev, err := s.getEventRow(id)
	if err != nil {
		return event.Event{}, nil, nil, err
	}
	entries, err := s.GetEventEntries(id)
	if err != nil {
		return event.Event{}, nil, nil, err
	}
	snapshots, err := s.GetWeatherSnapshots(id)
	if err != nil {
		return event.Event{}, nil, nil, err
	}
	return ev, entries, snapshots, nil
}

func (s *Store) getEventRow(id uuid.UUID) (event.Event, error) {
	row := s.db.QueryRow(`
		SELECT id, coordinator_pubkey, locations, start_observation_date,
		       end_observation_date, signing_date, total_allowed_entries,
		       number_of_values_per_entry, number_of_places_win,
		       scoring_fields, nonce, event_announcement, attestation_signature
		FROM events WHERE id = ?`, id.String())
	return scanEvent(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		idStr, coordinator, locationsJSON, scoringFieldsJSON string
		start, end, signing                                  int64
		total, numValues, numWin                             int
		nonce, announcementBytes, attestation                []byte
	)
	if err := row.Scan(
		&idStr, &coordinator, &locationsJSON, &start, &end, &signing,
		&total, &numValues, &numWin, &scoringFieldsJSON, &nonce, &announcementBytes, &attestation,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, err
		}
		return event.Event{}, fmt.Errorf("eventstore: scan event: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: parse event id: %w", err)
	}
	var locations, scoringFields []string
	if err := json.Unmarshal([]byte(locationsJSON), &locations); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: unmarshal locations: %w", err)
	}
	if err := json.Unmarshal([]byte(scoringFieldsJSON), &scoringFields); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: unmarshal scoring_fields: %w", err)
	}
	announcement, err := decodeAnnouncement(announcementBytes)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: decode announcement: %w", err)
	}

	ev := event.Event{
		ID:                     id,
		CoordinatorPubkey:      coordinator,
		Locations:              locations,
		StartObservationDate:   time.Unix(start, 0).UTC(),
		EndObservationDate:     time.Unix(end, 0).UTC(),
		SigningDate:            time.Unix(signing, 0).UTC(),
		TotalAllowedEntries:    total,
		NumberOfValuesPerEntry: numValues,
		NumberOfPlacesWin:      numWin,
		ScoringFields:          scoringFields,
		Announcement:           announcement,
	}
	copy(ev.Nonce[:], nonce)
	if len(attestation) == 32 {
		var a [32]byte
		copy(a[:], attestation)
		ev.Attestation = &a
	}
	return ev, nil
}

// GetEventEntries loads every entry and its choices for event id.
func (s *Store) GetEventEntries(id uuid.UUID) ([]event.Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, score, base_score FROM events_entries WHERE event_id = ? ORDER BY id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("eventstore: query entries: %w", err)
	}
	defer rows.Close()

	var entries []event.Entry
	for rows.Next() {
		var (
			idStr            string
			score, baseScore sql.NullInt64
		)
		if err := rows.Scan(&idStr, &score, &baseScore); err != nil {
			return nil, fmt.Errorf("eventstore: scan entry: %w", err)
		}
		entryID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("eventstore: parse entry id: %w", err)
		}
		e := event.Entry{ID: entryID, EventID: id}
		if score.Valid {
			v := score.Int64
			e.Score = &v
		}
		if baseScore.Valid {
			v := baseScore.Int64
			e.BaseScore = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		choices, err := s.getEntryChoices(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].ExpectedObservations = choices
	}
	return entries, nil
}

func (s *Store) getEntryChoices(entryID uuid.UUID) ([]event.Choice, error) {
	rows, err := s.db.Query(
		`SELECT station, field, rule FROM expected_observations WHERE entry_id = ?`, entryID.String())
	if err != nil {
		return nil, fmt.Errorf("eventstore: query choices: %w", err)
	}
	defer rows.Close()

	var choices []event.Choice
	for rows.Next() {
		var station, field string
		var rule int
		if err := rows.Scan(&station, &field, &rule); err != nil {
			return nil, fmt.Errorf("eventstore: scan choice: %w", err)
		}
		choices = append(choices, event.Choice{Station: station, Field: field, Rule: event.ScoringRule(rule)})
	}
	return choices, rows.Err()
}

// UpdateEventAttestation sets attestation_signature exactly once;
// re-writing the same value is a no-op, re-writing a different value
// fails with ErrAlreadySigned.
func (s *Store) UpdateEventAttestation(id uuid.UUID, attestation [32]byte) error {
	return s.write(func(tx *sql.Tx) error {
		var existing []byte
		err := tx.QueryRow(`SELECT attestation_signature FROM events WHERE id = ?`, id.String()).Scan(&existing)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("eventstore: event %s not found", id)
			}
			return err
		}
		if len(existing) == 32 {
			var e [32]byte
			copy(e[:], existing)
			if e == attestation {
				return nil // idempotent no-op
			}
			return ErrAlreadySigned
		}
		_, err = tx.Exec(`UPDATE events SET attestation_signature = ? WHERE id = ?`, attestation[:], id.String())
		return err
	})
}

// GetActiveEvents returns every event whose attestation is still null.
func (s *Store) GetActiveEvents() ([]event.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, coordinator_pubkey, locations, start_observation_date,
		       end_observation_date, signing_date, total_allowed_entries,
		       number_of_values_per_entry, number_of_places_win,
		       scoring_fields, nonce, event_announcement, attestation_signature
		FROM events WHERE attestation_signature IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query active events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EntryScore is one (entry_id, total, base) triple persisted in a
// single transaction by UpdateEntryScores.
type EntryScore struct {
	EntryID uuid.UUID
	Total   int64
	Base    int64
}

// UpdateEntryScores persists every score in one transaction.
func (s *Store) UpdateEntryScores(scores []EntryScore) error {
	return s.write(func(tx *sql.Tx) error {
		for _, sc := range scores {
			if _, err := tx.Exec(
				`UPDATE events_entries SET score = ?, base_score = ? WHERE id = ?`,
				sc.Total, sc.Base, sc.EntryID.String(),
			); err != nil {
				return err
			}
		}
		return nil
	})
}
