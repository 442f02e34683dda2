package eventstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tee8z/weather-oracle/event"
)

// AddWeatherSnapshot appends one per-tick weather row per station and
// links it to the event via the junction table. observed is empty
// before start_observation_date passes.
func (s *Store) AddWeatherSnapshot(eventID uuid.UUID, tick time.Time, byStation map[string]event.StationWeather) error {
	return s.write(func(tx *sql.Tx) error {
		for station, w := range byStation {
			forecastJSON, err := json.Marshal(w.Forecast)
			if err != nil {
				return fmt.Errorf("eventstore: marshal forecast: %w", err)
			}
			var observedJSON sql.NullString
			if w.Observed != nil {
				b, err := json.Marshal(w.Observed)
				if err != nil {
					return fmt.Errorf("eventstore: marshal observed: %w", err)
				}
				observedJSON = sql.NullString{String: string(b), Valid: true}
			}

			weatherID := uuid.New().String()
			if _, err := tx.Exec(
				`INSERT INTO weather (id, station_id, tick, forecasted, observed) VALUES (?, ?, ?, ?, ?)`,
				weatherID, station, tick.UTC().Unix(), string(forecastJSON), observedJSON,
			); err != nil {
				return err
			}
			if _, err := tx.Exec(
				`INSERT INTO events_weather (event_id, weather_id) VALUES (?, ?)`,
				eventID.String(), weatherID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetWeatherSnapshots returns one WeatherSnapshot per distinct tick
// recorded for the event, each carrying the rows recorded at that tick,
// keyed by station; earlier ticks' rows are not carried forward.
func (s *Store) GetWeatherSnapshots(eventID uuid.UUID) ([]event.WeatherSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT w.tick, w.station_id, w.forecasted, w.observed
		FROM weather w
		JOIN events_weather ew ON ew.weather_id = w.id
		WHERE ew.event_id = ?
		ORDER BY w.tick ASC`, eventID.String())
	if err != nil {
		return nil, fmt.Errorf("eventstore: query weather: %w", err)
	}
	defer rows.Close()

	byTick := make(map[int64]map[string]event.StationWeather)
	var tickOrder []int64
	for rows.Next() {
		var tick int64
		var station, forecastJSON string
		var observedJSON sql.NullString
		if err := rows.Scan(&tick, &station, &forecastJSON, &observedJSON); err != nil {
			return nil, fmt.Errorf("eventstore: scan weather: %w", err)
		}
		var forecast map[string]float64
		if err := json.Unmarshal([]byte(forecastJSON), &forecast); err != nil {
			return nil, fmt.Errorf("eventstore: unmarshal forecast: %w", err)
		}
		var observed map[string]float64
		if observedJSON.Valid {
			if err := json.Unmarshal([]byte(observedJSON.String), &observed); err != nil {
				return nil, fmt.Errorf("eventstore: unmarshal observed: %w", err)
			}
		}
		if _, ok := byTick[tick]; !ok {
			byTick[tick] = make(map[string]event.StationWeather)
			tickOrder = append(tickOrder, tick)
		}
		byTick[tick][station] = event.StationWeather{Station: station, Forecast: forecast, Observed: observed}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]event.WeatherSnapshot, 0, len(tickOrder))
	for _, tick := range tickOrder {
		out = append(out, event.WeatherSnapshot{
			EventID:   eventID,
			Tick:      time.Unix(tick, 0).UTC(),
			ByStation: byTick[tick],
		})
	}
	return out, nil
}

// LatestWeather returns the most recent snapshot for the event, or
// false if none has been recorded yet.
func (s *Store) LatestWeather(eventID uuid.UUID) (event.WeatherSnapshot, bool, error) {
	snapshots, err := s.GetWeatherSnapshots(eventID)
	if err != nil {
		return event.WeatherSnapshot{}, false, err
	}
	if len(snapshots) == 0 {
		return event.WeatherSnapshot{}, false, nil
	}
	return snapshots[len(snapshots)-1], true, nil
}
