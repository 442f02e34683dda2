// Package station holds the immutable Station identity type and the
// coordinate-based enrichment join. The forecast fan-out calls it on
// flattened forecast rows; the observation path does not call it.
package station

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Station is an immutable identity record.
type Station struct {
	StationID  string
	Name       string
	State      string
	IataID     string
	ElevationM *float64
	Latitude   float64
	Longitude  float64
}

// coordKey returns the 2-decimal-place string key used to join forecast/
// observation locations to station metadata.
func coordKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}

// Table indexes stations by their 2-decimal-place coordinate key for
// O(1) enrichment lookups.
type Table struct {
	byCoord map[string]Station
	byID    map[string]Station
}

func NewTable(stations []Station) *Table {
	t := &Table{
		byCoord: make(map[string]Station, len(stations)),
		byID:    make(map[string]Station, len(stations)),
	}
	for _, s := range stations {
		t.byCoord[coordKey(s.Latitude, s.Longitude)] = s
		t.byID[s.StationID] = s
	}
	return t
}

// LookupByCoord joins by 2-decimal-place lat/lon string equality.
func (t *Table) LookupByCoord(lat, lon float64) (Station, bool) {
	s, ok := t.byCoord[coordKey(lat, lon)]
	return s, ok
}

func (t *Table) LookupByID(id string) (Station, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// EnrichByCoord is the shared enrichment join: attach
// descriptive station metadata (name, state, iata_id, elevation_m) to a
// weather row by 2-decimal-place coordinate match. Consumers that report
// on ForecastRow/ObservationRow data call this rather than storing the
// descriptive fields in the columnar schema itself.
func (t *Table) EnrichByCoord(lat, lon float64) (Station, bool) {
	return t.LookupByCoord(lat, lon)
}

// ParseCoord parses the string form ("38.90", "-77.04") NOAA XML uses for
// point attributes.
func ParseCoord(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// LoadCSV reads the canonical station master list the fan-out
// coordinator and enrichment join key off of: one row per station,
// columns `station_id,name,state,iata_id,elevation_m,latitude,longitude`
// with an optional header row (detected by a non-numeric latitude).
func LoadCSV(r io.Reader) ([]Station, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 7
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("station: read csv: %w", err)
	}
	out := make([]Station, 0, len(records))
	for i, rec := range records {
		lat, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("station: row %d: bad latitude %q: %w", i, rec[5], err)
		}
		lon, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("station: row %d: bad longitude %q: %w", i, rec[6], err)
		}
		s := Station{
			StationID: rec[0],
			Name:      rec[1],
			State:     rec[2],
			IataID:    rec[3],
			Latitude:  lat,
			Longitude: lon,
		}
		if rec[4] != "" {
			elev, err := strconv.ParseFloat(rec[4], 64)
			if err != nil {
				return nil, fmt.Errorf("station: row %d: bad elevation_m %q: %w", i, rec[4], err)
			}
			s.ElevationM = &elev
		}
		out = append(out, s)
	}
	return out, nil
}
