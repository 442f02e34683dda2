package query

import (
	"context"

	"github.com/tee8z/weather-oracle/catalog"
)

// Station is one distinct station identity observed in the columnar
// store -> distinct station identities").
type Station struct {
	StationID string
	Latitude  float64
	Longitude float64
}

// Stations scans every observation file in the catalog (no time
// window) and returns the distinct stations seen, keeping the first
// coordinate pair observed for each station id.
func Stations(ctx context.Context, cat catalog.Catalog) ([]Station, error) {
	rows, err := readObservationRecords(ctx, cat, Range{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]Station)
	var order []string
	for _, r := range rows {
		if _, ok := seen[r.StationID]; ok {
			continue
		}
		seen[r.StationID] = Station{StationID: r.StationID, Latitude: r.Latitude, Longitude: r.Longitude}
		order = append(order, r.StationID)
	}

	out := make([]Station, 0, len(order))
	for _, id := range order {
		out = append(out, seen[id])
	}
	return out, nil
}
