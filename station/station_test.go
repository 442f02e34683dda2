package station

import (
	"strings"
	"testing"
)

const sampleCSV = `station_id,name,state,iata_id,elevation_m,latitude,longitude
KDEN,Denver Intl,CO,DEN,1655.0,39.86,-104.67
KJFK,John F Kennedy Intl,NY,JFK,,40.64,-73.78
`

func TestLoadCSV(t *testing.T) {
	stations, err := LoadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations (header skipped), got %d", len(stations))
	}
	den := stations[0]
	if den.StationID != "KDEN" || den.State != "CO" || den.IataID != "DEN" {
		t.Fatalf("unexpected first station: %+v", den)
	}
	if den.ElevationM == nil || *den.ElevationM != 1655.0 {
		t.Fatalf("expected elevation 1655.0, got %+v", den.ElevationM)
	}
	if stations[1].ElevationM != nil {
		t.Fatalf("expected nil elevation for empty field, got %+v", stations[1].ElevationM)
	}
}

func TestEnrichByCoord(t *testing.T) {
	stations, err := LoadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	table := NewTable(stations)

	// The join is 2-decimal-place string equality, so coordinates that
	// agree to two places match regardless of extra precision.
	s, ok := table.EnrichByCoord(39.8600, -104.6700)
	if !ok || s.StationID != "KDEN" {
		t.Fatalf("expected KDEN, got %+v ok=%v", s, ok)
	}
	if _, ok := table.EnrichByCoord(39.87, -104.67); ok {
		t.Fatal("expected no match for a coordinate off by 0.01")
	}
}
