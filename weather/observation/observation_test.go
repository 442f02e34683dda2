package observation

import (
	"strings"
	"testing"
)

const sampleXML = `<response>
  <data>
    <METAR>
      <station_id>KDEN</station_id>
      <latitude>39.85</latitude>
      <longitude>-104.66</longitude>
      <observation_time>2026-07-31T12:00:00Z</observation_time>
      <temp_c>24.0</temp_c>
      <dewpoint_c>10.0</dewpoint_c>
      <wind_dir_degrees>270</wind_dir_degrees>
      <wind_speed_kt>12</wind_speed_kt>
      <altim_in_hg>30.05</altim_in_hg>
    </METAR>
    <METAR>
      <station_id>KBAD</station_id>
      <latitude>39.85</latitude>
      <longitude>-104.66</longitude>
      <observation_time>2026-07-31T12:00:00Z</observation_time>
    </METAR>
    <METAR>
      <station_id>KGARBLE</station_id>
      <latitude>not-a-number</latitude>
      <longitude>-104.66</longitude>
      <observation_time>2026-07-31T12:00:00Z</observation_time>
      <temp_c>24.0</temp_c>
    </METAR>
  </data>
</response>`

func TestParseAndFlatten_DropsMissingRequiredFields(t *testing.T) {
	rows, err := ParseAndFlatten(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 surviving row (missing temp_c and bad lat/lon dropped), got %d", len(rows))
	}
	row := rows[0]
	if row.StationID != "KDEN" {
		t.Fatalf("unexpected station: %s", row.StationID)
	}
	if row.TempC.Value == nil || *row.TempC.Value != 24.0 {
		t.Fatalf("unexpected temp_c: %+v", row.TempC)
	}
	if row.Altimeter.Value == nil || *row.Altimeter.Value != 30.05 {
		t.Fatalf("unexpected altimeter: %+v", row.Altimeter)
	}
}

func TestParseAndFlatten_DiscardsUnparsableOptionalFields(t *testing.T) {
	const xml = `<response><data><METAR>
      <station_id>KDEN</station_id>
      <latitude>39.85</latitude>
      <longitude>-104.66</longitude>
      <observation_time>2026-07-31T12:00:00Z</observation_time>
      <temp_c>24.0</temp_c>
      <wind_speed_kt>not-a-number</wind_speed_kt>
    </METAR></data></response>`
	rows, err := ParseAndFlatten(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].WindSpd.Value != nil {
		t.Fatalf("expected null wind_speed after parse failure, got %+v", rows[0].WindSpd)
	}
}
