// Package observation implements the METAR straight-projection
// flattener: parse the aviationweather.gov METAR cache
// XML, drop records missing required fields, and emit one
// weather.ObservationRow per surviving record.
package observation

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/tee8z/weather-oracle/weather"
)

type rawResponse struct {
	XMLName xml.Name `xml:"response"`
	Data    rawData  `xml:"data"`
}

type rawData struct {
	Metar []rawMetar `xml:"METAR"`
}

// rawMetar mirrors the field names the upstream METAR cache XML uses
// (station_id, temp_c, wind_dir_degrees, ...).
type rawMetar struct {
	StationID       string `xml:"station_id"`
	Latitude        string `xml:"latitude"`
	Longitude       string `xml:"longitude"`
	ObservationTime string `xml:"observation_time"`
	TempC           string `xml:"temp_c"`
	DewpointC       string `xml:"dewpoint_c"`
	WindDirDegrees  string `xml:"wind_dir_degrees"`
	WindSpeedKt     string `xml:"wind_speed_kt"`
	AltimInHg       string `xml:"altim_in_hg"`
	PrecipIn        string `xml:"precip_in"`
}

// ParseAndFlatten decodes raw METAR cache XML and returns one
// weather.ObservationRow per record that carries temp_c, latitude,
// longitude, and observation_time. Records missing any of
// those four fields are silently dropped; all other fields that fail to
// parse become null measurements rather than aborting the record.
func ParseAndFlatten(r io.Reader) ([]weather.ObservationRow, error) {
	var resp rawResponse
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("observation: decode: %w", err)
	}

	rows := make([]weather.ObservationRow, 0, len(resp.Data.Metar))
	dropped := 0
	for _, m := range resp.Data.Metar {
		row, ok := flattenOne(m)
		if !ok {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		glog.V(3).Infof("observation: dropped %d of %d records missing required fields", dropped, len(resp.Data.Metar))
	}
	return rows, nil
}

func flattenOne(m rawMetar) (weather.ObservationRow, bool) {
	if m.TempC == "" || m.Latitude == "" || m.Longitude == "" || m.ObservationTime == "" {
		return weather.ObservationRow{}, false
	}
	lat, errLat := strconv.ParseFloat(m.Latitude, 64)
	lon, errLon := strconv.ParseFloat(m.Longitude, 64)
	if errLat != nil || errLon != nil {
		return weather.ObservationRow{}, false
	}
	observedAt, err := time.Parse(time.RFC3339, m.ObservationTime)
	if err != nil {
		return weather.ObservationRow{}, false
	}
	tempC, tempOK := parseFloatOK(m.TempC)
	if !tempOK {
		return weather.ObservationRow{}, false
	}

	row := weather.ObservationRow{
		StationID:   m.StationID,
		GeneratedAt: observedAt.UTC(),
		Lat:         lat,
		Lon:         lon,
		TempC:       weather.NewMeasurement(tempC, weather.UnitCelsius),
	}
	if v, ok := parseFloatOK(m.WindSpeedKt); ok {
		row.WindSpd = weather.NewMeasurement(v, weather.UnitKnots)
	} else {
		row.WindSpd.Unit = weather.UnitKnots
	}
	if v, ok := parseFloatOK(m.WindDirDegrees); ok {
		row.WindDir = weather.NewMeasurement(v, weather.UnitDegreesTrue)
	} else {
		row.WindDir.Unit = weather.UnitDegreesTrue
	}
	if v, ok := parseFloatOK(m.DewpointC); ok {
		row.Dewpoint = weather.NewMeasurement(v, weather.UnitCelsius)
	} else {
		row.Dewpoint.Unit = weather.UnitCelsius
	}
	if v, ok := parseFloatOK(m.AltimInHg); ok {
		row.Altimeter = weather.NewMeasurement(v, weather.UnitInHg)
	} else {
		row.Altimeter.Unit = weather.UnitInHg
	}
	if v, ok := parseFloatOK(m.PrecipIn); ok {
		row.PrecipIn = weather.NewMeasurement(v, weather.UnitInches)
	} else {
		row.PrecipIn.Unit = weather.UnitInches
	}
	return row, true
}

func parseFloatOK(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
