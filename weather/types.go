// Package weather defines the row types shared by the forecast and
// observation flatteners, the columnar writer, and the query engine.
package weather

import "time"

// Unit codes default to NOAA's canonical units.
const (
	UnitFahrenheit  = "F"
	UnitKnots       = "kt"
	UnitDegreesTrue = "degT"
	UnitInches      = "in"
	UnitPercent     = "%"
	UnitCelsius     = "celcius" // sic — raw NOAA spelling, normalized by package unit
	UnitInHg        = "inHg"
)

// Measurement is an optional scalar value with its unit code.
type Measurement struct {
	Value *float64
	Unit  string
}

func NewMeasurement(v float64, unit string) Measurement {
	return Measurement{Value: &v, Unit: unit}
}

func (m Measurement) IsNull() bool { return m.Value == nil }

// ForecastRow is one row per (station, interval).
type ForecastRow struct {
	StationID   string
	Lat, Lon    float64
	BeginTime   time.Time
	EndTime     time.Time
	GeneratedAt time.Time

	MaxTemp   Measurement
	MinTemp   Measurement
	WindSpd   Measurement
	WindDir   Measurement
	MaxRH     Measurement
	MinRH     Measurement
	PoP12h    Measurement
	QPF       Measurement
	SnowAmt   Measurement
	SnowRatio Measurement
	IceAmt    Measurement
}

// ObservationRow is one row per (station, generated_at). Field set
// mirrors the raw METAR cache XML fields the flattener reads: temp_c,
// wind_dir_degrees, wind_speed_kt, dewpoint_c, altim_in_hg, precip_in.
type ObservationRow struct {
	StationID   string
	GeneratedAt time.Time
	Lat, Lon    float64

	TempC     Measurement
	WindSpd   Measurement
	WindDir   Measurement
	Dewpoint  Measurement
	Altimeter Measurement
	PrecipIn  Measurement
}

// Key identifies the row for dedup-by-max-generated_at on read.
type ForecastKey struct {
	StationID string
	Begin     time.Time
	End       time.Time
}

func (r ForecastRow) Key() ForecastKey {
	return ForecastKey{StationID: r.StationID, Begin: r.BeginTime, End: r.EndTime}
}
