// Package columnar implements the schema-versioned, append-only,
// row-group Parquet writer: one schema per
// row kind (forecast, observation), stable column ordering so new
// fields append at the end and old readers ignore columns they don't
// recognize.
package columnar

import (
	"time"

	"github.com/tee8z/weather-oracle/weather"
)

// ForecastRecord is the on-disk column layout for weather.ForecastRow.
// Column order is append-only — never reorder or remove a field, only
// add new ones at the end — mirroring cmn/jsp's format-version
// discipline for forward/backward compatibility.
type ForecastRecord struct {
	StationID   string  `parquet:"station_id"`
	Latitude    float64 `parquet:"latitude"`
	Longitude   float64 `parquet:"longitude"`
	BeginTime   string  `parquet:"begin_time"`
	EndTime     string  `parquet:"end_time"`
	GeneratedAt string  `parquet:"generated_at"`

	MaxTemp     *float64 `parquet:"max_temp,optional"`
	MaxTempUnit string   `parquet:"max_temp_unit"`
	MinTemp     *float64 `parquet:"min_temp,optional"`
	MinTempUnit string   `parquet:"min_temp_unit"`

	MaxRH     *float64 `parquet:"max_rh,optional"`
	MaxRHUnit string   `parquet:"max_rh_unit"`
	MinRH     *float64 `parquet:"min_rh,optional"`
	MinRHUnit string   `parquet:"min_rh_unit"`

	WindSpeed     *float64 `parquet:"wind_speed,optional"`
	WindSpeedUnit string   `parquet:"wind_speed_unit"`
	WindDir       *float64 `parquet:"wind_dir,optional"`
	WindDirUnit   string   `parquet:"wind_dir_unit"`

	PoP12h     *float64 `parquet:"pop_12h,optional"`
	PoP12hUnit string   `parquet:"pop_12h_unit"`

	QPF     *float64 `parquet:"qpf,optional"`
	QPFUnit string   `parquet:"qpf_unit"`

	SnowAmt     *float64 `parquet:"snow_amt,optional"`
	SnowAmtUnit string   `parquet:"snow_amt_unit"`

	SnowRatio     *float64 `parquet:"snow_ratio,optional"`
	SnowRatioUnit string   `parquet:"snow_ratio_unit"`

	IceAmt     *float64 `parquet:"ice_amt,optional"`
	IceAmtUnit string   `parquet:"ice_amt_unit"`
}

const rfc3339 = time.RFC3339

// ForecastRecordFromRow projects a weather.ForecastRow into its on-disk
// column layout.
func ForecastRecordFromRow(r weather.ForecastRow) ForecastRecord {
	return ForecastRecord{
		StationID:     r.StationID,
		Latitude:      r.Lat,
		Longitude:     r.Lon,
		BeginTime:     r.BeginTime.UTC().Format(rfc3339),
		EndTime:       r.EndTime.UTC().Format(rfc3339),
		GeneratedAt:   r.GeneratedAt.UTC().Format(rfc3339),
		MaxTemp:       r.MaxTemp.Value,
		MaxTempUnit:   r.MaxTemp.Unit,
		MinTemp:       r.MinTemp.Value,
		MinTempUnit:   r.MinTemp.Unit,
		MaxRH:         r.MaxRH.Value,
		MaxRHUnit:     r.MaxRH.Unit,
		MinRH:         r.MinRH.Value,
		MinRHUnit:     r.MinRH.Unit,
		WindSpeed:     r.WindSpd.Value,
		WindSpeedUnit: r.WindSpd.Unit,
		WindDir:       r.WindDir.Value,
		WindDirUnit:   r.WindDir.Unit,
		PoP12h:        r.PoP12h.Value,
		PoP12hUnit:    r.PoP12h.Unit,
		QPF:           r.QPF.Value,
		QPFUnit:       r.QPF.Unit,
		SnowAmt:       r.SnowAmt.Value,
		SnowAmtUnit:   r.SnowAmt.Unit,
		SnowRatio:     r.SnowRatio.Value,
		SnowRatioUnit: r.SnowRatio.Unit,
		IceAmt:        r.IceAmt.Value,
		IceAmtUnit:    r.IceAmt.Unit,
	}
}

// ObservationRecord is the on-disk column layout for
// weather.ObservationRow.
type ObservationRecord struct {
	StationID   string  `parquet:"station_id"`
	Latitude    float64 `parquet:"latitude"`
	Longitude   float64 `parquet:"longitude"`
	GeneratedAt string  `parquet:"generated_at"`

	TempC     *float64 `parquet:"temp_c,optional"`
	TempCUnit string   `parquet:"temp_c_unit"`

	WindSpeed     *float64 `parquet:"wind_speed,optional"`
	WindSpeedUnit string   `parquet:"wind_speed_unit"`
	WindDir       *float64 `parquet:"wind_dir,optional"`
	WindDirUnit   string   `parquet:"wind_dir_unit"`

	Dewpoint     *float64 `parquet:"dewpoint,optional"`
	DewpointUnit string   `parquet:"dewpoint_unit"`

	Altimeter     *float64 `parquet:"altimeter,optional"`
	AltimeterUnit string   `parquet:"altimeter_unit"`

	PrecipIn     *float64 `parquet:"precip_in,optional"`
	PrecipInUnit string   `parquet:"precip_in_unit"`
}

func ObservationRecordFromRow(r weather.ObservationRow) ObservationRecord {
	return ObservationRecord{
		StationID:     r.StationID,
		Latitude:      r.Lat,
		Longitude:     r.Lon,
		GeneratedAt:   r.GeneratedAt.UTC().Format(rfc3339),
		TempC:         r.TempC.Value,
		TempCUnit:     r.TempC.Unit,
		WindSpeed:     r.WindSpd.Value,
		WindSpeedUnit: r.WindSpd.Unit,
		WindDir:       r.WindDir.Value,
		WindDirUnit:   r.WindDir.Unit,
		Dewpoint:      r.Dewpoint.Value,
		DewpointUnit:  r.Dewpoint.Unit,
		Altimeter:     r.Altimeter.Value,
		AltimeterUnit: r.Altimeter.Unit,
		PrecipIn:      r.PrecipIn.Value,
		PrecipInUnit:  r.PrecipIn.Unit,
	}
}
