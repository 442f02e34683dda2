// Package forecast implements the denormalizing flattener: it turns a
// parsed, grouped NOAA forecast document into one ordered list of
// weather.ForecastRow per station.
//
// The struct tags in parse.go are a simplified approximation of NOAA's
// DWML schema adequate to drive the flattening algorithm, not a
// byte-exact DWML implementation.
package forecast

import "time"

// FieldKind identifies one of the eleven per-interval scatter targets.
type FieldKind int

const (
	FieldMaxTemp FieldKind = iota
	FieldMinTemp
	FieldMaxRH
	FieldMinRH
	FieldWindSpeed
	FieldWindDir
	FieldPoP12
	FieldQPF
	FieldSnowAmt
	FieldSnowRatio
	FieldIceAmt
)

func (f FieldKind) String() string {
	switch f {
	case FieldMaxTemp:
		return "max_temp"
	case FieldMinTemp:
		return "min_temp"
	case FieldMaxRH:
		return "max_rh"
	case FieldMinRH:
		return "min_rh"
	case FieldWindSpeed:
		return "wind_speed"
	case FieldWindDir:
		return "wind_dir"
	case FieldPoP12:
		return "pop_12h"
	case FieldQPF:
		return "qpf"
	case FieldSnowAmt:
		return "snow_amt"
	case FieldSnowRatio:
		return "snow_ratio"
	case FieldIceAmt:
		return "ice_amt"
	default:
		return "unknown"
	}
}

// Accumulative fields use strict matching and never carry forward.
func (f FieldKind) Accumulative() bool {
	switch f {
	case FieldQPF, FieldSnowAmt, FieldSnowRatio, FieldIceAmt:
		return true
	}
	return false
}

func (f FieldKind) DefaultUnit() string {
	switch f {
	case FieldMaxTemp, FieldMinTemp:
		return "F"
	case FieldMaxRH, FieldMinRH, FieldPoP12:
		return "%"
	case FieldWindSpeed:
		return "kt"
	case FieldWindDir:
		return "degT"
	default:
		return "in"
	}
}

// TimeRange is one (start, optional end) slot in a time layout.
type TimeRange struct {
	Start time.Time
	End   *time.Time // nil for open-ended ranges
}

// TimeLayout is a named list of TimeRange, positionally aligned to a
// ParameterGroup's Values.
type TimeLayout struct {
	Key    string
	Ranges []TimeRange
}

// Location is one forecast point, optionally bound to a station.
type Location struct {
	Key       string
	Lat, Lon  float64
	StationID string // empty when the location has no station_id
}

// ParameterGroup carries one field's values for one location, aligned
// positionally to its referenced TimeLayout.
type ParameterGroup struct {
	LocationKey string
	Field       FieldKind
	LayoutKey   string
	Values      []string // "" marks a missing slot value
}

// Document is the parsed-and-grouped forecast input to Flatten.
type Document struct {
	GeneratedAt time.Time
	TimeLayouts map[string]TimeLayout
	Locations   map[string]Location
	Groups      []ParameterGroup
}
