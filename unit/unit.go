// Package unit implements the temperature unit conversion policy used
// by the query engine: stored "celcius" (raw NOAA
// spelling) values are normalized to "celsius" before comparison, and
// conversion is a no-op whenever source and target already match.
package unit

import "math"

const (
	Fahrenheit = "fahrenheit"
	Celsius    = "celsius"
	// CelsiusNOAA is the raw, misspelled unit code NOAA's own feeds
	// carry ("celcius"); Normalize maps it to Celsius.
	CelsiusNOAA = "celcius"
)

// Normalize maps NOAA's raw "celcius" spelling, and the short unit
// codes the fetch/flatten layer stores on weather.Measurement ("F"/"C"),
// to the canonical "fahrenheit"/"celsius" unit codes; every other unit
// code passes through unchanged.
func Normalize(u string) string {
	switch u {
	case CelsiusNOAA, "C":
		return Celsius
	case "F":
		return Fahrenheit
	default:
		return u
	}
}

// ConvertTemperature converts v from unit "from" to unit "to",
// rounding to the nearest whole degree: F = round(C*9/5+32),
// C = round((F-32)*5/9). No conversion is applied when the normalized
// units already match.
func ConvertTemperature(v float64, from, to string) float64 {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return v
	}
	switch {
	case from == Celsius && to == Fahrenheit:
		return math.Round(v*9/5 + 32)
	case from == Fahrenheit && to == Celsius:
		return math.Round((v - 32) * 5 / 9)
	default:
		return v
	}
}
