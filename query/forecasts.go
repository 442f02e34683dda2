package query

import (
	"context"
	"math"
	"time"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/columnar"
	"github.com/tee8z/weather-oracle/weather"
)

// DailyForecast is one (station, UTC date) aggregate row.
type DailyForecast struct {
	Station   string
	Date      string // YYYY-MM-DD, UTC
	StartTime time.Time
	EndTime   time.Time

	TempLow, TempHigh        weather.Measurement
	WindSpeed, WindDir       weather.Measurement
	HumidityMax, HumidityMin weather.Measurement
	PrecipChance             weather.Measurement
	RainAmt, SnowAmt, IceAmt weather.Measurement
}

type forecastKey struct {
	station    string
	begin, end string
}

// dedupeForecasts keeps, for each (station, begin, end), the row with
// the maximum generated_at taking the row with the maximum generated_at").
func dedupeForecasts(rows []columnar.ForecastRecord) []columnar.ForecastRecord {
	best := make(map[forecastKey]columnar.ForecastRecord, len(rows))
	for _, r := range rows {
		k := forecastKey{station: r.StationID, begin: r.BeginTime, end: r.EndTime}
		cur, ok := best[k]
		if !ok || r.GeneratedAt > cur.GeneratedAt {
			best[k] = r
		}
	}
	out := make([]columnar.ForecastRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	return out
}

type dailyAccum struct {
	station            string
	date               string
	start, end         time.Time
	haveStart, haveEnd bool

	tempLow, tempHigh        *float64
	tempUnit                 string
	windSpeed                *float64
	windDir                  *float64
	humidityMax, humidityMin *float64
	precipChance             *float64
	totalQPF                 float64
	haveQPF                  bool
	snowAmt                  float64
	haveSnow                 bool
	snowRatioSum, snowRatioN float64
	iceAmt                   float64
	haveIce                  bool
}

func accumulateMin(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return ptr(v)
	}
	return cur
}

func accumulateMax(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return ptr(v)
	}
	return cur
}

// ForecastsData builds the per-day forecast view: dedupe, then
// aggregate per (station, UTC date) with value-range filters and the
// rain-decomposition formula.
func ForecastsData(ctx context.Context, cat catalog.Catalog, req Request) ([]DailyForecast, error) {
	raw, err := readForecastRecords(ctx, cat, req.Range)
	if err != nil {
		return nil, err
	}
	deduped := dedupeForecasts(raw)

	accums := map[string]*dailyAccum{}
	var order []string

	for _, r := range deduped {
		if !stationAllowed(req.Stations, r.StationID) {
			continue
		}
		begin, err := time.Parse(time.RFC3339, r.BeginTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, r.EndTime)
		if err != nil {
			continue
		}
		if !overlapsWindow(begin, end, req.Start, req.End) {
			continue
		}

		date := begin.UTC().Format("2006-01-02")
		key := r.StationID + "|" + date
		acc, ok := accums[key]
		if !ok {
			acc = &dailyAccum{station: r.StationID, date: date}
			accums[key] = acc
			order = append(order, key)
		}

		if !acc.haveStart || begin.Before(acc.start) {
			acc.start, acc.haveStart = begin, true
		}
		if !acc.haveEnd || end.After(acc.end) {
			acc.end, acc.haveEnd = end, true
		}
		if acc.tempUnit == "" {
			acc.tempUnit = r.MaxTempUnit
		}

		if v, ok := inRange(r.MinTemp, minTempBound, maxTempBound); ok {
			acc.tempLow = accumulateMin(acc.tempLow, v)
		}
		if v, ok := inRange(r.MaxTemp, minTempBound, maxTempBound); ok {
			acc.tempHigh = accumulateMax(acc.tempHigh, v)
		}
		if v, ok := inRange(r.WindSpeed, minWindSpeed, maxWindSpeed); ok {
			acc.windSpeed = accumulateMax(acc.windSpeed, v)
		}
		if v, ok := inRange(r.WindDir, minWindDir, maxWindDir); ok {
			acc.windDir = accumulateMax(acc.windDir, v)
		}
		if v, ok := inRange(r.MaxRH, minHumidity, maxHumidity); ok {
			acc.humidityMax = accumulateMax(acc.humidityMax, v)
		}
		if v, ok := inRange(r.MinRH, minHumidity, maxHumidity); ok {
			acc.humidityMin = accumulateMin(acc.humidityMin, v)
		}
		if v, ok := inRange(r.PoP12h, minPrecipChance, maxPrecip); ok {
			acc.precipChance = accumulateMax(acc.precipChance, v)
		}
		if v, ok := inRange(r.QPF, 0, math.MaxFloat64); ok {
			acc.totalQPF += v
			acc.haveQPF = true
		}
		if v, ok := inRange(r.SnowAmt, 0, math.MaxFloat64); ok {
			acc.snowAmt += v
			acc.haveSnow = true
		}
		if r.SnowRatio != nil && *r.SnowRatio > 0 {
			acc.snowRatioSum += *r.SnowRatio
			acc.snowRatioN++
		}
		if v, ok := inRange(r.IceAmt, 0, math.MaxFloat64); ok {
			acc.iceAmt += v
			acc.haveIce = true
		}
	}

	out := make([]DailyForecast, 0, len(order))
	for _, key := range order {
		acc := accums[key]
		df := DailyForecast{
			Station:      acc.station,
			Date:         acc.date,
			StartTime:    clip(acc.start, req.Start, true),
			EndTime:      clip(acc.end, req.End, false),
			TempLow:      measurement(acc.tempLow, acc.tempUnit),
			TempHigh:     measurement(acc.tempHigh, acc.tempUnit),
			WindSpeed:    measurement(acc.windSpeed, weather.UnitKnots),
			WindDir:      measurement(acc.windDir, weather.UnitDegreesTrue),
			HumidityMax:  measurement(acc.humidityMax, weather.UnitPercent),
			HumidityMin:  measurement(acc.humidityMin, weather.UnitPercent),
			PrecipChance: measurement(acc.precipChance, weather.UnitPercent),
		}
		df.RainAmt, df.SnowAmt, df.IceAmt = rainDecomposition(acc)

		isTemp := true
		df.TempLow = convertedMeasurement(df.TempLow, req.TemperatureUnit, isTemp)
		df.TempHigh = convertedMeasurement(df.TempHigh, req.TemperatureUnit, isTemp)
		out = append(out, df)
	}
	return out, nil
}

// rainDecomposition splits total precipitation:
// rain = max(0, total_QPF - (snow_amt / snow_ratio) - ice_amt), falling
// back to total_QPF - ice_amt when snow_ratio is unavailable.
func rainDecomposition(acc *dailyAccum) (rain, snow, ice weather.Measurement) {
	if acc.haveSnow {
		snow = weather.NewMeasurement(acc.snowAmt, weather.UnitInches)
	}
	if acc.haveIce {
		ice = weather.NewMeasurement(acc.iceAmt, weather.UnitInches)
	}
	if !acc.haveQPF {
		return rain, snow, ice
	}

	var rainVal float64
	if acc.snowRatioN > 0 {
		avgRatio := acc.snowRatioSum / acc.snowRatioN
		rainVal = acc.totalQPF - (acc.snowAmt / avgRatio) - acc.iceAmt
	} else {
		rainVal = acc.totalQPF - acc.iceAmt
	}
	if rainVal < 0 {
		rainVal = 0
	}
	rain = weather.NewMeasurement(rainVal, weather.UnitInches)
	return rain, snow, ice
}

func measurement(v *float64, unit string) weather.Measurement {
	if v == nil {
		return weather.Measurement{Unit: unit}
	}
	return weather.Measurement{Value: v, Unit: unit}
}

// clip bounds t to the request's start/end whenever the bound is
// tighter than the observed value.
func clip(t, bound time.Time, lower bool) time.Time {
	if bound.IsZero() {
		return t
	}
	if lower && t.Before(bound) {
		return bound
	}
	if !lower && t.After(bound) {
		return bound
	}
	return t
}
