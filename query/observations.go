package query

import (
	"context"
	"time"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/weather"
)

// ObservationSummary is one per-station min/max aggregate over the
// request window ->
// aggregated min/max per station over the window").
type ObservationSummary struct {
	Station            string
	StartTime, EndTime time.Time
	TempLow, TempHigh  weather.Measurement
	WindSpeed          weather.Measurement
}

// DailyObservation is the per-(station, UTC date) counterpart, grouping
// observations the way ForecastsData groups forecasts.
type DailyObservation struct {
	Station           string
	Date              string
	TempLow, TempHigh weather.Measurement
	WindSpeed         weather.Measurement
}

type obsAccum struct {
	station            string
	start, end         time.Time
	haveStart, haveEnd bool
	tempLow, tempHigh  *float64
	windSpeed          *float64
}

// ObservationData aggregates per-station min/max over the window.
func ObservationData(ctx context.Context, cat catalog.Catalog, req Request) ([]ObservationSummary, error) {
	rows, err := readObservationRecords(ctx, cat, req.Range)
	if err != nil {
		return nil, err
	}

	accums := map[string]*obsAccum{}
	var order []string
	for _, r := range rows {
		if !stationAllowed(req.Stations, r.StationID) {
			continue
		}
		gen, err := time.Parse(time.RFC3339, r.GeneratedAt)
		if err != nil {
			continue
		}
		if !req.Start.IsZero() && gen.Before(req.Start) {
			continue
		}
		if !req.End.IsZero() && gen.After(req.End) {
			continue
		}
		acc, ok := accums[r.StationID]
		if !ok {
			acc = &obsAccum{station: r.StationID}
			accums[r.StationID] = acc
			order = append(order, r.StationID)
		}
		if !acc.haveStart || gen.Before(acc.start) {
			acc.start, acc.haveStart = gen, true
		}
		if !acc.haveEnd || gen.After(acc.end) {
			acc.end, acc.haveEnd = gen, true
		}
		if v, ok := inRange(r.TempC, minTempBound, maxTempBound); ok {
			acc.tempLow = accumulateMin(acc.tempLow, v)
			acc.tempHigh = accumulateMax(acc.tempHigh, v)
		}
		if v, ok := inRange(r.WindSpeed, minWindSpeed, maxWindSpeed); ok {
			acc.windSpeed = accumulateMax(acc.windSpeed, v)
		}
	}

	out := make([]ObservationSummary, 0, len(order))
	for _, station := range order {
		acc := accums[station]
		isTemp := true
		out = append(out, ObservationSummary{
			Station:   station,
			StartTime: clip(acc.start, req.Start, true),
			EndTime:   clip(acc.end, req.End, false),
			TempLow:   convertedMeasurement(measurement(acc.tempLow, weather.UnitCelsius), req.TemperatureUnit, isTemp),
			TempHigh:  convertedMeasurement(measurement(acc.tempHigh, weather.UnitCelsius), req.TemperatureUnit, isTemp),
			WindSpeed: measurement(acc.windSpeed, weather.UnitKnots),
		})
	}
	return out, nil
}

// DailyObservations groups observations by UTC calendar date instead of
// by the whole request window.
func DailyObservations(ctx context.Context, cat catalog.Catalog, req Request) ([]DailyObservation, error) {
	rows, err := readObservationRecords(ctx, cat, req.Range)
	if err != nil {
		return nil, err
	}

	type key struct{ station, date string }
	accums := map[key]*obsAccum{}
	var order []key
	for _, r := range rows {
		if !stationAllowed(req.Stations, r.StationID) {
			continue
		}
		gen, err := time.Parse(time.RFC3339, r.GeneratedAt)
		if err != nil {
			continue
		}
		if !req.Start.IsZero() && gen.Before(req.Start) {
			continue
		}
		if !req.End.IsZero() && gen.After(req.End) {
			continue
		}
		k := key{station: r.StationID, date: gen.UTC().Format("2006-01-02")}
		acc, ok := accums[k]
		if !ok {
			acc = &obsAccum{station: r.StationID}
			accums[k] = acc
			order = append(order, k)
		}
		if v, ok := inRange(r.TempC, minTempBound, maxTempBound); ok {
			acc.tempLow = accumulateMin(acc.tempLow, v)
			acc.tempHigh = accumulateMax(acc.tempHigh, v)
		}
		if v, ok := inRange(r.WindSpeed, minWindSpeed, maxWindSpeed); ok {
			acc.windSpeed = accumulateMax(acc.windSpeed, v)
		}
	}

	out := make([]DailyObservation, 0, len(order))
	for _, k := range order {
		acc := accums[k]
		isTemp := true
		out = append(out, DailyObservation{
			Station:   k.station,
			Date:      k.date,
			TempLow:   convertedMeasurement(measurement(acc.tempLow, weather.UnitCelsius), req.TemperatureUnit, isTemp),
			TempHigh:  convertedMeasurement(measurement(acc.tempHigh, weather.UnitCelsius), req.TemperatureUnit, isTemp),
			WindSpeed: measurement(acc.windSpeed, weather.UnitKnots),
		})
	}
	return out, nil
}
