package etl

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/tee8z/weather-oracle/event"
	"github.com/tee8z/weather-oracle/query"
	"github.com/tee8z/weather-oracle/weather"
)

// updateWeather is the tick's first step: forecast data is always
// fetched; observation data is fetched only once the event's
// observation window has begun. A failure for one event is logged and
// skipped so it never blocks the rest of the tick.
func (o *Orchestrator) updateWeather(ctx context.Context, events []event.Event, now time.Time) {
	for _, ev := range events {
		req := query.Request{
			Range:    query.Range{Start: ev.StartObservationDate, End: ev.EndObservationDate},
			Stations: ev.Locations,
		}

		forecasts, err := query.ForecastsData(ctx, o.catalog, req)
		if err != nil {
			glog.Errorf("etl: forecast query failed for event %s: %v", ev.ID, err)
			continue
		}
		byStationForecast := map[string]query.DailyForecast{}
		for _, df := range forecasts {
			byStationForecast[df.Station] = df
		}

		var byStationObs map[string]query.ObservationSummary
		if !now.Before(ev.StartObservationDate) {
			obs, err := query.ObservationData(ctx, o.catalog, req)
			if err != nil {
				glog.Errorf("etl: observation query failed for event %s: %v", ev.ID, err)
			} else {
				byStationObs = map[string]query.ObservationSummary{}
				for _, summary := range obs {
					byStationObs[summary.Station] = summary
				}
			}
		}

		snapshot := make(map[string]event.StationWeather, len(ev.Locations))
		for _, station := range ev.Locations {
			sw := event.StationWeather{Station: station, Forecast: map[string]float64{}}
			if df, ok := byStationForecast[station]; ok {
				sw.Forecast = forecastFieldMap(df)
			} else {
				glog.Warningf("etl: no forecast data for station %s (event %s)", station, ev.ID)
			}
			if byStationObs != nil {
				if os, ok := byStationObs[station]; ok {
					sw.Observed = observedFieldMap(os)
				} else {
					glog.Warningf("etl: no observation data for station %s (event %s)", station, ev.ID)
				}
			}
			snapshot[station] = sw
		}

		if err := o.store.AddWeatherSnapshot(ev.ID, now, snapshot); err != nil {
			glog.Errorf("etl: persist weather snapshot failed for event %s: %v", ev.ID, err)
		}
	}
}

// forecastFieldMap projects a DailyForecast onto the station/field
// scoring vocabulary named in event.Choice.Field (temp_high, temp_low,
// wind_speed, ...).
func forecastFieldMap(df query.DailyForecast) map[string]float64 {
	m := map[string]float64{}
	putMeasurement(m, "temp_high", df.TempHigh)
	putMeasurement(m, "temp_low", df.TempLow)
	putMeasurement(m, "wind_speed", df.WindSpeed)
	putMeasurement(m, "wind_dir", df.WindDir)
	putMeasurement(m, "humidity_max", df.HumidityMax)
	putMeasurement(m, "humidity_min", df.HumidityMin)
	putMeasurement(m, "precip_chance", df.PrecipChance)
	putMeasurement(m, "rain_amt", df.RainAmt)
	putMeasurement(m, "snow_amt", df.SnowAmt)
	putMeasurement(m, "ice_amt", df.IceAmt)
	return m
}

func observedFieldMap(os query.ObservationSummary) map[string]float64 {
	m := map[string]float64{}
	putMeasurement(m, "temp_high", os.TempHigh)
	putMeasurement(m, "temp_low", os.TempLow)
	putMeasurement(m, "wind_speed", os.WindSpeed)
	return m
}

func putMeasurement(m map[string]float64, field string, meas weather.Measurement) {
	if meas.Value != nil {
		m[field] = *meas.Value
	}
}
