package forecast

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/tee8z/weather-oracle/weather"
)

// ErrMissingTimeLayout is returned when a parameter group references a
// time layout the document never defined; this aborts the whole
// flatten rather than skipping the group.
var ErrMissingTimeLayout = errors.New("forecast: parameter group references undefined time layout")

// resolvedRange is a TimeRange with its open end estimated from the
// same layout's next start (or a 3-hour default).
type resolvedRange struct {
	Start   time.Time
	End     time.Time
	WasOpen bool
}

func resolveLayout(layout TimeLayout) []resolvedRange {
	out := make([]resolvedRange, len(layout.Ranges))
	for i, r := range layout.Ranges {
		if r.End != nil {
			out[i] = resolvedRange{Start: r.Start, End: *r.End}
			continue
		}
		end := r.Start.Add(3 * time.Hour)
		if i+1 < len(layout.Ranges) {
			end = layout.Ranges[i+1].Start
		}
		out[i] = resolvedRange{Start: r.Start, End: end, WasOpen: true}
	}
	return out
}

// unionIntervals unions all resolved ranges across every layout,
// deduplicated by (start_utc, end_utc), sorted ascending by start with
// shorter windows first on a tie.
func unionIntervals(resolvedByLayout map[string][]resolvedRange) []resolvedRange {
	seen := make(map[time.Time]map[time.Time]bool)
	var out []resolvedRange
	for _, ranges := range resolvedByLayout {
		for _, r := range ranges {
			if seen[r.Start] == nil {
				seen[r.Start] = make(map[time.Time]bool)
			}
			if seen[r.Start][r.End] {
				continue
			}
			seen[r.Start][r.End] = true
			out = append(out, resolvedRange{Start: r.Start, End: r.End})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].End.Before(out[j].End)
	})
	return out
}

// Flatten denormalizes doc into one ordered list of
// weather.ForecastRow per station_id: one row per unioned interval,
// values scattered per field kind.
func Flatten(doc *Document) (map[string][]weather.ForecastRow, error) {
	resolvedByLayout := make(map[string][]resolvedRange, len(doc.TimeLayouts))
	for key, layout := range doc.TimeLayouts {
		resolvedByLayout[key] = resolveLayout(layout)
	}
	union := unionIntervals(resolvedByLayout)

	// Index parameter groups by (locationKey, field); each location
	// carries at most one group per field.
	groupIndex := make(map[string]map[FieldKind]ParameterGroup)
	for _, g := range doc.Groups {
		if _, err := layoutFor(doc, g.LayoutKey); err != nil {
			return nil, err
		}
		if groupIndex[g.LocationKey] == nil {
			groupIndex[g.LocationKey] = make(map[FieldKind]ParameterGroup)
		}
		groupIndex[g.LocationKey][g.Field] = g
	}

	out := make(map[string][]weather.ForecastRow)
	for _, loc := range doc.Locations {
		if loc.StationID == "" {
			glog.V(3).Infof("forecast: dropping location %s: no station_id", loc.Key)
			continue
		}
		rows := make([]weather.ForecastRow, len(union))
		for i, r := range union {
			rows[i] = seedRow(loc, r, doc.GeneratedAt)
		}

		carry := make(map[FieldKind]float64)
		hasCarry := make(map[FieldKind]bool)
		fields := groupIndex[loc.Key]

		for i, r := range union {
			for f, group := range fields {
				slots := resolvedByLayout[group.LayoutKey]
				idx, matched := findMatch(f, r, slots)

				var val *float64
				if matched && idx < len(group.Values) {
					if v, err := strconv.ParseFloat(group.Values[idx], 64); err == nil {
						val = &v
					}
				}

				switch {
				case val != nil:
					setField(&rows[i], f, *val)
					carry[f] = *val
					hasCarry[f] = true
				case !f.Accumulative() && hasCarry[f]:
					setField(&rows[i], f, carry[f])
				}
			}
		}
		out[loc.StationID] = rows
	}
	return out, nil
}

func layoutFor(doc *Document, key string) (TimeLayout, error) {
	l, ok := doc.TimeLayouts[key]
	if !ok {
		return TimeLayout{}, fmt.Errorf("%w: %s", ErrMissingTimeLayout, key)
	}
	return l, nil
}

// findMatch locates the layout slot feeding a row. Accumulative
// fields match strictly (exact interval, or exact begin on an
// open-ended slot); everything else degrades through exact-begin,
// containing, and overlapping matches.
func findMatch(f FieldKind, row resolvedRange, slots []resolvedRange) (int, bool) {
	for i, s := range slots {
		if s.Start.Equal(row.Start) && s.End.Equal(row.End) {
			return i, true
		}
	}
	if f.Accumulative() {
		for i, s := range slots {
			if s.WasOpen && s.Start.Equal(row.Start) {
				return i, true
			}
		}
		return -1, false
	}
	for i, s := range slots {
		if s.Start.Equal(row.Start) {
			return i, true
		}
	}
	for i, s := range slots {
		if (s.Start.Before(row.Start) || s.Start.Equal(row.Start)) && s.End.After(row.Start) {
			return i, true
		}
	}
	for i, s := range slots {
		if s.Start.Before(row.End) && s.End.After(row.Start) {
			return i, true
		}
	}
	return -1, false
}

func seedRow(loc Location, r resolvedRange, generatedAt time.Time) weather.ForecastRow {
	return weather.ForecastRow{
		StationID:   loc.StationID,
		Lat:         loc.Lat,
		Lon:         loc.Lon,
		BeginTime:   r.Start,
		EndTime:     r.End,
		GeneratedAt: generatedAt,
		MaxTemp:     weather.Measurement{Unit: weather.UnitFahrenheit},
		MinTemp:     weather.Measurement{Unit: weather.UnitFahrenheit},
		WindSpd:     weather.Measurement{Unit: weather.UnitKnots},
		WindDir:     weather.Measurement{Unit: weather.UnitDegreesTrue},
		MaxRH:       weather.Measurement{Unit: weather.UnitPercent},
		MinRH:       weather.Measurement{Unit: weather.UnitPercent},
		PoP12h:      weather.Measurement{Unit: weather.UnitPercent},
		QPF:         weather.Measurement{Unit: weather.UnitInches},
		SnowAmt:     weather.Measurement{Unit: weather.UnitInches},
		SnowRatio:   weather.Measurement{Unit: weather.UnitInches},
		IceAmt:      weather.Measurement{Unit: weather.UnitInches},
	}
}

func setField(row *weather.ForecastRow, f FieldKind, v float64) {
	switch f {
	case FieldMaxTemp:
		row.MaxTemp.Value = &v
	case FieldMinTemp:
		row.MinTemp.Value = &v
	case FieldMaxRH:
		row.MaxRH.Value = &v
	case FieldMinRH:
		row.MinRH.Value = &v
	case FieldWindSpeed:
		row.WindSpd.Value = &v
	case FieldWindDir:
		row.WindDir.Value = &v
	case FieldPoP12:
		row.PoP12h.Value = &v
	case FieldQPF:
		row.QPF.Value = &v
	case FieldSnowAmt:
		row.SnowAmt.Value = &v
	case FieldSnowRatio:
		row.SnowRatio.Value = &v
	case FieldIceAmt:
		row.IceAmt.Value = &v
	}
}
