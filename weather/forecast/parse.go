package forecast

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"
)

type rawDWML struct {
	XMLName xml.Name `xml:"dwml"`
	Data    rawData  `xml:"data"`
	Head    rawHead  `xml:"head"`
}

type rawHead struct {
	CreationDate string `xml:"product>creation-date"`
}

type rawData struct {
	TimeLayouts []rawTimeLayout `xml:"time-layout"`
	Locations   []rawLocation   `xml:"location"`
	Parameters  []rawParameters `xml:"parameters"`
}

type rawTimeLayout struct {
	LayoutKey      string   `xml:"layout-key"`
	StartValidTime []string `xml:"start-valid-time"`
	EndValidTime   []string `xml:"end-valid-time"`
}

type rawLocation struct {
	LocationKey string   `xml:"location-key"`
	Point       rawPoint `xml:"point"`
	StationID   string   `xml:"station-id"`
}

type rawPoint struct {
	Latitude  string `xml:"latitude,attr"`
	Longitude string `xml:"longitude,attr"`
}

type rawValueGroup struct {
	Type       string   `xml:"type,attr"`
	TimeLayout string   `xml:"time-layout,attr"`
	Value      []string `xml:"value"`
}

type rawParameters struct {
	ApplicableLocation string          `xml:"applicable-location,attr"`
	Temperature        []rawValueGroup `xml:"temperature"`
	Humidity           []rawValueGroup `xml:"humidity"`
	WindSpeed          []rawValueGroup `xml:"wind-speed"`
	Direction          []rawValueGroup `xml:"direction"`
	Pop12              []rawValueGroup `xml:"probability-of-precipitation"`
	Precipitation      []rawValueGroup `xml:"precipitation"`
	SnowRatio          []rawValueGroup `xml:"snow-ratio"`
}

// ParseDocument unmarshals an already-grouped (package xmlgroup) forecast
// document into a Document ready for Flatten.
func ParseDocument(r io.Reader) (*Document, error) {
	var raw rawDWML
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("forecast: decode: %w", err)
	}

	doc := &Document{
		TimeLayouts: make(map[string]TimeLayout, len(raw.Data.TimeLayouts)),
		Locations:   make(map[string]Location, len(raw.Data.Locations)),
	}
	if raw.Head.CreationDate != "" {
		if t, err := time.Parse(time.RFC3339, raw.Head.CreationDate); err == nil {
			doc.GeneratedAt = t.UTC()
		}
	}

	for _, rl := range raw.Data.TimeLayouts {
		layout, err := parseTimeLayout(rl)
		if err != nil {
			return nil, err
		}
		doc.TimeLayouts[layout.Key] = layout
	}

	for _, rl := range raw.Data.Locations {
		lat, errLat := strconv.ParseFloat(rl.Point.Latitude, 64)
		lon, errLon := strconv.ParseFloat(rl.Point.Longitude, 64)
		if errLat != nil || errLon != nil {
			continue // malformed location: dropped, not fatal
		}
		doc.Locations[rl.LocationKey] = Location{
			Key:       rl.LocationKey,
			Lat:       lat,
			Lon:       lon,
			StationID: rl.StationID,
		}
	}

	for _, rp := range raw.Data.Parameters {
		doc.Groups = append(doc.Groups, groupsFromParameters(rp)...)
	}

	return doc, nil
}

func parseTimeLayout(rl rawTimeLayout) (TimeLayout, error) {
	layout := TimeLayout{Key: rl.LayoutKey}
	for i, s := range rl.StartValidTime {
		start, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return TimeLayout{}, fmt.Errorf("forecast: layout %s: bad start time %q: %w", rl.LayoutKey, s, err)
		}
		tr := TimeRange{Start: start.UTC()}
		if i < len(rl.EndValidTime) && rl.EndValidTime[i] != "" {
			end, err := time.Parse(time.RFC3339, rl.EndValidTime[i])
			if err != nil {
				return TimeLayout{}, fmt.Errorf("forecast: layout %s: bad end time %q: %w", rl.LayoutKey, rl.EndValidTime[i], err)
			}
			endUTC := end.UTC()
			tr.End = &endUTC
		}
		layout.Ranges = append(layout.Ranges, tr)
	}
	return layout, nil
}

func groupsFromParameters(rp rawParameters) []ParameterGroup {
	var out []ParameterGroup
	loc := rp.ApplicableLocation
	add := func(vg rawValueGroup, kind FieldKind) {
		out = append(out, ParameterGroup{
			LocationKey: loc,
			Field:       kind,
			LayoutKey:   vg.TimeLayout,
			Values:      vg.Value,
		})
	}
	for _, vg := range rp.Temperature {
		switch vg.Type {
		case "maximum":
			add(vg, FieldMaxTemp)
		case "minimum":
			add(vg, FieldMinTemp)
		}
	}
	for _, vg := range rp.Humidity {
		switch vg.Type {
		case "maximum relative", "maximum":
			add(vg, FieldMaxRH)
		case "minimum relative", "minimum":
			add(vg, FieldMinRH)
		}
	}
	for _, vg := range rp.WindSpeed {
		if vg.Type == "sustained" {
			add(vg, FieldWindSpeed)
		}
	}
	for _, vg := range rp.Direction {
		if vg.Type == "wind" {
			add(vg, FieldWindDir)
		}
	}
	for _, vg := range rp.Pop12 {
		add(vg, FieldPoP12)
	}
	for _, vg := range rp.Precipitation {
		switch vg.Type {
		case "liquid":
			add(vg, FieldQPF)
		case "snow":
			add(vg, FieldSnowAmt)
		case "ice":
			add(vg, FieldIceAmt)
		}
	}
	for _, vg := range rp.SnowRatio {
		add(vg, FieldSnowRatio)
	}
	return out
}
