package forecast

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tee8z/weather-oracle/weather"
)

// Scatters values through the two matching policies: a
// four-slot 3-hourly layout (L1) next to a single 12-hour layout (L2),
// with snow on L2 (accumulative, strict) and max temperature on L1
// (instantaneous, permissive with carry-forward).
var _ = Describe("Flatten scatter policies", func() {
	var (
		base time.Time
		doc  *Document
	)

	threeHourly := func(n int) TimeLayout {
		l := TimeLayout{Key: "l1"}
		for i := 0; i < n; i++ {
			start := base.Add(time.Duration(i) * 3 * time.Hour)
			end := start.Add(3 * time.Hour)
			l.Ranges = append(l.Ranges, TimeRange{Start: start, End: &end})
		}
		return l
	}

	BeforeEach(func() {
		base = time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
		twelveEnd := base.Add(12 * time.Hour)
		doc = &Document{
			GeneratedAt: base,
			TimeLayouts: map[string]TimeLayout{
				"l1": threeHourly(4),
				"l2": {Key: "l2", Ranges: []TimeRange{{Start: base, End: &twelveEnd}}},
			},
			Locations: map[string]Location{
				"loc1": {Key: "loc1", Lat: 39.86, Lon: -104.67, StationID: "KDEN"},
			},
		}
	})

	rowsFor := func(station string) []weather.ForecastRow {
		rows, err := Flatten(doc)
		Expect(err).NotTo(HaveOccurred())
		return rows[station]
	}

	It("never replicates an accumulative value into sub-windows", func() {
		doc.Groups = []ParameterGroup{
			{LocationKey: "loc1", Field: FieldSnowAmt, LayoutKey: "l2", Values: []string{"0.6"}},
			{LocationKey: "loc1", Field: FieldMaxTemp, LayoutKey: "l1", Values: []string{"32", "33", "34", "35"}},
		}
		rows := rowsFor("KDEN")
		Expect(rows).To(HaveLen(5)) // 4 from l1, plus l2's own 12-hour window

		// The four 3-hour rows: max temp scatters positionally, snow
		// stays null on every one of them (strict matching).
		maxTemps := make([]float64, 0, 4)
		for _, r := range rows {
			if r.EndTime.Sub(r.BeginTime) != 3*time.Hour {
				continue
			}
			Expect(r.SnowAmt.Value).To(BeNil())
			Expect(r.MaxTemp.Value).NotTo(BeNil())
			maxTemps = append(maxTemps, *r.MaxTemp.Value)
		}
		Expect(maxTemps).To(Equal([]float64{32, 33, 34, 35}))

		// The 12-hour row is the one exact (begin, end) match for snow.
		var twelve *weather.ForecastRow
		for i := range rows {
			if rows[i].EndTime.Sub(rows[i].BeginTime) == 12*time.Hour {
				twelve = &rows[i]
			}
		}
		Expect(twelve).NotTo(BeNil())
		Expect(twelve.SnowAmt.Value).To(HaveValue(Equal(0.6)))
	})

	It("carries the last non-null instantaneous value forward", func() {
		doc.Groups = []ParameterGroup{
			{LocationKey: "loc1", Field: FieldMaxTemp, LayoutKey: "l1", Values: []string{"32", "", "34", ""}},
		}
		rows := rowsFor("KDEN")

		got := make([]float64, 0, 4)
		for _, r := range rows {
			if r.EndTime.Sub(r.BeginTime) != 3*time.Hour {
				continue
			}
			Expect(r.MaxTemp.Value).NotTo(BeNil())
			got = append(got, *r.MaxTemp.Value)
		}
		Expect(got).To(Equal([]float64{32, 32, 34, 34}))
	})

	It("seeds every row with non-empty canonical unit codes", func() {
		doc.Groups = nil
		for _, r := range rowsFor("KDEN") {
			Expect(r.BeginTime.Before(r.EndTime)).To(BeTrue())
			Expect(r.MaxTemp.Unit).NotTo(BeEmpty())
			Expect(r.WindSpd.Unit).NotTo(BeEmpty())
			Expect(r.QPF.Unit).NotTo(BeEmpty())
		}
	})

	It("produces exactly one row for a single-interval single-value document", func() {
		end := base.Add(3 * time.Hour)
		doc.TimeLayouts = map[string]TimeLayout{
			"l1": {Key: "l1", Ranges: []TimeRange{{Start: base, End: &end}}},
		}
		doc.Groups = []ParameterGroup{
			{LocationKey: "loc1", Field: FieldMaxTemp, LayoutKey: "l1", Values: []string{"70"}},
		}
		rows := rowsFor("KDEN")
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].MaxTemp.Value).To(HaveValue(Equal(70.0)))
		Expect(rows[0].MinTemp.Value).To(BeNil())
		Expect(rows[0].QPF.Value).To(BeNil())
	})

	It("estimates open-ended ranges from the next slot's start", func() {
		next := base.Add(6 * time.Hour)
		doc.TimeLayouts = map[string]TimeLayout{
			"l1": {Key: "l1", Ranges: []TimeRange{
				{Start: base},
				{Start: next},
			}},
		}
		doc.Groups = []ParameterGroup{
			{LocationKey: "loc1", Field: FieldWindSpeed, LayoutKey: "l1", Values: []string{"10", "12"}},
		}
		rows := rowsFor("KDEN")
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].EndTime).To(Equal(next))                    // estimated from the next start
		Expect(rows[1].EndTime).To(Equal(next.Add(3 * time.Hour))) // trailing default
	})
})
