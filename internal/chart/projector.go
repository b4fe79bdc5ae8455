// Package chart turns a selection of sensor series into a shared-axis
// projection and renders it. Projection works in a normalized unit square:
// x in [0,1] left to right, y in [0,1] top to bottom (0 is the value
// maximum, matching screen coordinates).
package chart

import (
	"fmt"
	"math"
	"time"

	"airmon/internal/series"
)

// TimeLayout is the provider's sample timestamp format.
const TimeLayout = "2006-01-02 15:04:05"

const (
	// MaxSeries is the size of the fixed color palette; selections beyond
	// it are not plotted.
	MaxSeries = 6

	// GridCols and GridRows define the fixed background grid, independent
	// of the data.
	GridCols = 10
	GridRows = 10

	// ValueTickCount value-axis labels, evenly spaced min..max inclusive.
	ValueTickCount = 6

	// tickHourStep labels canonical-axis entries whose hour is a multiple
	// of this step.
	tickHourStep = 4
)

// State says whether a projection carries plottable geometry.
type State int

const (
	// StateOK: geometry, ticks and markers are populated.
	StateOK State = iota
	// StateNoSeries: the selection is empty or no selected sensor has a
	// stored series ("no data" placeholder).
	StateNoSeries
	// StateNoValues: series exist but contain no valid value ("no time
	// data" placeholder).
	StateNoValues
)

// Point is a normalized plot coordinate.
type Point struct {
	X float64
	Y float64
}

// SeriesPlot is the plotted geometry of one sensor. Segments are the
// polyline runs between missing samples; a gap in the source data splits
// the line rather than interpolating across it.
type SeriesPlot struct {
	SensorID   int
	ColorIndex int
	Segments   [][]Point
}

// TimeTick is a labeled position on the canonical time axis.
type TimeTick struct {
	X     float64
	Clock string // HH:MM
	Date  string // DD.MM.YY
}

// ValueTick is a labeled position on the value axis.
type ValueTick struct {
	Y     float64
	Label string
	Value float64
}

// Projection is the complete chart model for one selection snapshot.
type Projection struct {
	State      State
	Min        float64
	Max        float64
	Series     []SeriesPlot
	TimeTicks  []TimeTick
	DayMarkers []float64 // x positions of full-height midnight markers
	ValueTicks []ValueTick
}

func validValue(s series.Sample) (float64, bool) {
	if s.Value == nil || math.IsNaN(*s.Value) {
		return 0, false
	}
	return *s.Value, true
}

// xAt maps sample index i of a series with n samples onto [0,1].
func xAt(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// Project computes the shared value range, canonical time axis and per-series
// geometry for the selected sensors, in selection order. Only the first
// MaxSeries selected sensors are plotted; the canonical time axis is taken
// from the first selected series, and other series are aligned by their own
// index positions rather than by timestamp.
func Project(selection []int, data map[int]series.Series) Projection {
	if len(selection) > MaxSeries {
		selection = selection[:MaxSeries]
	}

	anyPresent := false
	for _, id := range selection {
		if _, ok := data[id]; ok {
			anyPresent = true
			break
		}
	}
	if len(selection) == 0 || !anyPresent {
		return Projection{State: StateNoSeries}
	}

	// Global value range over every valid sample of the selection. Empty
	// series contribute nothing but do not block the others.
	var (
		min, max float64
		seen     bool
	)
	for _, id := range selection {
		for _, s := range data[id] {
			v, ok := validValue(s)
			if !ok {
				continue
			}
			if !seen {
				min, max = v, v
				seen = true
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if !seen {
		return Projection{State: StateNoValues}
	}
	if min == max {
		// A flat series would collapse the value axis to zero height.
		min--
		max++
	}

	p := Projection{State: StateOK, Min: min, Max: max}

	for pos, id := range selection {
		sr, ok := data[id]
		if !ok {
			continue
		}
		plot := SeriesPlot{SensorID: id, ColorIndex: pos}
		n := len(sr)
		var seg []Point
		for i, s := range sr {
			v, ok := validValue(s)
			if !ok {
				// Gap: close the current segment, resume at the next
				// valid sample without connecting across.
				if len(seg) > 0 {
					plot.Segments = append(plot.Segments, seg)
					seg = nil
				}
				continue
			}
			seg = append(seg, Point{
				X: xAt(i, n),
				Y: 1 - (v-min)/(max-min),
			})
		}
		if len(seg) > 0 {
			plot.Segments = append(plot.Segments, seg)
		}
		p.Series = append(p.Series, plot)
	}

	canonical := data[selection[0]]
	p.TimeTicks, p.DayMarkers = timeAxis(canonical)

	for k := 0; k < ValueTickCount; k++ {
		frac := float64(k) / float64(ValueTickCount-1)
		v := min + (max-min)*frac
		p.ValueTicks = append(p.ValueTicks, ValueTick{
			Y:     1 - frac,
			Label: fmt.Sprintf("%.2f", v),
			Value: v,
		})
	}

	return p
}

// timeAxis derives tick labels and midnight markers from the canonical
// series. Ticks land on hours that are multiples of four, and a repeated
// hour value is only labeled again after a different hour was labeled in
// between (left to right, transitions only).
func timeAxis(canonical series.Series) ([]TimeTick, []float64) {
	var (
		ticks   []TimeTick
		markers []float64
	)
	n := len(canonical)
	lastHour := -1
	for i, s := range canonical {
		t, err := time.Parse(TimeLayout, s.Date)
		if err != nil {
			continue
		}
		x := xAt(i, n)

		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			markers = append(markers, x)
		}

		if t.Hour()%tickHourStep == 0 && t.Hour() != lastHour {
			ticks = append(ticks, TimeTick{
				X:     x,
				Clock: t.Format("15:04"),
				Date:  t.Format("02.01.06"),
			})
			lastHour = t.Hour()
		}
	}
	return ticks, markers
}
