package chart

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// palette holds the six fixed series colors, assigned in selection order.
var palette = [MaxSeries]drawing.Color{
	{R: 0xd6, G: 0x28, B: 0x28, A: 0xff}, // red
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, // blue
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}, // green
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}, // orange
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}, // purple
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff}, // brown
}

var (
	gridColor   = drawing.Color{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
	markerColor = drawing.Color{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// placeholderText maps non-plottable states to their placeholder message.
func placeholderText(s State) string {
	switch s {
	case StateNoSeries:
		return "no data"
	case StateNoValues:
		return "no time data"
	default:
		return ""
	}
}

// Render draws a projection to PNG. Series are drawn in value space with a
// normalized [0,1] horizontal axis; labels maps sensor IDs to legend names.
// Placeholder states render an empty chart carrying only the message.
func Render(w io.Writer, p Projection, labels map[int]string, width, height int) error {
	if p.State != StateOK {
		return renderPlaceholder(w, placeholderText(p.State), width, height)
	}

	var xGrid, yGrid []chart.GridLine
	for col := 1; col < GridCols; col++ {
		xGrid = append(xGrid, chart.GridLine{Value: float64(col) / GridCols})
	}
	for row := 1; row < GridRows; row++ {
		yGrid = append(yGrid, chart.GridLine{Value: p.Min + (p.Max-p.Min)*float64(row)/GridRows})
	}

	xTicks := []chart.Tick{{Value: 0, Label: ""}, {Value: 1, Label: ""}}
	for _, t := range p.TimeTicks {
		xTicks = append(xTicks, chart.Tick{Value: t.X, Label: t.Clock + " " + t.Date})
	}

	var yTicks []chart.Tick
	for _, t := range p.ValueTicks {
		yTicks = append(yTicks, chart.Tick{Value: t.Value, Label: t.Label})
	}

	var cs []chart.Series

	// Midnight markers: full-height vertical lines behind the data.
	for _, x := range p.DayMarkers {
		cs = append(cs, chart.ContinuousSeries{
			XValues: []float64{x, x},
			YValues: []float64{p.Min, p.Max},
			Style: chart.Style{
				StrokeColor:     markerColor,
				StrokeWidth:     1.0,
				StrokeDashArray: []float64{3, 3},
			},
		})
	}

	for _, sp := range p.Series {
		color := palette[sp.ColorIndex]
		named := false
		for _, seg := range sp.Segments {
			xs := make([]float64, 0, len(seg))
			ys := make([]float64, 0, len(seg))
			for _, pt := range seg {
				xs = append(xs, pt.X)
				// Back to value space for the y axis.
				ys = append(ys, p.Max-(p.Max-p.Min)*pt.Y)
			}
			if len(xs) == 1 {
				// go-chart needs two points to stroke anything; widen an
				// isolated sample into a short flat dash.
				xs = append(xs, xs[0]+0.002)
				ys = append(ys, ys[0])
			}
			s := chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: color, StrokeWidth: 2.0},
			}
			// One legend entry per sensor, not per segment.
			if !named {
				s.Name = labels[sp.SensorID]
				named = true
			}
			cs = append(cs, s)
		}
	}

	graph := chart.Chart{
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Ticks:          xTicks,
			Range:          &chart.ContinuousRange{Min: 0, Max: 1},
			GridLines:      xGrid,
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1.0},
			TickStyle:      chart.Style{TextRotationDegrees: 45.0},
		},
		YAxis: chart.YAxis{
			Ticks:          yTicks,
			Range:          &chart.ContinuousRange{Min: p.Min, Max: p.Max},
			GridLines:      yGrid,
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1.0},
		},
		Series: cs,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func renderPlaceholder(w io.Writer, msg string, width, height int) error {
	// go-chart refuses to render without series; an invisible one carries
	// the placeholder title.
	graph := chart.Chart{
		Title:  msg,
		Width:  width,
		Height: height,
		XAxis:  chart.XAxis{Style: chart.Hidden()},
		YAxis:  chart.YAxis{Style: chart.Hidden()},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
			},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render placeholder: %w", err)
	}
	return nil
}
