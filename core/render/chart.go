// Package render turns an hourly forecast series into a bar chart image.
// Rendering is a pure function of the series: no clock, no randomness.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"weathergram/core/weather"
)

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("render: empty forecast series")

const (
	chartWidth  = 1200
	chartHeight = 600
	barWidth    = 16
	barSpacing  = 8
)

// Forecast renders the series as a PNG bar chart: one bar per hourly point,
// hour:minute labels on the x-axis, temperature on the y-axis, and a title
// spanning the dates of the first and last points. Series shorter than the
// full horizon render exactly what is given.
func Forecast(series weather.HourlySeries) ([]byte, error) {
	if len(series.Points) == 0 {
		return nil, ErrEmptySeries
	}

	bars := make([]chart.Value, 0, len(series.Points))
	for _, p := range series.Points {
		bars = append(bars, chart.Value{
			Value: p.Temp,
			Label: p.Time.Format("15:04"),
		})
	}

	first := series.Points[0].Time
	last := series.Points[len(series.Points)-1].Time

	graph := chart.BarChart{
		Title:      fmt.Sprintf("48-hour forecast (%s - %s)", first.Format("2 January"), last.Format("2 January")),
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		XAxis: chart.Style{
			TextRotationDegrees: 60,
		},
		YAxis: chart.YAxis{
			Name: "Temperature, °C",
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
