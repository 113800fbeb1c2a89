package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weathergram/core/weather"
)

func sampleSeries(n int) weather.HourlySeries {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	series := weather.HourlySeries{Offset: 3 * time.Hour}
	for i := 0; i < n; i++ {
		series.Points = append(series.Points, weather.HourlyPoint{
			Time: base.Add(time.Duration(i) * time.Hour),
			Temp: 12 + float64(i%7),
		})
	}
	return series
}

func TestForecastRendersPNG(t *testing.T) {
	data, err := Forecast(sampleSeries(48))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err, "output must be a decodable PNG")
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestForecastDeterministic(t *testing.T) {
	series := sampleSeries(48)
	a, err := Forecast(series)
	require.NoError(t, err)
	b, err := Forecast(series)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "same series must render identical bytes")
}

func TestForecastShortSeries(t *testing.T) {
	data, err := Forecast(sampleSeries(5))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestForecastEmptySeries(t *testing.T) {
	_, err := Forecast(weather.HourlySeries{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySeries))
}
