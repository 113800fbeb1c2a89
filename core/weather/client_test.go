package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const currentBody = `{
	"cod": 200,
	"name": "Paris",
	"coord": {"lat": 48.8566, "lon": 2.3522},
	"main": {"temp": 18.4, "feels_like": 17.9, "humidity": 55, "pressure": 1012},
	"weather": [{"description": "clear sky"}],
	"wind": {"speed": 3.2}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/weather",
		OneCallURL: srv.URL + "/onecall",
		Lang:       "en",
		Timeout:    2 * time.Second,
	})
}

func TestCurrentByCity(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q":     q.Get("q"),
			"appid": q.Get("appid"),
			"units": q.Get("units"),
			"lang":  q.Get("lang"),
		}
		fmt.Fprint(w, currentBody)
	})

	snap, err := client.CurrentByCity(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, "Paris", gotQuery["q"])
	assert.Equal(t, "test-key", gotQuery["appid"])
	assert.Equal(t, "metric", gotQuery["units"])
	assert.Equal(t, "en", gotQuery["lang"])

	assert.Equal(t, "Paris", snap.City)
	assert.Equal(t, "clear sky", snap.Description)
	assert.Equal(t, 18, RoundTemp(snap.Temp))
	assert.Equal(t, 18, RoundTemp(snap.FeelsLike))
	assert.Equal(t, 55, snap.Humidity)
	assert.InDelta(t, 3.2, snap.WindSpeed, 1e-9)
	assert.Equal(t, 759, snap.PressureMmHg())
	assert.InDelta(t, 48.8566, snap.Coords.Lat, 1e-9)
	assert.InDelta(t, 2.3522, snap.Coords.Lon, 1e-9)
}

func TestCurrentByCoordsSendsLatLon(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "51.5", q.Get("lat"))
		assert.Equal(t, "-0.12", q.Get("lon"))
		assert.Empty(t, q.Get("q"))
		fmt.Fprint(w, currentBody)
	})

	_, err := client.CurrentByCoords(context.Background(), 51.5, -0.12)
	require.NoError(t, err)
}

func TestCurrentNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
	})

	_, err := client.CurrentByCity(context.Background(), "Nowhereville")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrProvider))
	assert.Equal(t, "NOT_FOUND", ErrCode(err))
}

func TestCurrentProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CurrentByCity(context.Background(), "Paris")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
	assert.Equal(t, "PROVIDER_ERROR", ErrCode(err))
}

func TestCurrentTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, currentBody)
	})
	client.cfg.Timeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.CurrentByCity(ctx, "Paris")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, "TIMEOUT", ErrCode(err))
}

func TestHourlySeries(t *testing.T) {
	const offsetSeconds = 3 * 3600
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "current,minutely,daily,alerts", q.Get("exclude"))
		assert.Equal(t, "metric", q.Get("units"))

		fmt.Fprintf(w, `{"timezone_offset": %d, "hourly": [`, offsetSeconds)
		for i := 0; i < 48; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"dt": %d, "temp": %d}`, base.Add(time.Duration(i)*time.Hour).Unix(), 10+i%5)
		}
		fmt.Fprint(w, `]}`)
	})

	series, err := client.Hourly(context.Background(), 55.7887, 49.1221)
	require.NoError(t, err)
	require.Len(t, series.Points, 48)
	assert.Equal(t, time.Duration(offsetSeconds)*time.Second, series.Offset)

	// First timestamp is localized by the provider's UTC offset.
	assert.Equal(t, base.Add(time.Duration(offsetSeconds)*time.Second), series.Points[0].Time)
	for i := 1; i < len(series.Points); i++ {
		assert.True(t, series.Points[i].Time.After(series.Points[i-1].Time),
			"series must be chronological at index %d", i)
	}
}

func TestHourlyTruncatesToHorizon(t *testing.T) {
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"timezone_offset": 0, "hourly": [`)
		for i := 0; i < 60; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"dt": %d, "temp": 1}`, base.Add(time.Duration(i)*time.Hour).Unix())
		}
		fmt.Fprint(w, `]}`)
	})

	series, err := client.Hourly(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Len(t, series.Points, 48)
}

func TestHourlyEmptyIsProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"timezone_offset": 0, "hourly": []}`)
	})

	_, err := client.Hourly(context.Background(), 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
}

func TestMmHg(t *testing.T) {
	cases := []struct {
		hpa  float64
		want int
	}{
		{1013, 760},
		{1012, 759},
		{0, 0},
		{980, 735},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MmHg(tc.hpa), "hpa=%v", tc.hpa)
	}
}
