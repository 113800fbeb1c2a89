package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"weathergram/core/logger"
	"log/slog"
)

const (
	defaultBaseURL    = "https://api.openweathermap.org/data/2.5/weather"
	defaultOneCallURL = "https://api.openweathermap.org/data/2.5/onecall"
	defaultTimeout    = 10 * time.Second

	// hourlyHorizon bounds the forecast to the next 48 hourly points.
	hourlyHorizon = 48
)

// Config parametrizes the provider client.
type Config struct {
	APIKey     string
	BaseURL    string
	OneCallURL string
	Lang       string
	Timeout    time.Duration
}

// Client issues outbound lookups against the OpenWeatherMap API.
// Each call is a single request with no internal retry.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a Client from cfg, filling defaults for unset fields.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.OneCallURL == "" {
		cfg.OneCallURL = defaultOneCallURL
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}
}

// currentResponse mirrors the provider's current-weather payload.
// Cod is a json.Number because the provider returns a number on success
// and a string on failure.
type currentResponse struct {
	Cod  json.Number `json:"cod"`
	Name string      `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
}

type oneCallResponse struct {
	TimezoneOffset int64 `json:"timezone_offset"`
	Hourly         []struct {
		Dt   int64   `json:"dt"`
		Temp float64 `json:"temp"`
	} `json:"hourly"`
}

// CurrentByCity performs a current-weather lookup by city name.
func (c *Client) CurrentByCity(ctx context.Context, city string) (Snapshot, error) {
	params := url.Values{}
	params.Set("q", city)
	return c.current(ctx, params, slog.String("city", city))
}

// CurrentByCoords performs a current-weather lookup by geographic point.
func (c *Client) CurrentByCoords(ctx context.Context, lat, lon float64) (Snapshot, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	return c.current(ctx, params, slog.Float64("lat", lat), slog.Float64("lon", lon))
}

func (c *Client) current(ctx context.Context, params url.Values, attrs ...slog.Attr) (Snapshot, error) {
	start := time.Now()

	var payload currentResponse
	status, err := c.get(ctx, c.cfg.BaseURL, params, &payload)
	if err != nil {
		logLookup(ctx, "lookup.current", err, start, attrs...)
		return Snapshot{}, err
	}
	if err := classifyStatus(status, payload.Cod); err != nil {
		logLookup(ctx, "lookup.current", err, start, append(attrs, slog.Int("http_code", status))...)
		return Snapshot{}, err
	}

	snap := Snapshot{
		City:      payload.Name,
		Temp:      payload.Main.Temp,
		FeelsLike: payload.Main.FeelsLike,
		WindSpeed: payload.Wind.Speed,
		Humidity:  payload.Main.Humidity,
		Pressure:  payload.Main.Pressure,
		Coords:    Coordinates{Lat: payload.Coord.Lat, Lon: payload.Coord.Lon},
	}
	if len(payload.Weather) > 0 {
		snap.Description = payload.Weather[0].Description
	}
	logLookup(ctx, "lookup.current", nil, start, attrs...)
	return snap, nil
}

// Hourly requests the next 48 hourly forecast points for a geographic point.
// Timestamps in the returned series are shifted to the location's local time.
func (c *Client) Hourly(ctx context.Context, lat, lon float64) (HourlySeries, error) {
	start := time.Now()
	attrs := []slog.Attr{slog.Float64("lat", lat), slog.Float64("lon", lon)}

	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("exclude", "current,minutely,daily,alerts")

	var payload oneCallResponse
	status, err := c.get(ctx, c.cfg.OneCallURL, params, &payload)
	if err != nil {
		logLookup(ctx, "lookup.hourly", err, start, attrs...)
		return HourlySeries{}, err
	}
	if status != http.StatusOK {
		err := classifyStatus(status, "")
		logLookup(ctx, "lookup.hourly", err, start, append(attrs, slog.Int("http_code", status))...)
		return HourlySeries{}, err
	}
	if len(payload.Hourly) == 0 {
		err := fmt.Errorf("%w: empty hourly series", ErrProvider)
		logLookup(ctx, "lookup.hourly", err, start, attrs...)
		return HourlySeries{}, err
	}

	offset := time.Duration(payload.TimezoneOffset) * time.Second
	series := HourlySeries{Offset: offset}
	for _, h := range payload.Hourly {
		if len(series.Points) == hourlyHorizon {
			break
		}
		series.Points = append(series.Points, HourlyPoint{
			Time: time.Unix(h.Dt, 0).UTC().Add(offset),
			Temp: h.Temp,
		})
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Time.Before(series.Points[j].Time)
	})

	logLookup(ctx, "lookup.hourly", nil, start,
		append(attrs,
			slog.Int("points", len(series.Points)),
			slog.Int64("offset_s", payload.TimezoneOffset),
		)...,
	)
	return series, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (int, error) {
	params.Set("appid", c.cfg.APIKey)
	params.Set("units", "metric")
	params.Set("lang", c.cfg.Lang)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// Failure payloads carry no structured fields this client depends on,
		// so a decode error on a non-2xx response classifies by status alone.
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("%w: decode: %v", ErrProvider, err)
	}
	return resp.StatusCode, nil
}

// classifyStatus folds the HTTP status and the payload's top-level cod field
// into a typed failure. Not-found must stay distinguishable from provider
// errors even though both surface identically to the user.
func classifyStatus(httpStatus int, cod json.Number) error {
	code := httpStatus
	if n, err := cod.Int64(); err == nil && n != 0 {
		code = int(n)
	}
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrProvider, code)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func logLookup(ctx context.Context, event string, err error, start time.Time, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Duration("duration", logger.Took(start)))
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", ErrCode(err)),
		)
		logger.Warn(ctx, "weather", event, attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.Debug(ctx, "weather", event, attrs...)
}
