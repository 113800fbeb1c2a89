// Package bootstrap wires the application services in a fixed order:
// logger first, then the weather provider client, the session store and
// the conversation engine on top of them.
package bootstrap

import (
	"fmt"
	"time"

	coreconfig "weathergram/core/config"
	"weathergram/core/engine"
	"weathergram/core/logger"
	"weathergram/core/render"
	"weathergram/core/session"
	"weathergram/core/weather"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	// Weather overrides the provider client; nil builds one from config.
	Weather engine.WeatherService
	// Sessions overrides the session store; nil builds the in-memory one.
	Sessions session.Store
	// Render overrides the forecast renderer; nil uses the chart renderer.
	Render engine.RenderFunc
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Weather  engine.WeatherService
	Sessions session.Store
	Engine   *engine.Engine
}

// Run initializes the logger and assembles the conversation engine.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	svc := opts.Weather
	if svc == nil {
		wx := opts.Config.Weather
		svc = weather.New(weather.Config{
			APIKey:     wx.APIKey,
			BaseURL:    wx.BaseURL,
			OneCallURL: wx.OneCallURL,
			Lang:       wx.Lang,
			Timeout:    time.Duration(wx.TimeoutSeconds) * time.Second,
		})
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	renderFn := opts.Render
	if renderFn == nil {
		renderFn = render.Forecast
	}

	eng := engine.New(sessions, svc, renderFn, 0)

	return &Result{
		Weather:  svc,
		Sessions: sessions,
		Engine:   eng,
	}, nil
}
