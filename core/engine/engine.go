// Package engine owns the per-user conversation state machine. Given an
// inbound event and the session's committed state it decides the next state,
// performs the requested lookups and rendering, and returns the reply the
// transport should deliver. All per-turn failures become a reply plus a state
// transition; none escape to the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weathergram/core/logger"
	"weathergram/core/session"
	"weathergram/core/weather"

	"log/slog"
)

const defaultTurnTimeout = 15 * time.Second

// WeatherService is the lookup surface the engine needs from the provider client.
type WeatherService interface {
	CurrentByCity(ctx context.Context, city string) (weather.Snapshot, error)
	CurrentByCoords(ctx context.Context, lat, lon float64) (weather.Snapshot, error)
	Hourly(ctx context.Context, lat, lon float64) (weather.HourlySeries, error)
}

// RenderFunc turns an hourly series into encoded image bytes.
type RenderFunc func(weather.HourlySeries) ([]byte, error)

// Engine processes one turn at a time per session key.
type Engine struct {
	sessions session.Store
	weather  WeatherService
	render   RenderFunc
	timeout  time.Duration
}

// New constructs an Engine. A zero timeout selects the default bound applied
// to each turn's lookups and rendering.
func New(sessions session.Store, svc WeatherService, render RenderFunc, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	return &Engine{
		sessions: sessions,
		weather:  svc,
		render:   render,
		timeout:  timeout,
	}
}

// Handle processes one inbound event for a session key and returns the reply
// to deliver. Turns for the same key are serialized in arrival order by the
// session store; turns for different keys run in parallel.
func (e *Engine) Handle(ctx context.Context, key int64, ev Event) (Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reply Reply
	err := e.sessions.Update(key, func(s *session.Session) error {
		p := decide(s.State, s.Selection, ev)

		logger.Debug(ctx, "engine", "turn.decided",
			slog.Int64("user_id", key),
			slog.String("state", string(s.State)),
			slog.String("payload", ev.Kind.String()),
			slog.String("handler", p.action.String()),
		)

		reply = e.execute(ctx, s, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: session update: %w", err)
	}
	return reply, nil
}

func (e *Engine) execute(ctx context.Context, s *session.Session, p plan) Reply {
	switch p.action {
	case actGreet:
		return TextReply{Text: greetingText, RemoveKeyboard: true}

	case actPromptLocation:
		s.State = p.state
		s.Selection = p.selection
		return LocationPromptReply{Text: promptText, ButtonLabel: locationButtonLabel}

	case actAskOptions:
		s.State = p.state
		s.Selection = p.selection
		return OptionsReply{Text: chooseOptionText, Choices: optionChoices()}

	case actReprompt:
		return TextReply{Text: repromptText}

	case actCurrentWeather:
		return e.currentWeather(ctx, s)

	case actForecast:
		return e.forecast(ctx, s)

	default:
		return TextReply{Text: fallbackText}
	}
}

func (e *Engine) currentWeather(ctx context.Context, s *session.Session) Reply {
	turnCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	snap, err := e.lookupCurrent(turnCtx, s.Selection)
	if err != nil {
		return e.failTurn(ctx, s, "current", err)
	}

	s.State = session.StateIdle
	return TextReply{Text: formatSnapshot(snap), HTML: true, RemoveKeyboard: true}
}

func (e *Engine) forecast(ctx context.Context, s *session.Session) Reply {
	turnCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	lat, lon := s.Selection.Lat, s.Selection.Lon
	if s.Selection.Kind != session.SelectionCoords {
		// A city selection resolves to coordinates through a current-weather
		// lookup first, with the same failure handling.
		snap, err := e.lookupCurrent(turnCtx, s.Selection)
		if err != nil {
			return e.failTurn(ctx, s, "forecast", err)
		}
		lat, lon = snap.Coords.Lat, snap.Coords.Lon
	}

	series, err := e.weather.Hourly(turnCtx, lat, lon)
	if err != nil {
		return e.failTurn(ctx, s, "forecast", err)
	}

	png, err := e.render(series)
	if err != nil {
		logger.Error(ctx, "engine", "turn.render_failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", "RENDER_ERROR"),
			slog.Int("points", len(series.Points)),
		)
		s.State = session.StateAwaitingLocation
		s.Selection = session.Selection{}
		return TextReply{Text: errorText}
	}

	s.State = session.StateIdle
	return ImageReply{PNG: png}
}

func (e *Engine) lookupCurrent(ctx context.Context, sel session.Selection) (weather.Snapshot, error) {
	switch sel.Kind {
	case session.SelectionCoords:
		return e.weather.CurrentByCoords(ctx, sel.Lat, sel.Lon)
	case session.SelectionCity:
		return e.weather.CurrentByCity(ctx, sel.City)
	default:
		return weather.Snapshot{}, fmt.Errorf("%w: no location selected", weather.ErrNotFound)
	}
}

// failTurn converts a lookup failure into the retry reply and reverts the
// session to the location prompt. Not-found, provider and timeout failures
// look identical to the user but keep distinct codes in logs.
func (e *Engine) failTurn(ctx context.Context, s *session.Session, op string, err error) Reply {
	level := slog.LevelError
	if errors.Is(err, weather.ErrNotFound) {
		level = slog.LevelWarn
	}
	logger.Event(ctx, "engine", level, "turn.lookup_failed",
		slog.String("status", "fail"),
		slog.String("handler", op),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.String("err_code", weather.ErrCode(err)),
	)

	s.State = session.StateAwaitingLocation
	s.Selection = session.Selection{}
	return TextReply{Text: errorText}
}
