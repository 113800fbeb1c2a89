package engine

import (
	"strings"

	"weathergram/core/session"
)

// action names the effect a turn should perform after the decision step.
type action int

const (
	actFallback action = iota
	actGreet
	actPromptLocation
	actAskOptions
	actReprompt
	actCurrentWeather
	actForecast
)

func (a action) String() string {
	switch a {
	case actGreet:
		return "greet"
	case actPromptLocation:
		return "prompt_location"
	case actAskOptions:
		return "ask_options"
	case actReprompt:
		return "reprompt"
	case actCurrentWeather:
		return "current_weather"
	case actForecast:
		return "forecast"
	default:
		return "fallback"
	}
}

// plan is the outcome of the pure decision step: the action to run and the
// state/selection to commit for transitions that need no side effects.
// Lookup-driven transitions (current weather, forecast) settle their final
// state during effect execution.
type plan struct {
	action    action
	state     session.State
	selection session.Selection
}

// keep returns a plan that leaves state and selection untouched.
func keep(a action, st session.State, sel session.Selection) plan {
	return plan{action: a, state: st, selection: sel}
}

// decide is the pure transition function: given the committed state and
// selection plus an inbound event, it picks the next step. No I/O here.
func decide(st session.State, sel session.Selection, ev Event) plan {
	switch ev.Kind {
	case EventCommand:
		switch ev.Command {
		case CommandWeather:
			// A new weather request restarts the flow from any state and
			// resets the previous selection.
			return plan{action: actPromptLocation, state: session.StateAwaitingLocation}
		case CommandStart, CommandHelp:
			return keep(actGreet, st, sel)
		default:
			return keep(actFallback, st, sel)
		}

	case EventText:
		if st == session.StateAwaitingLocation {
			text := strings.TrimSpace(ev.Text)
			if text == "" {
				return keep(actReprompt, st, sel)
			}
			return plan{
				action:    actAskOptions,
				state:     session.StateAwaitingOption,
				selection: session.CitySelection(text),
			}
		}
		return keep(actFallback, st, sel)

	case EventLocation:
		if st == session.StateAwaitingLocation {
			return plan{
				action:    actAskOptions,
				state:     session.StateAwaitingOption,
				selection: session.CoordsSelection(ev.Lat, ev.Lon),
			}
		}
		return keep(actFallback, st, sel)

	case EventOption:
		if st == session.StateAwaitingOption {
			switch ev.Option {
			case OptionCurrent:
				return keep(actCurrentWeather, st, sel)
			case OptionForecast:
				return keep(actForecast, st, sel)
			}
		}
		if st == session.StateAwaitingLocation {
			return keep(actReprompt, st, sel)
		}
		return keep(actFallback, st, sel)

	default:
		if st == session.StateAwaitingLocation {
			// Waiting for a city or location; anything else asks again.
			return keep(actReprompt, st, sel)
		}
		return keep(actFallback, st, sel)
	}
}
