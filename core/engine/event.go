package engine

// EventKind discriminates inbound conversation events.
type EventKind int

const (
	// EventCommand is a slash command such as /weather.
	EventCommand EventKind = iota
	// EventText is a free-text message.
	EventText
	// EventLocation is a shared geographic point.
	EventLocation
	// EventOption is an inline-keyboard choice identified by its key.
	EventOption
	// EventUnknown is any update the transport could not classify
	// (stickers, photos and other media).
	EventUnknown
)

// String returns a short name for logging.
func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventLocation:
		return "location"
	case EventOption:
		return "option"
	default:
		return "unknown"
	}
}

// Commands understood by the engine.
const (
	CommandStart   = "/start"
	CommandHelp    = "/help"
	CommandWeather = "/weather"
)

// Option keys offered after a location is selected. The values double as
// Telegram callback keys, so they stay stable.
const (
	OptionCurrent  = "weather_current"
	OptionForecast = "weather_forecast_hours"
)

// Event is one inbound conversation event delivered by the transport.
type Event struct {
	Kind    EventKind
	Command string
	Text    string
	Lat     float64
	Lon     float64
	Option  string
}

// CommandEvent builds a command event.
func CommandEvent(name string) Event {
	return Event{Kind: EventCommand, Command: name}
}

// TextEvent builds a free-text event.
func TextEvent(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// LocationEvent builds a coordinates event.
func LocationEvent(lat, lon float64) Event {
	return Event{Kind: EventLocation, Lat: lat, Lon: lon}
}

// OptionEvent builds an option-selected event.
func OptionEvent(key string) Event {
	return Event{Kind: EventOption, Option: key}
}

// UnknownEvent builds an event for unclassifiable input.
func UnknownEvent() Event {
	return Event{Kind: EventUnknown}
}
