package engine

import (
	"fmt"
	"html"
	"strconv"

	"weathergram/core/weather"
)

// Reply is what the engine asks the transport to deliver. It is constructed
// fresh per turn and consumed once.
type Reply interface {
	reply()
}

// TextReply is a plain or HTML-formatted text message.
type TextReply struct {
	Text string
	HTML bool
	// RemoveKeyboard hides any custom reply keyboard alongside the message.
	RemoveKeyboard bool
}

// LocationPromptReply is a text message with a "share current location"
// affordance next to the free-text field.
type LocationPromptReply struct {
	Text        string
	ButtonLabel string
}

// Choice is one inline option: a human label and a stable callback key.
type Choice struct {
	Label string
	Key   string
}

// OptionsReply is a text message with option buttons.
type OptionsReply struct {
	Text    string
	Choices []Choice
}

// ImageReply is a rendered chart delivered as a photo.
type ImageReply struct {
	PNG []byte
}

func (TextReply) reply()           {}
func (LocationPromptReply) reply() {}
func (OptionsReply) reply()        {}
func (ImageReply) reply()          {}

// User-facing texts. The bot speaks a single fixed locale.
const (
	greetingText        = "Hi! Send /weather to get a forecast."
	promptText          = "Enter a city:"
	repromptText        = "Please enter a city:"
	locationButtonLabel = "Send my location"
	chooseOptionText    = "Choose an option:"
	optionCurrentLabel  = "Current weather"
	optionForecastLabel = "48-hour forecast"
	errorText           = "Something went wrong! Check your input or try again later."
	fallbackText        = "Unknown command. Send /weather to get a forecast."
)

func optionChoices() []Choice {
	return []Choice{
		{Label: optionCurrentLabel, Key: OptionCurrent},
		{Label: optionForecastLabel, Key: OptionForecast},
	}
}

// formatSnapshot renders the current-weather summary as Telegram HTML.
// Temperatures are rounded to whole degrees, pressure converted to mmHg.
func formatSnapshot(s weather.Snapshot) string {
	return fmt.Sprintf(
		"<u>Weather in <b>%s</b></u>:\n"+
			"%d°C, %s\n"+
			"Feels like %d°C\n"+
			"Wind speed %s m/s\n"+
			"Humidity %d%%\n"+
			"Pressure %d mm",
		html.EscapeString(s.City),
		weather.RoundTemp(s.Temp),
		html.EscapeString(s.Description),
		weather.RoundTemp(s.FeelsLike),
		strconv.FormatFloat(s.WindSpeed, 'f', -1, 64),
		s.Humidity,
		s.PressureMmHg(),
	)
}
