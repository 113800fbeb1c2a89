// Package session tracks per-user conversation state between turns.
// It is the only shared mutable structure in the bot; access is serialized
// per session key so concurrent turns for one user never interleave.
package session

// State identifies a step of the weather conversation.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
	// StateAwaitingLocation means the bot asked for a city name or a shared location.
	StateAwaitingLocation State = "awaiting_location"
	// StateAwaitingOption means the bot offered the current/forecast choice.
	StateAwaitingOption State = "awaiting_option"
)

// SelectionKind tags the variant held by a Selection.
type SelectionKind int

const (
	// SelectionNone means no location has been chosen yet.
	SelectionNone SelectionKind = iota
	// SelectionCity holds a free-text city name.
	SelectionCity
	// SelectionCoords holds explicit coordinates.
	SelectionCoords
)

// Selection is the user's chosen location: a city name or coordinates,
// never both.
type Selection struct {
	Kind SelectionKind
	City string
	Lat  float64
	Lon  float64
}

// CitySelection builds a city-name selection.
func CitySelection(name string) Selection {
	return Selection{Kind: SelectionCity, City: name}
}

// CoordsSelection builds a coordinates selection.
func CoordsSelection(lat, lon float64) Selection {
	return Selection{Kind: SelectionCoords, Lat: lat, Lon: lon}
}

// IsSet reports whether any location has been selected.
func (s Selection) IsSet() bool {
	return s.Kind != SelectionNone
}

// Session stores conversation state and the location selection for a user.
type Session struct {
	State     State
	Selection Selection
}

// defaultSession is the implicit value for keys with no entry yet.
func defaultSession() Session {
	return Session{State: StateIdle}
}
