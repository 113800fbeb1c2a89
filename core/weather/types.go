package weather

import (
	"math"
	"time"
)

// mmHgPerHPa converts hectopascals to millimeters of mercury.
const mmHgPerHPa = 0.75006156

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Snapshot is a normalized current-weather reading.
type Snapshot struct {
	City        string
	Temp        float64
	FeelsLike   float64
	Description string
	WindSpeed   float64
	Humidity    int
	// Pressure is the raw provider value in hectopascals.
	Pressure float64
	Coords   Coordinates
}

// PressureMmHg returns the pressure converted to millimeters of mercury,
// rounded to the nearest integer.
func (s Snapshot) PressureMmHg() int {
	return MmHg(s.Pressure)
}

// MmHg converts hectopascals to whole millimeters of mercury.
func MmHg(hpa float64) int {
	return int(math.Round(hpa * mmHgPerHPa))
}

// RoundTemp rounds a temperature to the nearest whole degree for display.
func RoundTemp(t float64) int {
	return int(math.Round(t))
}

// HourlyPoint is a single forecast sample with its provider-local timestamp.
type HourlyPoint struct {
	Time time.Time
	Temp float64
}

// HourlySeries is a chronologically ordered short-term forecast.
// Timestamps are already shifted by Offset so Time.Format renders local time.
type HourlySeries struct {
	Points []HourlyPoint
	// Offset is the UTC offset of the forecast location.
	Offset time.Duration
}
