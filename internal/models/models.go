// Package models defines shared data types
package models

import "strings"

// NotAvailable is used for missing address and type values
const NotAvailable = "N/A"

// CarparkType is the category of a carpark facility
type CarparkType string

const (
	Basement             CarparkType = "BASEMENT CAR PARK"
	MultiStorey          CarparkType = "MULTI-STOREY CAR PARK"
	Surface              CarparkType = "SURFACE CAR PARK"
	Mechanised           CarparkType = "MECHANISED CAR PARK"
	MechanisedAndSurface CarparkType = "MECHANISED AND SURFACE CAR PARK"
)

// AllCarparkTypes returns the five known facility categories
func AllCarparkTypes() []CarparkType {
	return []CarparkType{Basement, MultiStorey, Surface, Mechanised, MechanisedAndSurface}
}

// ParseCarparkType matches s against the known categories, ignoring case and
// surrounding whitespace. The hyphenated MECHANISED-AND-SURFACE spelling is accepted.
func ParseCarparkType(s string) (CarparkType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "MECHANISED-AND-SURFACE", "MECHANISED AND SURFACE")

	for _, t := range AllCarparkTypes() {
		if normalized == string(t) {
			return t, true
		}
		// allow the short form, e.g. "surface"
		if normalized+" CAR PARK" == string(t) {
			return t, true
		}
	}
	return CarparkType(s), false
}

// Valid reports whether t is one of the known categories
func (t CarparkType) Valid() bool {
	for _, known := range AllCarparkTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Facility is a row of the static carpark catalogue. Numeric fields are kept
// as raw strings; parsing and defaulting happen when merging.
type Facility struct {
	Number       string `json:"car_park_no"`
	Address      string `json:"address"`
	Type         string `json:"car_park_type"`
	GantryHeight string `json:"gantry_height"`
	X            string `json:"x_coord"`
	Y            string `json:"y_coord"`
}

// Availability maps carpark number to currently available lots
type Availability map[string]int

// Carpark is a catalogue facility joined with its live availability
type Carpark struct {
	Number        string      `json:"carpark_number"`
	Address       string      `json:"address"`
	Type          CarparkType `json:"carpark_type"`
	GantryHeight  float64     `json:"gantry_height"`
	AvailableLots int         `json:"available_lots"`
	Lat           float64     `json:"lat"`
	Lng           float64     `json:"lng"`
}

// RankedCarpark is a Carpark with distance from a reference point.
// DistanceKm is nil when no reference point was given.
type RankedCarpark struct {
	Carpark
	DistanceKm *float64 `json:"distance_km"`
}
