// Package carpark merges the facility catalogue with live availability and
// filters and ranks the result around a reference point.
package carpark

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
)

var (
	// ErrInvalidAvailability is returned when the availability feed reports a negative lot count
	ErrInvalidAvailability = errors.New("invalid availability count")
)

// MergeStats counts why catalogue rows were left out of a merge
type MergeStats struct {
	Facilities     int `json:"facilities"`
	Merged         int `json:"merged"`
	BlankNumbers   int `json:"blank_numbers"`
	Duplicates     int `json:"duplicates"`
	BadCoordinates int `json:"bad_coordinates"`
}

// Skipped returns the number of rows that did not make it into the merge
func (m MergeStats) Skipped() int {
	return m.BlankNumbers + m.Duplicates + m.BadCoordinates
}

// Merge joins catalogue rows with availability counts. Rows whose coordinates
// do not parse are dropped; a missing availability entry counts as zero lots.
// It fails only on structurally invalid input, never on individual bad rows.
func Merge(facilities []models.Facility, availability models.Availability) ([]models.Carpark, error) {
	carparks, _, err := MergeWithStats(facilities, availability)
	return carparks, err
}

// MergeWithStats is Merge, also reporting how many rows were skipped and why
func MergeWithStats(facilities []models.Facility, availability models.Availability) ([]models.Carpark, MergeStats, error) {
	stats := MergeStats{Facilities: len(facilities)}

	for number, lots := range availability {
		if lots < 0 {
			return nil, stats, fmt.Errorf("carpark %s reports %d lots: %w", number, lots, ErrInvalidAvailability)
		}
	}

	carparks := make([]models.Carpark, 0, len(facilities))
	seen := make(map[string]bool, len(facilities))

	for _, f := range facilities {
		number := strings.TrimSpace(f.Number)
		switch {
		case number == "":
			stats.BlankNumbers++
			continue
		case seen[number]:
			stats.Duplicates++
			continue
		}

		p, ok := project(f.X, f.Y)
		if !ok {
			stats.BadCoordinates++
			continue
		}

		seen[number] = true
		carparks = append(carparks, models.Carpark{
			Number:        number,
			Address:       orNotAvailable(f.Address),
			Type:          carparkType(f.Type),
			GantryHeight:  parseGantryHeight(f.GantryHeight),
			AvailableLots: availability[number],
			Lat:           p.Lat,
			Lng:           p.Lng,
		})
	}

	stats.Merged = len(carparks)
	return carparks, stats, nil
}

func project(xs, ys string) (geo.Point, bool) {
	x, ok := parseCoordinate(xs)
	if !ok {
		return geo.Point{}, false
	}
	y, ok := parseCoordinate(ys)
	if !ok {
		return geo.Point{}, false
	}
	p := geo.Project(x, y)
	return p, p.Valid()
}

func parseCoordinate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseGantryHeight(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func carparkType(s string) models.CarparkType {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.NotAvailable
	}
	t, _ := models.ParseCarparkType(s)
	return t
}

func orNotAvailable(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.NotAvailable
	}
	return s
}
