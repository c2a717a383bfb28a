package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/randytsao24/parkedup/internal/geo"
)

// parseIntParam reads an integer query parameter, clamped to [min, max].
// Missing or unparseable values give defaultVal.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}

	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func parseOptionalFloat(r *http.Request, name string) (*float64, error) {
	str := strings.TrimSpace(r.URL.Query().Get(name))
	if str == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter", name)
	}
	return &val, nil
}

func parseOptionalInt(r *http.Request, name string) (*int, error) {
	str := strings.TrimSpace(r.URL.Query().Get(name))
	if str == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter", name)
	}
	return &val, nil
}

func parseRequiredFloat(r *http.Request, name string) (float64, error) {
	val, err := parseOptionalFloat(r, name)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, fmt.Errorf("%s query parameter is required", name)
	}
	return *val, nil
}

// parseReference reads the optional lat/lng pair. Both or neither must be given.
func parseReference(r *http.Request) (*geo.Point, error) {
	lat, err := parseOptionalFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	lng, err := parseOptionalFloat(r, "lng")
	if err != nil {
		return nil, err
	}

	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil || lng == nil:
		return nil, fmt.Errorf("lat and lng must be given together")
	}

	p := geo.Point{Lat: *lat, Lng: *lng}
	if !p.Valid() {
		return nil, fmt.Errorf("lat/lng out of range")
	}
	return &p, nil
}
