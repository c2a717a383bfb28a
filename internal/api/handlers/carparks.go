package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/randytsao24/parkedup/internal/carpark"
	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
)

const (
	defaultNearestLimit = 5
	maxNearestLimit     = 50
)

// searchQuery holds the parsed /carparks query parameters
type searchQuery struct {
	MaxDistanceKm *float64 `query:"max_distance_km" validate:"omitempty,gt=0,lte=100"`
	MinLots       *int     `query:"min_lots" validate:"omitempty,gte=0"`
	MinHeight     *float64 `query:"min_height" validate:"omitempty,gte=0,lte=10"`
	Query         string   `query:"q" validate:"max=100"`
	Limit         int      `query:"limit" validate:"gte=0,lte=1000"`
}

type CarparkHandler struct {
	carparks           CarparkProvider
	validate           *validator.Validate
	defaultMaxDistance *float64
}

// NewCarparkHandler creates the carpark handler. defaultMaxDistance, when set,
// bounds searches that give a reference point but no radius.
func NewCarparkHandler(carparks CarparkProvider, defaultMaxDistance *float64) *CarparkHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("query"); name != "" {
			return name
		}
		return fld.Name
	})

	return &CarparkHandler{
		carparks:           carparks,
		validate:           v,
		defaultMaxDistance: defaultMaxDistance,
	}
}

// Search filters and ranks carparks
func (h *CarparkHandler) Search(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.parseCriteria(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	results, err := h.carparks.Search(r.Context(), criteria)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(results),
		"reference": criteria.Reference,
		"carparks":  results,
	})
}

// Nearest returns the closest carparks, defaulting to central Singapore
func (h *CarparkHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	ref, err := parseReference(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if ref == nil {
		center := geo.SingaporeCenter
		ref = &center
	}

	limit := parseIntParam(r, "limit", defaultNearestLimit, 1, maxNearestLimit)
	results, err := h.carparks.Closest(r.Context(), *ref, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(results),
		"reference": ref,
		"carparks":  results,
	})
}

// Within returns the carparks inside a map viewport
func (h *CarparkHandler) Within(w http.ResponseWriter, r *http.Request) {
	var box geo.BoundingBox
	var err error

	fields := []struct {
		name string
		dst  *float64
	}{
		{"south", &box.SouthWest.Lat},
		{"west", &box.SouthWest.Lng},
		{"north", &box.NorthEast.Lat},
		{"east", &box.NorthEast.Lng},
	}
	for _, f := range fields {
		if *f.dst, err = parseRequiredFloat(r, f.name); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}
	if err := box.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	results, err := h.carparks.Within(r.Context(), box)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(results),
		"bounds":   box,
		"carparks": results,
	})
}

// Get returns one carpark by number
func (h *CarparkHandler) Get(w http.ResponseWriter, r *http.Request) {
	cp, err := h.carparks.Get(r.Context(), strings.ToUpper(r.PathValue("number")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"carpark": cp,
	})
}

// Directions returns a driving-directions link to a carpark, from lat/lng when given
func (h *CarparkHandler) Directions(w http.ResponseWriter, r *http.Request) {
	origin, err := parseReference(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cp, err := h.carparks.Get(r.Context(), strings.ToUpper(r.PathValue("number")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"carpark": cp,
		"origin":  origin,
		"url":     carpark.DirectionsURL(origin, cp),
	})
}

// Types lists the carpark categories accepted by the type filter
func (h *CarparkHandler) Types(w http.ResponseWriter, r *http.Request) {
	types := models.AllCarparkTypes()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(types),
		"types":   types,
	})
}

func (h *CarparkHandler) parseCriteria(r *http.Request) (carpark.Criteria, error) {
	var q searchQuery
	var err error

	if q.MaxDistanceKm, err = parseOptionalFloat(r, "max_distance_km"); err != nil {
		return carpark.Criteria{}, err
	}
	if q.MinLots, err = parseOptionalInt(r, "min_lots"); err != nil {
		return carpark.Criteria{}, err
	}
	if q.MinHeight, err = parseOptionalFloat(r, "min_height"); err != nil {
		return carpark.Criteria{}, err
	}
	if limit, err := parseOptionalInt(r, "limit"); err != nil {
		return carpark.Criteria{}, err
	} else if limit != nil {
		q.Limit = *limit
	}
	q.Query = strings.TrimSpace(r.URL.Query().Get("q"))

	if err := h.validate.Struct(q); err != nil {
		return carpark.Criteria{}, validationMessage(err)
	}

	ref, err := parseReference(r)
	if err != nil {
		return carpark.Criteria{}, err
	}

	types, err := parseTypes(r.URL.Query()["type"])
	if err != nil {
		return carpark.Criteria{}, err
	}

	maxDistance := q.MaxDistanceKm
	if maxDistance == nil && ref != nil {
		maxDistance = h.defaultMaxDistance
	}

	return carpark.Criteria{
		MinAvailableLots: q.MinLots,
		MinGantryHeight:  q.MinHeight,
		Types:            types,
		MaxDistanceKm:    maxDistance,
		AddressQuery:     q.Query,
		Reference:        ref,
		Limit:            q.Limit,
	}, nil
}

// parseTypes accepts repeated or comma-separated type values
func parseTypes(values []string) ([]models.CarparkType, error) {
	var types []models.CarparkType
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, ok := models.ParseCarparkType(part)
			if !ok {
				return nil, fmt.Errorf("unknown carpark type %q", part)
			}
			types = append(types, t)
		}
	}
	return types, nil
}

func validationMessage(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return errors.New(strings.Join(problems, "; "))
}
