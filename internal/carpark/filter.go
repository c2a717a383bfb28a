package carpark

import (
	"slices"
	"strings"

	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
)

// Criteria selects and ranks carparks. A nil threshold disables its predicate,
// an empty Types slice admits every type, and a nil Reference disables the
// distance predicate and leaves distances unset.
type Criteria struct {
	MinAvailableLots *int
	MinGantryHeight  *float64
	Types            []models.CarparkType
	MaxDistanceKm    *float64
	AddressQuery     string
	Reference        *geo.Point

	// Limit caps the number of results after sorting; zero means no cap
	Limit int
}

// DefaultCriteria returns criteria that admit every carpark
func DefaultCriteria() Criteria {
	return Criteria{Types: models.AllCarparkTypes()}
}

// Apply returns the records matching every active predicate in c, annotated
// with their distance from c.Reference and sorted nearest first. Ties keep
// input order. records is not modified.
func Apply(records []models.Carpark, c Criteria) []models.RankedCarpark {
	var types map[models.CarparkType]bool
	if len(c.Types) > 0 {
		types = make(map[models.CarparkType]bool, len(c.Types))
		for _, t := range c.Types {
			types[t] = true
		}
	}
	query := strings.ToLower(strings.TrimSpace(c.AddressQuery))

	results := make([]models.RankedCarpark, 0, len(records))
	for _, cp := range records {
		if c.MinAvailableLots != nil && cp.AvailableLots < *c.MinAvailableLots {
			continue
		}
		if c.MinGantryHeight != nil && cp.GantryHeight < *c.MinGantryHeight {
			continue
		}
		if types != nil && !types[cp.Type] {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(cp.Address), query) {
			continue
		}

		ranked := models.RankedCarpark{Carpark: cp}
		if c.Reference != nil {
			dist := c.Reference.DistanceTo(geo.Point{Lat: cp.Lat, Lng: cp.Lng})
			if c.MaxDistanceKm != nil && dist > *c.MaxDistanceKm {
				continue
			}
			ranked.DistanceKm = &dist
		}
		results = append(results, ranked)
	}

	// Unset distances rank as zero. Within one call they are either all set
	// or all unset, so without a reference the input order is kept.
	slices.SortStableFunc(results, func(a, b models.RankedCarpark) int {
		da, db := distanceOrZero(a), distanceOrZero(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})

	if c.Limit > 0 && c.Limit < len(results) {
		results = results[:c.Limit]
	}

	return results
}

func distanceOrZero(r models.RankedCarpark) float64 {
	if r.DistanceKm == nil {
		return 0
	}
	return *r.DistanceKm
}
