// Package spatial provides an R-Tree index over carpark locations for
// viewport and nearest-neighbour queries.
package spatial

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialItem wraps a carpark for R-Tree indexing
type spatialItem struct {
	carpark models.Carpark
	rect    *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// Index is a read-only R-Tree over one set of carparks. It is built once
// per snapshot and is safe for concurrent queries.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Build bulk-loads carparks into a new index
func Build(carparks []models.Carpark) *Index {
	items := make([]rtreego.Spatial, 0, len(carparks))
	for _, cp := range carparks {
		p := rtreego.Point{cp.Lat, cp.Lng}
		items = append(items, &spatialItem{carpark: cp, rect: p.ToRect(tolerance)})
	}

	return &Index{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		size: len(items),
	}
}

// Size returns the number of indexed carparks
func (idx *Index) Size() int {
	return idx.size
}

// SearchBox returns the carparks inside box
func (idx *Index) SearchBox(box geo.BoundingBox) ([]models.Carpark, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	// zero-size boxes are rejected by rtreego, so widen by the point tolerance
	bounds, err := rtreego.NewRectFromPoints(
		rtreego.Point{box.SouthWest.Lat - tolerance, box.SouthWest.Lng - tolerance},
		rtreego.Point{box.NorthEast.Lat + tolerance, box.NorthEast.Lng + tolerance},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := idx.tree.SearchIntersect(bounds)

	carparks := make([]models.Carpark, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok {
			continue
		}
		if box.Contains(geo.Point{Lat: item.carpark.Lat, Lng: item.carpark.Lng}) {
			carparks = append(carparks, item.carpark)
		}
	}

	return carparks, nil
}

// Nearest returns up to k carparks closest to p, nearest first
func (idx *Index) Nearest(p geo.Point, k int) []models.RankedCarpark {
	if k <= 0 || idx.size == 0 {
		return []models.RankedCarpark{}
	}

	results := idx.tree.NearestNeighbors(k, rtreego.Point{p.Lat, p.Lng})

	ranked := make([]models.RankedCarpark, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok {
			continue
		}
		dist := p.DistanceTo(geo.Point{Lat: item.carpark.Lat, Lng: item.carpark.Lng})
		ranked = append(ranked, models.RankedCarpark{Carpark: item.carpark, DistanceKm: &dist})
	}

	// the tree ranks by planar degrees; re-rank by great-circle distance
	slices.SortStableFunc(ranked, func(a, b models.RankedCarpark) int {
		return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
	})

	return ranked
}
