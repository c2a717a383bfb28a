// Package geo converts Singapore survey coordinates and measures distances
// between geographic points.
package geo

import (
	"fmt"
	"math"
)

// Point is a WGS84 latitude/longitude pair in decimal degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SingaporeCenter is used when no reference location is available
var SingaporeCenter = Point{Lat: 1.3521, Lng: 103.8198}

// Valid reports whether p is a finite coordinate inside the WGS84 range
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// BoundingBox is a lat/lng rectangle given by its south-west and north-east corners
type BoundingBox struct {
	SouthWest Point `json:"south_west"`
	NorthEast Point `json:"north_east"`
}

// Validate checks that the corners are ordered and in range
func (b BoundingBox) Validate() error {
	if !b.SouthWest.Valid() || !b.NorthEast.Valid() {
		return fmt.Errorf("bounding box corners out of range")
	}
	if b.SouthWest.Lat > b.NorthEast.Lat || b.SouthWest.Lng > b.NorthEast.Lng {
		return fmt.Errorf("bounding box south-west corner must be below and left of north-east corner")
	}
	return nil
}

// Contains reports whether p lies inside the box, edges included
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}
