package carpark

import (
	"net/url"
	"strconv"

	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
)

const directionsBaseURL = "https://www.google.com/maps/dir/"

// DirectionsURL builds a Google Maps driving directions link to cp. When
// origin is nil Maps starts from the device's own location.
func DirectionsURL(origin *geo.Point, cp models.Carpark) string {
	params := url.Values{}
	params.Set("api", "1")
	if origin != nil {
		params.Set("origin", formatLatLng(*origin))
	}
	params.Set("destination", formatLatLng(geo.Point{Lat: cp.Lat, Lng: cp.Lng}))
	params.Set("travelmode", "driving")

	return directionsBaseURL + "?" + params.Encode()
}

func formatLatLng(p geo.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}
