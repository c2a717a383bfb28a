package geo

import "math"

// SVY21 (EPSG:3414) transverse Mercator parameters on the WGS84 ellipsoid
const (
	svy21OriginLat     = 1.366666666666667
	svy21OriginLng     = 103.833333333333
	svy21ScaleFactor   = 1.0
	svy21FalseEasting  = 28001.642
	svy21FalseNorthing = 38744.572

	wgs84SemiMajor  = 6378137.0
	wgs84Flattening = 1 / 298.257223563
)

// ellipsoid constants derived once from the WGS84 definition
var (
	e2  = 2*wgs84Flattening - wgs84Flattening*wgs84Flattening
	e4  = e2 * e2
	e6  = e4 * e2
	ep2 = e2 / (1 - e2)

	m1 = 1 - e2/4 - 3*e4/64 - 5*e6/256
	m2 = 3*e2/8 + 3*e4/32 + 45*e6/1024
	m3 = 15*e4/256 + 45*e6/1024
	m4 = 35 * e6 / 3072

	svy21OriginArc = meridianArc(degreesToRadians(svy21OriginLat))
)

// Project converts an SVY21 easting/northing in meters to a WGS84 point.
// NaN inputs produce a NaN point; callers validate their numbers first.
func Project(x, y float64) Point {
	lng0 := degreesToRadians(svy21OriginLng)

	arc := svy21OriginArc + (y-svy21FalseNorthing)/svy21ScaleFactor
	mu := arc / (wgs84SemiMajor * m1)

	sqrt1e2 := math.Sqrt(1 - e2)
	e1 := (1 - sqrt1e2) / (1 + sqrt1e2)

	// footpoint latitude
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	w := 1 - e2*sinPhi1*sinPhi1
	n1 := wgs84SemiMajor / math.Sqrt(w)
	r1 := wgs84SemiMajor * (1 - e2) / math.Pow(w, 1.5)
	d := (x - svy21FalseEasting) / (n1 * svy21ScaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	lat := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lng := lng0 + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	return Point{Lat: radiansToDegrees(lat), Lng: radiansToDegrees(lng)}
}

// Unproject converts a WGS84 point to an SVY21 easting/northing in meters
func Unproject(p Point) (x, y float64) {
	phi := degreesToRadians(p.Lat)
	lambda := degreesToRadians(p.Lng)
	lng0 := degreesToRadians(svy21OriginLng)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := wgs84SemiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lambda - lng0) * cosPhi
	arc := meridianArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x = svy21FalseEasting + svy21ScaleFactor*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)

	y = svy21FalseNorthing + svy21ScaleFactor*(arc-svy21OriginArc+n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))

	return x, y
}

// meridianArc is the distance along the meridian from the equator to latitude phi (radians)
func meridianArc(phi float64) float64 {
	return wgs84SemiMajor * (m1*phi -
		m2*math.Sin(2*phi) +
		m3*math.Sin(4*phi) -
		m4*math.Sin(6*phi))
}
