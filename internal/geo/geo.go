// Package geo holds the great-circle math used for radius queries.
package geo

import "math"

// EarthRadiusMeters is the sphere radius used to turn meters into radians.
const EarthRadiusMeters = 6378137.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether p lies inside the latitude/longitude ranges.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLatitude, MaxLatitude   float64
	MinLongitude, MaxLongitude float64
}

// AngularRadius converts a distance in meters to radians on the sphere.
func AngularRadius(meters float64) float64 {
	return meters / EarthRadiusMeters
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return centralAngle(a, b) * EarthRadiusMeters
}

// Within reports whether p lies within radiusMeters of center.
func Within(center, p Point, radiusMeters float64) bool {
	return centralAngle(center, p) <= AngularRadius(radiusMeters)
}

// BoundingBox returns a rectangle that contains every point within
// radiusMeters of center. It is a prefilter; callers still apply Within.
func BoundingBox(center Point, radiusMeters float64) Box {
	dLat := degrees(AngularRadius(radiusMeters))
	box := Box{
		MinLatitude:  math.Max(center.Latitude-dLat, -90),
		MaxLatitude:  math.Min(center.Latitude+dLat, 90),
		MinLongitude: -180,
		MaxLongitude: 180,
	}

	// near the poles, or when the box wraps the antimeridian, scan all longitudes
	cosLat := math.Cos(radians(center.Latitude))
	if box.MinLatitude <= -90 || box.MaxLatitude >= 90 || cosLat < 1e-9 {
		return box
	}
	dLng := dLat / cosLat
	if center.Longitude-dLng < -180 || center.Longitude+dLng > 180 {
		return box
	}
	box.MinLongitude = center.Longitude - dLng
	box.MaxLongitude = center.Longitude + dLng
	return box
}

func centralAngle(a, b Point) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLng := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
