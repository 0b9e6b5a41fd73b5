package geo_test

import (
	"testing"

	"pantry/internal/geo"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	sf := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	oakland := geo.Point{Latitude: 37.8044, Longitude: -122.2712}

	d := geo.Distance(sf, oakland)
	assert.InDelta(t, 13400, d, 300)
	assert.Equal(t, 0.0, geo.Distance(sf, sf))
}

func TestWithin(t *testing.T) {
	center := geo.Point{Latitude: 37.5665, Longitude: 126.9780}
	near := geo.Point{Latitude: 37.5700, Longitude: 126.9800}
	far := geo.Point{Latitude: 37.4563, Longitude: 126.7052}

	assert.True(t, geo.Within(center, near, 5000))
	assert.False(t, geo.Within(center, far, 5000))
}

func TestAngularRadius(t *testing.T) {
	assert.InDelta(t, 5000/6378137.0, geo.AngularRadius(5000), 1e-12)
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := geo.Point{Latitude: 37.5665, Longitude: 126.9780}
	box := geo.BoundingBox(center, 5000)

	assert.Less(t, box.MinLatitude, center.Latitude)
	assert.Greater(t, box.MaxLatitude, center.Latitude)
	assert.Less(t, box.MinLongitude, center.Longitude)
	assert.Greater(t, box.MaxLongitude, center.Longitude)

	// a point 4.9km due east must be inside the box
	east := geo.Point{Latitude: center.Latitude, Longitude: center.Longitude + 0.0555}
	assert.True(t, geo.Within(center, east, 5000))
	assert.GreaterOrEqual(t, box.MaxLongitude, east.Longitude)
}

func TestBoundingBox_Poles(t *testing.T) {
	box := geo.BoundingBox(geo.Point{Latitude: 89.99, Longitude: 10}, 5000)
	assert.Equal(t, 90.0, box.MaxLatitude)
	assert.Equal(t, -180.0, box.MinLongitude)
	assert.Equal(t, 180.0, box.MaxLongitude)
}

func TestPointValid(t *testing.T) {
	assert.True(t, geo.Point{Latitude: 0, Longitude: 0}.Valid())
	assert.False(t, geo.Point{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, geo.Point{Latitude: 0, Longitude: -181}.Valid())
}
