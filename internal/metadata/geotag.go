package metadata

import (
	"math"

	"github.com/kozaktomas/photo-library/internal/database"
)

// earthRadius is the mean Earth radius in metres
const earthRadius = 6371000.0

// ToDegrees converts a degree/minute/second triple to decimal degrees
func ToDegrees(dms [3]float64) float64 {
	return dms[0] + dms[1]/60 + dms[2]/3600
}

// Coordinates converts the raw GPS tags to signed decimal degrees.
// Latitude is negative unless the reference is "N", longitude unless "E".
func (g GPS) Coordinates() (lat, lng float64) {
	lat = ToDegrees(g.Latitude)
	if !hasPrefix(g.LatitudeRef, 'N') {
		lat = -lat
	}
	lng = ToDegrees(g.Longitude)
	if !hasPrefix(g.LongitudeRef, 'E') {
		lng = -lng
	}
	return lat, lng
}

func hasPrefix(ref string, c byte) bool {
	return len(ref) > 0 && ref[0] == c
}

// NewGeoTag builds a GeoTag from the attributes, nil when any of the four
// GPS tags is missing
func NewGeoTag(attrs *Attributes) *database.GeoTag {
	gps, ok := attrs.GPS()
	if !ok {
		return nil
	}
	lat, lng := gps.Coordinates()
	return &database.GeoTag{Lat: lat, Lng: lng}
}

// Haversine returns the great-circle distance in metres between two points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLng := (lng2 - lng1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

// AssignArea links tag to the nearest area whose radius contains it.
// It reports whether an area was found.
func AssignArea(tag *database.GeoTag, areas []database.GeoTagArea) bool {
	best := -1
	bestDist := math.Inf(1)
	for i, area := range areas {
		d := Haversine(tag.Lat, tag.Lng, area.Lat, area.Lng)
		if d <= area.Radius && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return false
	}
	tag.AreaID = areas[best].ID
	return true
}
