package domain

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lon rectangle that contains every point within radiusKm of the origin.
// Longitudes stay in [-180, 180]; when the rectangle crosses the antimeridian minLon is greater
// than maxLon and the longitude range wraps through 180. A rectangle touching a pole spans
// every longitude.
func BoundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	minLat, maxLat = lat-dLat, lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return math.Max(-90, minLat), math.Min(90, maxLat), -180, 180
	}

	dLon := dLat / math.Cos(lat*math.Pi/180)
	if dLon >= 180 {
		return minLat, maxLat, -180, 180
	}
	minLon, maxLon = lon-dLon, lon+dLon
	if minLon < -180 {
		minLon += 360
	}
	if maxLon > 180 {
		maxLon -= 360
	}
	return minLat, maxLat, minLon, maxLon
}
