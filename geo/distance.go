package geo

import "math"

const earthRadiusKM = 6371.0

const degToRad = math.Pi / 180

// DistanceKM calculates the great-circle distance in kilometers between two
// points given in decimal degrees, using the Haversine formula. It is called
// O(n^2) times during clustering, so it stays allocation-free.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	radLat1 := lat1 * degToRad
	radLat2 := lat2 * degToRad

	deltaLat := (lat2 - lat1) * degToRad
	deltaLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(deltaLat / 2)
	sinLon := math.Sin(deltaLon / 2)

	a := sinLat*sinLat + math.Cos(radLat1)*math.Cos(radLat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// BoundingBox is a cheap pre-filter around a center point. Candidates inside
// the box still need an exact DistanceKM check.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoxAround returns a bounding box that fully contains the circle of
// radiusKM around (lat, lon). Near the poles the longitude span degenerates
// and the box covers all longitudes.
func BoxAround(lat, lon, radiusKM float64) BoundingBox {
	latDelta := radiusKM / earthRadiusKM / degToRad

	cosLat := math.Cos(lat * degToRad)
	var lonDelta float64
	if cosLat <= 0 {
		lonDelta = 180
	} else {
		lonDelta = latDelta / cosLat
		if lonDelta > 180 {
			lonDelta = 180
		}
	}

	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}
