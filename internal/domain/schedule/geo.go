package schedule

import "math"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the point carries no coordinates.
func (p GeoPoint) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// DistanceKm returns the great-circle distance to another point in kilometers.
func (p GeoPoint) DistanceKm(other GeoPoint) float64 {
	const earthRadiusKm = 6371.0

	lat1 := toRadians(p.Latitude)
	lat2 := toRadians(other.Latitude)
	dlat := toRadians(other.Latitude - p.Latitude)
	dlon := toRadians(other.Longitude - p.Longitude)

	sinDlat := math.Sin(dlat / 2)
	sinDlon := math.Sin(dlon / 2)
	a := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlon*sinDlon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Location is a service address with optional resolved coordinates.
type Location struct {
	Address    string   `json:"address"`
	Coordinate GeoPoint `json:"coordinate,omitempty"`
}
