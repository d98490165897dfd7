package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Unit is a distance unit.
type Unit string

const (
	Meters     Unit = "METERS"
	Kilometers Unit = "KILOMETERS"
)

// Point is a geographic position in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// NewPoint validates lat/lng and returns a Point.
func NewPoint(lat, lng float64) (Point, error) {
	p := Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate reports ErrInvalidCoordinate when the point is outside
// [-90,90] x [-180,180] or not a finite number.
func (p Point) Validate() error {
	if !isValidLatitude(p.Lat) || !isValidLongitude(p.Lng) {
		return ErrInvalidCoordinate
	}
	return nil
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// Convert converts a distance in meters to the given unit.
func Convert(meters float64, unit Unit) float64 {
	if unit == Kilometers {
		return meters / 1000
	}
	return meters
}

func haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	// Rounding can push h slightly outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
