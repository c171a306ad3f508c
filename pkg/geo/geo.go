package geo

import (
	"math"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// NotAvailable is rendered whenever one of the coordinate pairs is unknown.
const NotAvailable = "N/A"

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Point) valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) || math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// ParsePoint parses the string coordinates stored on the ledger.
// It returns nil when either value is empty or not a usable coordinate.
func ParsePoint(lat, long string) *Point {
	lat, long = strings.TrimSpace(lat), strings.TrimSpace(long)
	if lat == "" || long == "" {
		return nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil
	}
	lo, err := strconv.ParseFloat(long, 64)
	if err != nil {
		return nil
	}
	p := Point{Latitude: la, Longitude: lo}
	if !p.valid() {
		return nil
	}
	return &p
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// DistanceKm returns the rounded distance, or false when either point is missing.
func DistanceKm(a, b *Point) (int64, bool) {
	if a == nil || b == nil || !a.valid() || !b.valid() {
		return 0, false
	}
	return int64(math.Round(Distance(*a, *b))), true
}

// FormatDistance renders the rounded distance for display, or NotAvailable.
func FormatDistance(a, b *Point) string {
	km, ok := DistanceKm(a, b)
	if !ok {
		return NotAvailable
	}
	return strconv.FormatInt(km, 10)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
