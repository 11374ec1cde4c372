// Package geo estimates delivery distances between outlets and customers.
package geo

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dineflow/api/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// ErrNoLocation is returned when neither coordinates nor an address are known.
var ErrNoLocation = errors.New("delivery location is unknown")

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b model.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Heuristic guesses a distance from free-text address when no coordinates
// are available. It stands in for a geocoding service and is deterministic.
type Heuristic struct {
	FarKeywords  []string
	NearKeywords []string
	FarKm        float64
	NearKm       float64
}

// DefaultHeuristic returns the keyword lists used when nothing is configured.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		FarKeywords:  []string{"airport", "highway", "industrial area", "outskirts", "bypass", "township"},
		NearKeywords: []string{"market", "main road", "city centre", "city center", "station road", "mall"},
		FarKm:        15,
		NearKm:       2,
	}
}

// Estimate returns the heuristic distance for an address. Far keywords win
// over near ones; otherwise the distance is derived from the address length
// in characters.
func (h Heuristic) Estimate(address string) float64 {
	lower := strings.ToLower(address)
	for _, kw := range h.FarKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return h.FarKm
		}
	}
	for _, kw := range h.NearKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return h.NearKm
		}
	}
	d := float64(utf8.RuneCountInString(address)%12) + 0.5
	return math.Max(1, d)
}

// Estimator resolves the distance between an outlet and a delivery point.
type Estimator struct {
	Heuristic Heuristic
}

func NewEstimator(h Heuristic) *Estimator {
	return &Estimator{Heuristic: h}
}

// Distance prefers great-circle distance when both sides have coordinates
// and falls back to the address heuristic. precise reports which path was
// taken.
func (e *Estimator) Distance(outlet model.Outlet, address string, customer *model.Coordinates) (km float64, precise bool, err error) {
	if outlet.HasCoordinates() && customer != nil {
		return Haversine(*outlet.Location, *customer), true, nil
	}
	if strings.TrimSpace(address) == "" {
		return 0, false, ErrNoLocation
	}
	return e.Heuristic.Estimate(address), false, nil
}

// NearestOutlet picks the active outlet with coordinates closest to the
// user. Ties keep the first outlet in list order.
func NearestOutlet(user model.Coordinates, outlets []model.Outlet) (model.Outlet, float64, bool) {
	var (
		best     model.Outlet
		bestDist float64
		found    bool
	)
	for _, o := range outlets {
		if !o.IsActive || !o.HasCoordinates() {
			continue
		}
		d := Haversine(user, *o.Location)
		if !found || d < bestDist {
			best, bestDist, found = o, d, true
		}
	}
	return best, bestDist, found
}
