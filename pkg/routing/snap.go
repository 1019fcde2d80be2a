package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"ttr_router/pkg/geo"
	"ttr_router/pkg/graph"
)

// DefaultMaxSnapMeters is the default search radius for Locator.Nearest.
const DefaultMaxSnapMeters = 150_000.0

// ErrPointTooFar is returned when the query point is too far from any place.
var ErrPointTooFar = errors.New("point too far from any place")

// SnapResult is the place nearest to a query coordinate.
type SnapResult struct {
	Place string
	Lat   float64
	Lng   float64
	Dist  float64 // meters from the query point
}

// Locator finds the place nearest to a map coordinate using an R-tree over
// place positions, e.g. to resolve a click on the rendered board.
type Locator struct {
	tr      rtree.RTreeG[uint32]
	g       *graph.Graph
	maxDist float64
}

// NewLocator indexes every place of g. maxDistMeters <= 0 selects
// DefaultMaxSnapMeters.
func NewLocator(g *graph.Graph, maxDistMeters float64) *Locator {
	if maxDistMeters <= 0 {
		maxDistMeters = DefaultMaxSnapMeters
	}
	l := &Locator{g: g, maxDist: maxDistMeters}
	for i := uint32(0); i < g.NumNodes; i++ {
		pt := [2]float64{g.NodeLon[i], g.NodeLat[i]}
		l.tr.Insert(pt, pt, i)
	}
	return l
}

// Len returns the number of indexed places.
func (l *Locator) Len() int { return l.tr.Len() }

// Nearest returns the place closest to lat/lng.
func (l *Locator) Nearest(lat, lng float64) (SnapResult, error) {
	best := SnapResult{Dist: math.Inf(1)}

	// Boxes are ranked by equirectangular distance to their closest point,
	// which is a lower bound for every item inside them.
	l.tr.Nearby(
		func(min, max [2]float64, _ uint32, _ bool) float64 {
			cLng := math.Max(min[0], math.Min(lng, max[0]))
			cLat := math.Max(min[1], math.Min(lat, max[1]))
			return geo.EquirectangularDist(lat, lng, cLat, cLng)
		},
		func(min, _ [2]float64, idx uint32, _ float64) bool {
			best = SnapResult{
				Place: l.g.Names[idx],
				Lat:   min[1],
				Lng:   min[0],
				Dist:  geo.Haversine(lat, lng, min[1], min[0]),
			}
			return false
		},
	)

	if best.Place == "" || best.Dist > l.maxDist {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}
