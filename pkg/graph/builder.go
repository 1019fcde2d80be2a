package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrDuplicatePlace = errors.New("duplicate place")
	ErrDuplicateEdge  = errors.New("duplicate edge")
	ErrInvalidWeight  = errors.New("invalid edge weight")
)

// Place is a named node with a map coordinate.
type Place struct {
	Name string
	Lat  float64
	Lon  float64
}

// Edge is an undirected connection; From/To fix the stored orientation.
type Edge struct {
	From   string
	To     string
	Weight uint32
}

// MaxWeight returns the largest edge weight a graph of n places accepts. A
// simple path has at most n-1 edges, so any path sum stays below MaxUint32,
// which the router reserves as its unreachable marker.
func MaxWeight(n int) uint32 {
	return uint32(math.MaxUint32 / uint64(n+1))
}

// Build validates places and edges and creates a CSR Graph.
func Build(places []Place, edges []Edge) (*Graph, error) {
	// Step 1: Assign compact indices in insertion order.
	index := make(map[string]uint32, len(places))
	names := make([]string, 0, len(places))
	nodeLat := make([]float64, 0, len(places))
	nodeLon := make([]float64, 0, len(places))
	for _, p := range places {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrUnknownPlace)
		}
		if _, ok := index[p.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlace, p.Name)
		}
		index[p.Name] = uint32(len(names))
		names = append(names, p.Name)
		nodeLat = append(nodeLat, p.Lat)
		nodeLon = append(nodeLon, p.Lon)
	}

	// Step 2: Validate edges against the place set, rejecting both orientations of a pair.
	maxWeight := MaxWeight(len(names))
	keys := make([]EdgeKey, 0, len(edges))
	weights := make(map[EdgeKey]uint32, len(edges))
	for _, e := range edges {
		if _, ok := index[e.From]; !ok {
			return nil, fmt.Errorf("%w: %q in edge %s - %s", ErrUnknownPlace, e.From, e.From, e.To)
		}
		if _, ok := index[e.To]; !ok {
			return nil, fmt.Errorf("%w: %q in edge %s - %s", ErrUnknownPlace, e.To, e.From, e.To)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("%w: self loop at %q", ErrDuplicateEdge, e.From)
		}
		if e.Weight == 0 {
			return nil, fmt.Errorf("%w: %s - %s must be positive", ErrInvalidWeight, e.From, e.To)
		}
		if e.Weight > maxWeight {
			return nil, fmt.Errorf("%w: %s - %s weight %d exceeds %d", ErrInvalidWeight, e.From, e.To, e.Weight, maxWeight)
		}
		k := EdgeKey{A: e.From, B: e.To}
		_, fwd := weights[k]
		_, bwd := weights[k.Reverse()]
		if fwd || bwd {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, k)
		}
		weights[k] = e.Weight
		keys = append(keys, k)
	}

	return assemble(names, nodeLat, nodeLon, keys, weights), nil
}

// assemble builds the CSR arrays from already-validated data.
func assemble(names []string, nodeLat, nodeLon []float64, keys []EdgeKey, weights map[EdgeKey]uint32) *Graph {
	numNodes := uint32(len(names))
	index := make(map[string]uint32, numNodes)
	for i, n := range names {
		index[n] = uint32(i)
	}

	// Each undirected edge becomes two half-edges.
	type halfEdge struct {
		from, to, weight uint32
		seq              int
	}
	half := make([]halfEdge, 0, 2*len(keys))
	for i, k := range keys {
		a, b := index[k.A], index[k.B]
		w := weights[k]
		half = append(half, halfEdge{a, b, w, 2 * i}, halfEdge{b, a, w, 2*i + 1})
	}

	// Sort by source node, keeping insertion order within a row.
	sort.SliceStable(half, func(i, j int) bool {
		return half[i].from < half[j].from
	})

	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, len(half))
	weight := make([]uint32, len(half))
	for i, e := range half {
		head[i] = e.to
		weight[i] = e.weight
		firstOut[e.from+1]++
	}
	// Prefix sum.
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	return &Graph{
		NumNodes: numNodes,
		NumEdges: uint32(len(keys)),
		Names:    names,
		NodeLat:  nodeLat,
		NodeLon:  nodeLon,
		FirstOut: firstOut,
		Head:     head,
		Trains:   weight,
		index:    index,
		keys:     keys,
		edges:    weights,
	}
}

// Subgraph returns a new graph containing only the places for which keep
// returns true, and the edges whose endpoints both survive. The receiver is
// not modified.
func (g *Graph) Subgraph(keep func(name string) bool) *Graph {
	var names []string
	var nodeLat, nodeLon []float64
	kept := make(map[string]bool, len(g.Names))
	for i, n := range g.Names {
		if !keep(n) {
			continue
		}
		kept[n] = true
		names = append(names, n)
		nodeLat = append(nodeLat, g.NodeLat[i])
		nodeLon = append(nodeLon, g.NodeLon[i])
	}

	var keys []EdgeKey
	weights := make(map[EdgeKey]uint32)
	for _, k := range g.keys {
		if kept[k.A] && kept[k.B] {
			keys = append(keys, k)
			weights[k] = g.edges[k]
		}
	}

	return assemble(names, nodeLat, nodeLon, keys, weights)
}
