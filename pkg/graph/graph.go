package graph

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrUnknownPlace is returned when a queried place is not in the graph.
	ErrUnknownPlace = errors.New("unknown place")
	// ErrEdgeNotFound is returned when no edge connects two places in either orientation.
	ErrEdgeNotFound = errors.New("edge not found")
)

// EdgeKey identifies an undirected edge by the orientation it was stored in.
// Only one of (A,B) and (B,A) is ever present in a Graph.
type EdgeKey struct {
	A string
	B string
}

// Reverse returns the key with its endpoints swapped.
func (k EdgeKey) Reverse() EdgeKey {
	return EdgeKey{A: k.B, B: k.A}
}

// Has reports whether p is one of the key's endpoints.
func (k EdgeKey) Has(p string) bool {
	return k.A == p || k.B == p
}

func (k EdgeKey) String() string {
	return k.A + " - " + k.B
}

// Graph is an immutable undirected weighted graph of named places.
//
// Adjacency is held in CSR (Compressed Sparse Row) form over place indices;
// every undirected edge appears once in each endpoint's row.
type Graph struct {
	NumNodes uint32
	NumEdges uint32   // undirected edge count
	Names    []string // len: NumNodes; insertion order
	NodeLat  []float64
	NodeLon  []float64
	FirstOut []uint32 // len: NumNodes + 1
	Head     []uint32 // len: 2*NumEdges
	Trains   []uint32 // len: 2*NumEdges; edge weight per half-edge

	index map[string]uint32
	keys  []EdgeKey          // stored orientation, insertion order
	edges map[EdgeKey]uint32 // stored orientation -> weight
}

// EdgesFrom returns the range of CSR entries for edges touching node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Places returns all place names in insertion order.
func (g *Graph) Places() []string {
	out := make([]string, len(g.Names))
	copy(out, g.Names)
	return out
}

// HasPlace reports whether name is a node of g.
func (g *Graph) HasPlace(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Index returns the node index of name.
func (g *Graph) Index(name string) (uint32, bool) {
	idx, ok := g.index[name]
	return idx, ok
}

// Coord returns the map coordinate of a place.
func (g *Graph) Coord(name string) (lat, lon float64, err error) {
	idx, ok := g.index[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownPlace, name)
	}
	return g.NodeLat[idx], g.NodeLon[idx], nil
}

// EdgeKeyOf returns the stored orientation of the edge between a and b.
func (g *Graph) EdgeKeyOf(a, b string) (EdgeKey, bool) {
	k := EdgeKey{A: a, B: b}
	if _, ok := g.edges[k]; ok {
		return k, true
	}
	if _, ok := g.edges[k.Reverse()]; ok {
		return k.Reverse(), true
	}
	return EdgeKey{}, false
}

// Weight returns the weight of the edge between a and b in either orientation.
func (g *Graph) Weight(a, b string) (uint32, error) {
	k, ok := g.EdgeKeyOf(a, b)
	if !ok {
		return 0, fmt.Errorf("%w: %s - %s", ErrEdgeNotFound, a, b)
	}
	return g.edges[k], nil
}

// EdgesIncident yields (neighbor, weight) for every edge touching node.
// The sequence is empty for unknown places and may be ranged over repeatedly.
func (g *Graph) EdgesIncident(node string) iter.Seq2[string, uint32] {
	return func(yield func(string, uint32) bool) {
		u, ok := g.index[node]
		if !ok {
			return
		}
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			if !yield(g.Names[g.Head[e]], g.Trains[e]) {
				return
			}
		}
	}
}

// Edges yields every edge once, in stored orientation and insertion order.
func (g *Graph) Edges() iter.Seq2[EdgeKey, uint32] {
	return func(yield func(EdgeKey, uint32) bool) {
		for _, k := range g.keys {
			if !yield(k, g.edges[k]) {
				return
			}
		}
	}
}
