package routing

import (
	"fmt"
	"math"

	"github.com/yourbasic/bit"

	"ttr_router/pkg/graph"
)

// Infinity is the distance reported for an unreachable target.
const Infinity = math.MaxUint32

// noNode marks the absence of a predecessor (the start node's sentinel).
const noNode = math.MaxUint32

// MinHeap is a concrete-typed min-heap for Dijkstra priority queue.
// Entries are ordered by distance, then by node index, so equal distances
// resolve to the place inserted earliest into the graph.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Dist uint32
}

func (a PQItem) less(b PQItem) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Node < b.Node
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node, dist uint32) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].less(h.items[smallest]) {
			smallest = left
		}
		if right < n && h.items[right].less(h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// PathResult is one shortest path between two places.
type PathResult struct {
	Start    string
	End      string
	Edges    map[graph.EdgeKey]uint32 // edges used, in stored orientation
	Path     []string                 // places from Start to End; nil if unreachable
	Distance uint32                   // Infinity if no path exists
}

// Reachable reports whether a path was found.
func (p PathResult) Reachable() bool {
	return p.Distance != Infinity
}

// QueryState holds per-query state for a single-source Dijkstra run.
type QueryState struct {
	Dist    []uint32
	Pred    []uint32 // predecessor (noNode = none)
	Visited *bit.Set
	PQ      MinHeap
}

// NewQueryState creates a QueryState for a graph with n nodes.
func NewQueryState(n uint32) *QueryState {
	dist := make([]uint32, n)
	pred := make([]uint32, n)
	for i := range dist {
		dist[i] = math.MaxUint32
		pred[i] = noNode
	}
	return &QueryState{
		Dist:    dist,
		Pred:    pred,
		Visited: new(bit.Set),
		PQ:      MinHeap{items: make([]PQItem, 0, n)},
	}
}

// Reset clears the state for another query on the same graph.
func (qs *QueryState) Reset() {
	for i := range qs.Dist {
		qs.Dist[i] = math.MaxUint32
		qs.Pred[i] = noNode
	}
	qs.Visited.DeleteRange(0, len(qs.Dist))
	qs.PQ.Reset()
}

// ShortestPath computes the minimum-weight path from start to end.
//
// An unreachable end is not an error: the result carries Distance ==
// Infinity so callers can keep comparing candidates.
func ShortestPath(g *graph.Graph, start, end string) (PathResult, error) {
	return shortestPath(g, nil, start, end)
}

// shortestPath runs one query, reusing qs when it is non-nil. qs must have
// been created for g.
func shortestPath(g *graph.Graph, qs *QueryState, start, end string) (PathResult, error) {
	s, ok := g.Index(start)
	if !ok {
		return PathResult{}, fmt.Errorf("%w: start %q", graph.ErrUnknownPlace, start)
	}
	t, ok := g.Index(end)
	if !ok {
		return PathResult{}, fmt.Errorf("%w: end %q", graph.ErrUnknownPlace, end)
	}

	result := PathResult{
		Start:    start,
		End:      end,
		Edges:    make(map[graph.EdgeKey]uint32),
		Distance: Infinity,
	}

	if s == t {
		result.Path = []string{start}
		result.Distance = 0
		return result, nil
	}

	if qs == nil {
		qs = NewQueryState(g.NumNodes)
	} else {
		qs.Reset()
	}
	qs.Dist[s] = 0
	qs.PQ.Push(s, 0)

	if !runDijkstra(g, qs, t) {
		return result, nil
	}

	path, edges, err := unpackPath(g, qs.Pred, s, t)
	if err != nil {
		return PathResult{}, err
	}
	result.Path = path
	result.Edges = edges
	result.Distance = qs.Dist[t]
	return result, nil
}

// runDijkstra settles nodes until target is selected. Returns false if the
// target was never reached.
func runDijkstra(g *graph.Graph, qs *QueryState, target uint32) bool {
	for qs.PQ.Len() > 0 {
		item := qs.PQ.Pop()
		u := item.Node
		if qs.Visited.Contains(int(u)) || item.Dist > qs.Dist[u] {
			continue // stale entry
		}
		if u == target {
			return true
		}

		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			if qs.Visited.Contains(int(v)) {
				continue
			}
			newDist := item.Dist + g.Trains[e]
			if newDist < qs.Dist[v] {
				qs.Dist[v] = newDist
				qs.Pred[v] = u
				qs.PQ.Push(v, newDist)
			}
		}
		qs.Visited.Add(int(u))
	}
	return false
}
