package routing

import (
	"fmt"

	"ttr_router/pkg/graph"
)

// unpackPath walks predecessors from target back to source, collecting the
// traversed edges in their stored orientation and the ordered place list.
func unpackPath(g *graph.Graph, pred []uint32, source, target uint32) ([]string, map[graph.EdgeKey]uint32, error) {
	edges := make(map[graph.EdgeKey]uint32)
	var rev []string

	node := target
	for steps := uint32(0); node != source; steps++ {
		// A predecessor chain longer than the node count is a cycle.
		if steps > g.NumNodes {
			return nil, nil, fmt.Errorf("predecessor cycle at %q", g.Names[node])
		}
		prev := pred[node]
		if prev == noNode {
			return nil, nil, fmt.Errorf("broken predecessor chain at %q", g.Names[node])
		}

		a, b := g.Names[node], g.Names[prev]
		k, ok := g.EdgeKeyOf(a, b)
		if !ok {
			return nil, nil, fmt.Errorf("reconstruct path: %w: %s - %s", graph.ErrEdgeNotFound, a, b)
		}
		w, err := g.Weight(a, b)
		if err != nil {
			return nil, nil, fmt.Errorf("reconstruct path: %w", err)
		}
		edges[k] = w
		rev = append(rev, a)
		node = prev
	}
	rev = append(rev, g.Names[source])

	// Reverse to get source → target.
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev, edges, nil
}
