package routing

import (
	"math"
	"testing"

	"github.com/RyanCarrier/dijkstra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttr_router/pkg/graph"
)

// buildTestGraph creates a small board.
//
//	A ---2--- B ---3--- C
//	|                   |
//	10                  1
//	|                   |
//	D ---4--- E ---2--- F        G (isolated)
//
// The C - F edge is stored as F - C.
func buildTestGraph(t testing.TB) *graph.Graph {
	t.Helper()
	places := []graph.Place{
		{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"},
		{Name: "E"}, {Name: "F"}, {Name: "G"},
	}
	edges := []graph.Edge{
		{From: "A", To: "B", Weight: 2},
		{From: "B", To: "C", Weight: 3},
		{From: "A", To: "D", Weight: 10},
		{From: "F", To: "C", Weight: 1},
		{From: "D", To: "E", Weight: 4},
		{From: "E", To: "F", Weight: 2},
	}
	g, err := graph.Build(places, edges)
	require.NoError(t, err)
	return g
}

// oracleDistance computes the distance with an independent implementation.
func oracleDistance(t *testing.T, g *graph.Graph, from, to string) (uint32, bool) {
	t.Helper()
	d := dijkstra.NewGraph()
	for _, p := range g.Places() {
		d.AddMappedVertex(p)
	}
	for k, w := range g.Edges() {
		require.NoError(t, d.AddMappedArc(k.A, k.B, int64(w)))
		require.NoError(t, d.AddMappedArc(k.B, k.A, int64(w)))
	}
	src, _ := d.GetMapping(from)
	dst, _ := d.GetMapping(to)
	best, err := d.Shortest(src, dst)
	if err != nil {
		return 0, false
	}
	return uint32(best.Distance), true
}

func TestMinHeap(t *testing.T) {
	var h MinHeap

	h.Push(1, 30)
	h.Push(2, 10)
	h.Push(3, 20)
	require.Equal(t, 3, h.Len())

	assert.Equal(t, PQItem{Node: 2, Dist: 10}, h.Pop())
	assert.Equal(t, PQItem{Node: 3, Dist: 20}, h.Pop())
	assert.Equal(t, PQItem{Node: 1, Dist: 30}, h.Pop())
	assert.Zero(t, h.Len())

	h.Push(4, 1)
	h.Push(5, 2)
	h.Reset()
	assert.Zero(t, h.Len())
}

func TestMinHeapTieBreak(t *testing.T) {
	var h MinHeap
	h.Push(7, 5)
	h.Push(3, 5)
	h.Push(5, 5)

	for _, want := range []uint32{3, 5, 7} {
		assert.Equal(t, want, h.Pop().Node)
	}
}

func TestShortestPath(t *testing.T) {
	g := buildTestGraph(t)

	tests := []struct {
		start, end string
		dist       uint32
		path       []string
	}{
		{"A", "C", 5, []string{"A", "B", "C"}},
		{"A", "F", 6, []string{"A", "B", "C", "F"}},
		{"D", "C", 7, []string{"D", "E", "F", "C"}},
		{"A", "D", 10, []string{"A", "D"}},
		{"F", "B", 4, []string{"F", "C", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			res, err := ShortestPath(g, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.dist, res.Distance)
			assert.Equal(t, tt.path, res.Path)

			// Edge weights add up to the distance and every key is stored.
			var sum uint32
			for k, w := range res.Edges {
				stored, ok := g.EdgeKeyOf(k.A, k.B)
				assert.True(t, ok && stored == k, "edge %s not in stored orientation", k)
				sum += w
			}
			assert.Equal(t, res.Distance, sum)
			assert.Len(t, res.Edges, len(res.Path)-1)
		})
	}
}

func TestShortestPathStoredOrientation(t *testing.T) {
	g := buildTestGraph(t)

	res, err := ShortestPath(g, "C", "F")
	require.NoError(t, err)
	assert.Equal(t, map[graph.EdgeKey]uint32{{A: "F", B: "C"}: 1}, res.Edges)
}

func TestShortestPathSamePlace(t *testing.T) {
	g := buildTestGraph(t)

	res, err := ShortestPath(g, "B", "B")
	require.NoError(t, err)
	assert.Zero(t, res.Distance)
	assert.Empty(t, res.Edges)
	assert.True(t, res.Reachable())
}

func TestShortestPathUnreachable(t *testing.T) {
	g := buildTestGraph(t)

	res, err := ShortestPath(g, "A", "G")
	require.NoError(t, err)
	assert.Equal(t, uint32(Infinity), res.Distance)
	assert.False(t, res.Reachable())
	assert.Empty(t, res.Edges)
	assert.Nil(t, res.Path)
}

func TestShortestPathUnknownPlace(t *testing.T) {
	g := buildTestGraph(t)

	_, err := ShortestPath(g, "A", "Atlantis")
	assert.ErrorIs(t, err, graph.ErrUnknownPlace, "unknown end")
	_, err = ShortestPath(g, "Atlantis", "A")
	assert.ErrorIs(t, err, graph.ErrUnknownPlace, "unknown start")
}

func TestShortestPathTieKeepsEarlierPlace(t *testing.T) {
	// Two equal routes S-X-T and S-Y-T; X is inserted first.
	g, err := graph.Build(
		[]graph.Place{{Name: "S"}, {Name: "X"}, {Name: "Y"}, {Name: "T"}},
		[]graph.Edge{
			{From: "S", To: "Y", Weight: 1},
			{From: "S", To: "X", Weight: 1},
			{From: "Y", To: "T", Weight: 1},
			{From: "X", To: "T", Weight: 1},
		},
	)
	require.NoError(t, err)

	for range 5 {
		res, err := ShortestPath(g, "S", "T")
		require.NoError(t, err)
		require.Equal(t, []string{"S", "X", "T"}, res.Path)
	}
}

func TestShortestPathWeightsCannotWrap(t *testing.T) {
	// A detour whose sum wraps past MaxUint32 would look cheaper than the
	// direct connection, so the board is refused.
	_, err := graph.Build(
		[]graph.Place{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		[]graph.Edge{
			{From: "A", To: "B", Weight: 10},
			{From: "B", To: "C", Weight: 0xFFFFFFFA},
			{From: "A", To: "C", Weight: 100},
		},
	)
	require.ErrorIs(t, err, graph.ErrInvalidWeight)

	heavy := graph.MaxWeight(3)
	g, err := graph.Build(
		[]graph.Place{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		[]graph.Edge{
			{From: "A", To: "B", Weight: 10},
			{From: "B", To: "C", Weight: heavy},
			{From: "A", To: "C", Weight: 100},
		},
	)
	require.NoError(t, err)

	res, err := ShortestPath(g, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, uint32(100), res.Distance)
	assert.Equal(t, []string{"A", "C"}, res.Path)

	// With only heavy connections the sum still fits below Infinity.
	g, err = graph.Build(
		[]graph.Place{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		[]graph.Edge{
			{From: "A", To: "B", Weight: heavy},
			{From: "B", To: "C", Weight: heavy},
		},
	)
	require.NoError(t, err)

	res, err = ShortestPath(g, "A", "C")
	require.NoError(t, err)
	assert.True(t, res.Reachable())
	assert.Equal(t, 2*heavy, res.Distance)
}

func TestQueryStateReuse(t *testing.T) {
	g := buildTestGraph(t)
	qs := NewQueryState(g.NumNodes)

	// Unreachable G is mixed in so a query that leaves the heap non-empty or
	// the visited set populated would skew the next one.
	for _, s := range g.Places() {
		for _, d := range g.Places() {
			fresh, err := ShortestPath(g, s, d)
			require.NoError(t, err)
			reused, err := shortestPath(g, qs, s, d)
			require.NoError(t, err)
			assert.Equal(t, fresh, reused, "%s-%s", s, d)
		}
	}
}

func TestShortestPathAgainstOracle(t *testing.T) {
	g := buildTestGraph(t)
	places := g.Places()

	for _, s := range places {
		for _, d := range places {
			if s == d {
				continue
			}
			res, err := ShortestPath(g, s, d)
			require.NoError(t, err, "%s-%s", s, d)

			want, ok := oracleDistance(t, g, s, d)
			if !ok {
				assert.False(t, res.Reachable(), "%s-%s: oracle finds no path", s, d)
				continue
			}
			assert.Equal(t, want, res.Distance, "%s-%s", s, d)

			// Undirected: the reverse query costs the same.
			back, err := ShortestPath(g, d, s)
			require.NoError(t, err, "%s-%s", d, s)
			assert.Equal(t, res.Distance, back.Distance, "%s-%s", s, d)
		}
	}
}

// bruteForce enumerates every simple path and returns the cheapest.
func bruteForce(g *graph.Graph, from, to string) (uint32, bool) {
	best, found := uint32(math.MaxUint32), false
	seen := map[string]bool{from: true}
	var walk func(at string, dist uint32)
	walk = func(at string, dist uint32) {
		if at == to {
			if dist < best {
				best, found = dist, true
			}
			return
		}
		for next, w := range g.EdgesIncident(at) {
			if seen[next] {
				continue
			}
			seen[next] = true
			walk(next, dist+w)
			seen[next] = false
		}
	}
	walk(from, 0)
	return best, found
}

func TestShortestPathAgainstBruteForce(t *testing.T) {
	g := buildTestGraph(t)
	for _, s := range g.Places() {
		for _, d := range g.Places() {
			if s == d {
				continue
			}
			res, err := ShortestPath(g, s, d)
			require.NoError(t, err, "%s-%s", s, d)

			want, ok := bruteForce(g, s, d)
			require.Equal(t, ok, res.Reachable(), "%s-%s", s, d)
			if !ok {
				continue
			}
			assert.Equal(t, want, res.Distance, "%s-%s", s, d)

			var sum uint32
			for _, w := range res.Edges {
				sum += w
			}
			assert.Equal(t, res.Distance, sum, "%s-%s", s, d)
		}
	}
}

func BenchmarkShortestPath(b *testing.B) {
	g := buildTestGraph(b)
	for b.Loop() {
		_, _ = ShortestPath(g, "A", "C")
	}
}
