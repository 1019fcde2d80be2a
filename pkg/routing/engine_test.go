package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttr_router/pkg/graph"
	"ttr_router/pkg/region"
)

func mustBuild(t *testing.T, places []string, edges []graph.Edge) *graph.Graph {
	t.Helper()
	ps := make([]graph.Place, len(places))
	for i, p := range places {
		ps[i] = graph.Place{Name: p}
	}
	g, err := graph.Build(ps, edges)
	require.NoError(t, err)
	return g
}

// oneRegion puts every place of g into the home region so pruning is a no-op.
func oneRegion(g *graph.Graph) region.Set {
	return region.Set{{Name: "home", Places: g.Places()}}
}

func triangle(t *testing.T) *graph.Graph {
	return mustBuild(t, []string{"A", "B", "C"}, []graph.Edge{
		{From: "A", To: "B", Weight: 2},
		{From: "B", To: "C", Weight: 3},
		{From: "A", To: "C", Weight: 10},
	})
}

func TestPlanPrefersCheaperDetour(t *testing.T) {
	g := triangle(t)
	e := NewEngine(g, oneRegion(g))

	route, err := e.Plan(context.Background(), []string{"A", "C"})
	require.NoError(t, err)

	assert.Equal(t, uint32(5), route.Distance)
	assert.Equal(t, map[graph.EdgeKey]uint32{
		{A: "A", B: "B"}: 2,
		{A: "B", B: "C"}: 3,
	}, route.Edges)
	require.Len(t, route.Legs, 1)
	assert.Equal(t, "C", route.Legs[0].Start, "first place has no preceding candidates")
	assert.Equal(t, "A", route.Legs[0].End)
}

func TestPlanSinglePlace(t *testing.T) {
	g := triangle(t)
	e := NewEngine(g, oneRegion(g))

	for _, req := range [][]string{{"B"}, {"B", "B", "B"}, nil} {
		route, err := e.Plan(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, route.Edges)
		assert.Empty(t, route.Legs)
		assert.Zero(t, route.Distance)
	}
}

func TestPlanDisjointPairs(t *testing.T) {
	g := mustBuild(t, []string{"A", "B", "M", "X", "Y"}, []graph.Edge{
		{From: "A", To: "M", Weight: 1},
		{From: "M", To: "B", Weight: 2},
		{From: "X", To: "Y", Weight: 4},
	})
	e := NewEngine(g, oneRegion(g))

	route, err := e.Plan(context.Background(), []string{"A", "B", "X", "Y"})
	require.NoError(t, err)

	assert.Equal(t, uint32(3+4), route.Distance)
	assert.Equal(t, map[graph.EdgeKey]uint32{
		{A: "A", B: "M"}: 1,
		{A: "M", B: "B"}: 2,
		{A: "X", B: "Y"}: 4,
	}, route.Edges)
	// X has only unreachable predecessors, so it contributes no leg.
	assert.Len(t, route.Legs, 2)
}

func TestPlanSharedEdgesCountedOnce(t *testing.T) {
	g := mustBuild(t, []string{"H", "A", "B", "C"}, []graph.Edge{
		{From: "A", To: "H", Weight: 1},
		{From: "H", To: "B", Weight: 1},
		{From: "H", To: "C", Weight: 1},
	})
	e := NewEngine(g, oneRegion(g))

	route, err := e.Plan(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)

	require.Len(t, route.Legs, 2)
	assert.Equal(t, uint32(2), route.Legs[0].Distance)
	assert.Equal(t, uint32(2), route.Legs[1].Distance)
	// Ties keep the earlier candidate: C connects to A, not B.
	assert.Equal(t, "A", route.Legs[1].End)
	assert.Len(t, route.Edges, 3)
	assert.Equal(t, uint32(3), route.Distance)
}

func TestPlanCandidateCeiling(t *testing.T) {
	tests := []struct {
		name   string
		weight uint32
		want   uint32
	}{
		{"below ceiling", 98, 98},
		{"at ceiling", 99, 0},
		{"above ceiling", 150, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustBuild(t, []string{"A", "B"}, []graph.Edge{{From: "A", To: "B", Weight: tt.weight}})
			route, err := NewEngine(g, oneRegion(g)).Plan(context.Background(), []string{"A", "B"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, route.Distance)
		})
	}
}

func TestPlanUnknownPlace(t *testing.T) {
	g := triangle(t)
	_, err := NewEngine(g, oneRegion(g)).Plan(context.Background(), []string{"A", "Atlantis"})
	require.ErrorIs(t, err, graph.ErrUnknownPlace)
}

func TestPlanDedupeKeepsFirstOccurrence(t *testing.T) {
	g := triangle(t)
	route, err := NewEngine(g, oneRegion(g)).Plan(context.Background(), []string{"C", "A", "C", "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, route.Required)
	assert.Equal(t, uint32(5), route.Distance)
}

func TestPlanPruningDropsDetours(t *testing.T) {
	// The cheap path A-D-C runs through a region holding no required place.
	g := mustBuild(t, []string{"A", "B", "C", "D"}, []graph.Edge{
		{From: "A", To: "B", Weight: 2},
		{From: "B", To: "C", Weight: 3},
		{From: "A", To: "D", Weight: 1},
		{From: "D", To: "C", Weight: 1},
	})
	regions := region.Set{
		{Name: "home", Places: []string{"A"}},
		{Name: "middle", Places: []string{"B", "C"}},
		{Name: "south", Places: []string{"D"}},
	}

	route, err := NewEngine(g, regions).Plan(context.Background(), []string{"A", "C"})
	require.NoError(t, err)

	assert.Equal(t, uint32(5), route.Distance)
	assert.Equal(t, []string{"home", "middle"}, route.Regions)
	assert.Equal(t, uint32(3), route.PrunedPlaces)
	assert.Equal(t, uint32(2), route.PrunedEdges)
	assert.Equal(t, uint32(4), g.NumNodes, "reference graph untouched")
}

func TestPlanAllPairsSweep(t *testing.T) {
	g := mustBuild(t, []string{"A", "B", "C"}, []graph.Edge{
		{From: "A", To: "B", Weight: 2},
		{From: "B", To: "C", Weight: 3},
	})

	route, err := NewEngine(g, oneRegion(g), WithSweep(SweepAllPairs)).
		Plan(context.Background(), []string{"A", "C"})
	require.NoError(t, err)

	require.Len(t, route.Legs, 2, "first place gets a leg too")
	assert.Equal(t, "A", route.Legs[0].Start)
	assert.Equal(t, uint32(5), route.Distance)
}

func TestPlanIdempotent(t *testing.T) {
	g := triangle(t)
	e := NewEngine(g, oneRegion(g))
	req := []string{"A", "B", "C"}

	first, err := e.Plan(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPlanWorkersMatchSequential(t *testing.T) {
	g := mustBuild(t,
		[]string{"A", "B", "C", "D", "E", "F", "G"},
		[]graph.Edge{
			{From: "A", To: "B", Weight: 2},
			{From: "B", To: "C", Weight: 3},
			{From: "C", To: "D", Weight: 1},
			{From: "D", To: "E", Weight: 4},
			{From: "E", To: "F", Weight: 2},
			{From: "F", To: "A", Weight: 6},
			{From: "B", To: "G", Weight: 5},
			{From: "G", To: "E", Weight: 1},
		})
	req := []string{"F", "C", "A", "G", "D"}

	for _, sweep := range []Sweep{SweepPreceding, SweepAllPairs} {
		seq, err := NewEngine(g, oneRegion(g), WithSweep(sweep)).Plan(context.Background(), req)
		require.NoError(t, err)
		par, err := NewEngine(g, oneRegion(g), WithSweep(sweep), WithWorkers(4)).Plan(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, seq, par, "sweep %s", sweep)
	}
}

func TestPlanCancelled(t *testing.T) {
	g := triangle(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		_, err := NewEngine(g, oneRegion(g), WithWorkers(workers)).Plan(ctx, []string{"A", "C"})
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestRouteSortedEdges(t *testing.T) {
	r := &Route{Edges: map[graph.EdgeKey]uint32{
		{A: "B", B: "C"}: 1,
		{A: "A", B: "Z"}: 1,
		{A: "A", B: "B"}: 1,
	}}
	assert.Equal(t, []graph.EdgeKey{
		{A: "A", B: "B"}, {A: "A", B: "Z"}, {A: "B", B: "C"},
	}, r.SortedEdges())
}

func TestParseSweep(t *testing.T) {
	for in, want := range map[string]Sweep{"": SweepPreceding, "preceding": SweepPreceding, "all-pairs": SweepAllPairs} {
		got, err := ParseSweep(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want.String(), got.String())
	}
	_, err := ParseSweep("random")
	assert.Error(t, err)
}
