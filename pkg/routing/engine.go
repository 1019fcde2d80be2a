package routing

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"ttr_router/pkg/graph"
	"ttr_router/pkg/region"
)

// candidateCeiling is the initial best distance when choosing a leg. Only
// paths strictly shorter than this are ever selected.
const candidateCeiling = 99

// Sweep selects which pairs the planner evaluates for each required place.
type Sweep int

const (
	// SweepPreceding pairs each place only with the places listed before it.
	SweepPreceding Sweep = iota
	// SweepAllPairs pairs each place with every other required place.
	SweepAllPairs
)

func (s Sweep) String() string {
	switch s {
	case SweepPreceding:
		return "preceding"
	case SweepAllPairs:
		return "all-pairs"
	}
	return fmt.Sprintf("Sweep(%d)", int(s))
}

// ParseSweep maps a config value to a Sweep.
func ParseSweep(s string) (Sweep, error) {
	switch s {
	case "", "preceding":
		return SweepPreceding, nil
	case "all-pairs":
		return SweepAllPairs, nil
	}
	return 0, fmt.Errorf("unknown sweep %q", s)
}

// Route is the combined result of a planning call.
type Route struct {
	Required     []string                 // deduplicated required places
	Regions      []string                 // regions kept by pruning
	PrunedPlaces uint32                   // places in the pruned graph
	PrunedEdges  uint32                   // edges in the pruned graph
	Legs         []PathResult             // selected per-place paths, in merge order
	Edges        map[graph.EdgeKey]uint32 // union of leg edges
	Distance     uint32                   // sum of Edges weights
}

// SortedEdges returns the route's edge keys in a stable order.
func (r *Route) SortedEdges() []graph.EdgeKey {
	keys := slices.Collect(maps.Keys(r.Edges))
	slices.SortFunc(keys, func(a, b graph.EdgeKey) int {
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})
	return keys
}

// Planner is the interface for route planning.
type Planner interface {
	Plan(ctx context.Context, required []string) (*Route, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSweep sets the pair evaluation strategy.
func WithSweep(s Sweep) Option {
	return func(e *Engine) { e.sweep = s }
}

// WithWorkers evaluates required places concurrently. n <= 1 runs sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine implements Planner over an immutable reference graph.
type Engine struct {
	g       *graph.Graph
	regions region.Set
	sweep   Sweep
	workers int
	logger  *slog.Logger
}

// NewEngine creates a planning engine. g and regions are never modified.
func NewEngine(g *graph.Graph, regions region.Set, opts ...Option) *Engine {
	e := &Engine{
		g:       g,
		regions: regions,
		sweep:   SweepPreceding,
		workers: 1,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan connects all required places with a combined route.
func (e *Engine) Plan(ctx context.Context, required []string) (*Route, error) {
	// Step 1: Collapse duplicates and validate against the canonical graph.
	places := dedupe(required)
	for _, p := range places {
		if !e.g.HasPlace(p) {
			return nil, fmt.Errorf("%w: %q", graph.ErrUnknownPlace, p)
		}
	}

	// Step 2: Prune to the relevant regions.
	pruned, err := region.Prune(e.g, e.regions, places)
	if err != nil {
		return nil, err
	}
	kept := e.regions.Names(region.Select(e.regions, places))
	if !graph.Connected(pruned, places...) {
		e.logger.Warn("pruned graph disconnects required places", "required", places, "regions", kept)
	}

	// Step 3: Pick one leg per required place.
	legs, err := e.selectLegs(ctx, pruned, places)
	if err != nil {
		return nil, err
	}

	// Step 4: Merge legs; later legs overwrite shared edges.
	edges := make(map[graph.EdgeKey]uint32)
	for _, leg := range legs {
		maps.Copy(edges, leg.Edges)
	}
	var total uint32
	for _, w := range edges {
		total += w
	}

	e.logger.Debug("route planned",
		"required", len(places),
		"regions", kept,
		"pruned_places", pruned.NumNodes,
		"legs", len(legs),
		"distance", total)

	return &Route{
		Required:     places,
		Regions:      kept,
		PrunedPlaces: pruned.NumNodes,
		PrunedEdges:  pruned.NumEdges,
		Legs:         legs,
		Edges:        edges,
		Distance:     total,
	}, nil
}

// selectLegs runs bestLeg for every required place, in parallel when
// configured. Output order always follows the required list.
func (e *Engine) selectLegs(ctx context.Context, g *graph.Graph, places []string) ([]PathResult, error) {
	found := make([]*PathResult, len(places))

	if e.workers <= 1 {
		for i := range places {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			leg, err := e.bestLeg(g, places, i)
			if err != nil {
				return nil, err
			}
			found[i] = leg
		}
	} else {
		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(e.workers)
		for i := range places {
			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				leg, err := e.bestLeg(g, places, i)
				if err != nil {
					return err
				}
				found[i] = leg
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	var legs []PathResult
	for _, leg := range found {
		if leg != nil {
			legs = append(legs, *leg)
		}
	}
	return legs, nil
}

// bestLeg returns the shortest candidate path from places[i], or nil if no
// candidate beats candidateCeiling. Ties keep the earlier candidate.
func (e *Engine) bestLeg(g *graph.Graph, places []string, i int) (*PathResult, error) {
	from := places[i]
	var best *PathResult
	bestDist := uint32(candidateCeiling)
	qs := NewQueryState(g.NumNodes)

	for _, to := range places {
		if to == from {
			if e.sweep == SweepPreceding {
				break
			}
			continue
		}
		res, err := shortestPath(g, qs, from, to)
		if err != nil {
			return nil, err
		}
		if res.Distance < bestDist {
			best = &res
			bestDist = res.Distance
		}
	}
	return best, nil
}

func dedupe(places []string) []string {
	seen := make(map[string]bool, len(places))
	out := make([]string, 0, len(places))
	for _, p := range places {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
