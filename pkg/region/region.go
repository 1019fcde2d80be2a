// Package region bounds shortest-path searches to the parts of the map that
// matter for a set of required places.
//
// The map is partitioned into named geographic regions. Region 0 is the home
// region and is kept in every pruned graph; any other region is kept only if
// it holds at least one required place.
package region

import (
	"fmt"
	"log/slog"
	"slices"

	"ttr_router/pkg/graph"
)

// HomeIndex is the region that is always included when pruning.
const HomeIndex = 0

// Region is a named group of places.
type Region struct {
	Name   string
	Places []string
}

// Contains reports whether the region lists place.
func (r Region) Contains(place string) bool {
	return slices.Contains(r.Places, place)
}

// Set is an ordered list of regions; order decides which region a place
// belonging to several regions is matched to.
type Set []Region

// Names returns the names of the regions at the given indices.
func (s Set) Names(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, s[i].Name)
	}
	return out
}

// Of returns the index of the first region containing place, or -1.
func (s Set) Of(place string) int {
	for i, r := range s {
		if r.Contains(place) {
			return i
		}
	}
	return -1
}

// Validate checks that every region member is a place of g. Places listed by
// more than one region are returned so callers can report them.
func (s Set) Validate(g *graph.Graph) (overlaps []string, err error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("region set is empty")
	}
	seen := make(map[string]int)
	for i, r := range s {
		for _, p := range r.Places {
			if !g.HasPlace(p) {
				return nil, fmt.Errorf("region %q: %w: %q", r.Name, graph.ErrUnknownPlace, p)
			}
			if first, ok := seen[p]; ok && first != i {
				overlaps = append(overlaps, p)
				continue
			}
			seen[p] = i
		}
	}
	return overlaps, nil
}

// Select returns the sorted indices of the regions needed for required,
// always including HomeIndex. Each required place is matched to the first
// region containing it and is not considered again.
func Select(s Set, required []string) []int {
	selected := map[int]bool{HomeIndex: true}
	remaining := slices.Clone(required)

	for i, r := range s {
		remaining = slices.DeleteFunc(remaining, func(p string) bool {
			if r.Contains(p) {
				selected[i] = true
				return true
			}
			return false
		})
		if len(remaining) == 0 {
			break
		}
	}

	out := make([]int, 0, len(selected))
	for i := range selected {
		if i < len(s) {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return out
}

// Prune derives a reduced copy of g holding the places of the selected
// regions plus the home region. Every edge incident to a removed place is
// dropped; edges between surviving places are kept. Required places that no
// region lists are kept as well. g itself is not modified.
func Prune(g *graph.Graph, s Set, required []string) (*graph.Graph, error) {
	for _, p := range required {
		if !g.HasPlace(p) {
			return nil, fmt.Errorf("prune: %w: %q", graph.ErrUnknownPlace, p)
		}
	}

	keep := make(map[string]bool)
	for _, i := range Select(s, required) {
		for _, p := range s[i].Places {
			keep[p] = true
		}
	}
	for _, p := range required {
		if !keep[p] {
			slog.Debug("required place outside every region", "place", p)
			keep[p] = true
		}
	}

	return g.Subgraph(func(name string) bool { return keep[name] }), nil
}
