package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

func (g *Graph) unionFind() *UnionFind {
	uf := NewUnionFind(g.NumNodes)
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head[e])
		}
	}
	return uf
}

// Components returns the connected components of g, each listing place
// names in insertion order. Components are ordered by their first place.
func Components(g *Graph) [][]string {
	if g.NumNodes == 0 {
		return nil
	}
	uf := g.unionFind()

	slot := make(map[uint32]int)
	var out [][]string
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		s, ok := slot[root]
		if !ok {
			s = len(out)
			slot[root] = s
			out = append(out, make([]string, 0, uf.size[root]))
		}
		out[s] = append(out[s], g.Names[i])
	}
	return out
}

// Connected reports whether every listed place lies in one component of g.
// Unknown places are never connected.
func Connected(g *Graph, places ...string) bool {
	if len(places) == 0 {
		return true
	}
	uf := g.unionFind()
	first, ok := g.Index(places[0])
	if !ok {
		return false
	}
	root := uf.Find(first)
	for _, p := range places[1:] {
		idx, ok := g.Index(p)
		if !ok || uf.Find(idx) != root {
			return false
		}
	}
	return true
}
