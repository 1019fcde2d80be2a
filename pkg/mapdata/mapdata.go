// Package mapdata loads the board map: the place graph and its region
// partition. The standard Europe board is embedded; other boards can be read
// from OSM XML, from a binary snapshot, or from a Neo4j database.
package mapdata

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"ttr_router/pkg/graph"
	"ttr_router/pkg/osm"
	"ttr_router/pkg/region"
)

// Budget is the number of trains each player starts with.
const Budget = 45

//go:embed europe.osm
var europeOSM []byte

// Map is a loaded board.
type Map struct {
	Graph   *graph.Graph
	Regions region.Set // home region first
}

// Places returns every place with its coordinate, in insertion order.
func (m *Map) Places() []graph.Place {
	out := make([]graph.Place, m.Graph.NumNodes)
	for i, name := range m.Graph.Names {
		out[i] = graph.Place{Name: name, Lat: m.Graph.NodeLat[i], Lon: m.Graph.NodeLon[i]}
	}
	return out
}

// Edges returns every connection in stored orientation and insertion order.
func (m *Map) Edges() []graph.Edge {
	out := make([]graph.Edge, 0, m.Graph.NumEdges)
	for k, w := range m.Graph.Edges() {
		out = append(out, graph.Edge{From: k.A, To: k.B, Weight: w})
	}
	return out
}

// Build assembles and validates a Map from raw lists. Regions are used in the
// given order; the first is the home region.
func Build(places []graph.Place, edges []graph.Edge, regions region.Set) (*Map, error) {
	g, err := graph.Build(places, edges)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	overlaps, err := regions.Validate(g)
	if err != nil {
		return nil, fmt.Errorf("validate regions: %w", err)
	}
	if len(overlaps) > 0 {
		slog.Warn("places listed by several regions; first region wins", "places", overlaps)
	}
	if comps := graph.Components(g); len(comps) > 1 {
		slog.Warn("board is not connected", "components", len(comps))
	}
	return &Map{Graph: g, Regions: regions}, nil
}

// FromParse converts parsed OSM data into a Map.
func FromParse(res *osm.ParseResult) (*Map, error) {
	regions := make(region.Set, len(res.Regions))
	for i, r := range res.Regions {
		regions[i] = region.Region{Name: r.Name, Places: r.Places}
	}
	return Build(res.Places, res.Edges, regions)
}

// LoadOSM reads a board from OSM XML.
func LoadOSM(ctx context.Context, r io.Reader) (*Map, error) {
	res, err := osm.Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	return FromParse(res)
}

// LoadOSMFile reads a board from an OSM XML file.
func LoadOSMFile(ctx context.Context, path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()
	return LoadOSM(ctx, f)
}

var europe = sync.OnceValues(func() (*Map, error) {
	return LoadOSM(context.Background(), bytes.NewReader(europeOSM))
})

// Default returns the embedded Europe board. The result is shared and must
// not be modified.
func Default() (*Map, error) {
	return europe()
}

// OverlayName is the file name of the board overlay image that highlights a
// connection, e.g. "paris-bruxelles".
func OverlayName(k graph.EdgeKey) string {
	return strings.ToLower(k.A + "-" + k.B)
}

// Source kinds accepted by Load.
const (
	KindEmbedded = "embedded"
	KindOSM      = "osm"
	KindBinary   = "binary"
	KindNeo4j    = "neo4j"
)

// Source selects where Load reads a board from.
type Source struct {
	Kind  string
	Path  string       // OSM XML or binary snapshot
	Neo4j Neo4jOptions // used by KindNeo4j
}

// Load reads a board from src.
func Load(ctx context.Context, src Source) (*Map, error) {
	switch src.Kind {
	case "", KindEmbedded:
		return Default()
	case KindOSM:
		return LoadOSMFile(ctx, src.Path)
	case KindBinary:
		return ReadBinary(src.Path)
	case KindNeo4j:
		client, err := NewNeo4jClient(ctx, src.Neo4j)
		if err != nil {
			return nil, err
		}
		defer client.Close(ctx)
		return NewNeo4jSource(client).Load(ctx)
	}
	return nil, fmt.Errorf("unknown map source %q", src.Kind)
}
