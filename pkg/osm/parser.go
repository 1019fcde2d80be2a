// Package osm reads a board map drawn as OpenStreetMap XML.
//
// Places are nodes carrying a name tag. Connections are two-node ways tagged
// railway=rail with the number of trains in a "trains" tag; the order of the
// two nodes fixes the stored orientation of the edge. Regions are relations
// tagged type=region whose node members are the region's places; the
// relation tagged home=yes is the home region.
package osm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"

	"ttr_router/pkg/graph"
)

// ErrMalformedMap is returned for map data that cannot form a board graph.
var ErrMalformedMap = errors.New("malformed map data")

// RawRegion is a region relation as read from the file.
type RawRegion struct {
	Name   string
	Home   bool
	Places []string
}

// ParseResult holds the output of parsing a board map.
type ParseResult struct {
	Places  []graph.Place
	Edges   []graph.Edge
	Regions []RawRegion // home region first, then document order
}

// isConnection returns true if the way is a train connection.
func isConnection(tags osm.Tags) bool {
	return tags.Find("railway") == "rail"
}

// trains returns the positive train count of a connection.
func trains(tags osm.Tags) (uint32, error) {
	v := tags.Find("trains")
	if v == "" {
		return 0, errors.New("missing trains tag")
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid trains tag %q", v)
	}
	return uint32(n), nil
}

// Parse reads OSM XML from r in a single pass. Nodes must precede the ways
// and relations that reference them, as in any JOSM or osmosis export.
func Parse(ctx context.Context, r io.Reader) (*ParseResult, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	names := make(map[osm.NodeID]string)
	result := &ParseResult{}
	var skipped int

	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			name := obj.Tags.Find("name")
			if name == "" {
				skipped++
				continue
			}
			names[obj.ID] = name
			result.Places = append(result.Places, graph.Place{Name: name, Lat: obj.Lat, Lon: obj.Lon})

		case *osm.Way:
			if !isConnection(obj.Tags) {
				skipped++
				continue
			}
			if len(obj.Nodes) != 2 {
				return nil, fmt.Errorf("%w: way %d has %d nodes, want 2", ErrMalformedMap, obj.ID, len(obj.Nodes))
			}
			from, ok := names[obj.Nodes[0].ID]
			if !ok {
				return nil, fmt.Errorf("%w: way %d references unnamed node %d", ErrMalformedMap, obj.ID, obj.Nodes[0].ID)
			}
			to, ok := names[obj.Nodes[1].ID]
			if !ok {
				return nil, fmt.Errorf("%w: way %d references unnamed node %d", ErrMalformedMap, obj.ID, obj.Nodes[1].ID)
			}
			w, err := trains(obj.Tags)
			if err != nil {
				return nil, fmt.Errorf("%w: way %d: %v", ErrMalformedMap, obj.ID, err)
			}
			result.Edges = append(result.Edges, graph.Edge{From: from, To: to, Weight: w})

		case *osm.Relation:
			if obj.Tags.Find("type") != "region" {
				skipped++
				continue
			}
			reg := RawRegion{
				Name: obj.Tags.Find("name"),
				Home: obj.Tags.Find("home") == "yes",
			}
			if reg.Name == "" {
				reg.Name = fmt.Sprintf("region-%d", obj.ID)
			}
			for _, m := range obj.Members {
				if m.Type != osm.TypeNode {
					continue
				}
				name, ok := names[osm.NodeID(m.Ref)]
				if !ok {
					return nil, fmt.Errorf("%w: region %q references unnamed node %d", ErrMalformedMap, reg.Name, m.Ref)
				}
				reg.Places = append(reg.Places, name)
			}
			result.Regions = append(result.Regions, reg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan osm xml: %w", err)
	}

	regions, err := homeFirst(result.Regions)
	if err != nil {
		return nil, err
	}
	result.Regions = regions

	slog.Debug("parsed board map",
		"places", len(result.Places),
		"connections", len(result.Edges),
		"regions", len(result.Regions),
		"skipped", skipped)

	return result, nil
}

// homeFirst moves the single home region to the front, keeping the others in
// document order. Without a home tag the first region is home.
func homeFirst(regions []RawRegion) ([]RawRegion, error) {
	home := -1
	for i, r := range regions {
		if !r.Home {
			continue
		}
		if home >= 0 {
			return nil, fmt.Errorf("%w: regions %q and %q are both home", ErrMalformedMap, regions[home].Name, r.Name)
		}
		home = i
	}
	if home <= 0 {
		return regions, nil
	}
	out := make([]RawRegion, 0, len(regions))
	out = append(out, regions[home])
	out = append(out, regions[:home]...)
	out = append(out, regions[home+1:]...)
	return out, nil
}
