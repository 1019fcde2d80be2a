package mapdata

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"ttr_router/pkg/graph"
	"ttr_router/pkg/region"
)

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")

// GraphClient is the subset of a graph database session the loader needs.
type GraphClient interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	// ExecuteWrite runs stmts in one transaction: all of them commit or none do.
	ExecuteWrite(ctx context.Context, stmts ...Statement) error
	Close(ctx context.Context) error
}

// Statement is a Cypher statement with its parameters.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// Neo4jOptions configures a Neo4j connection.
type Neo4jOptions struct {
	URI      string
	Database string
	Username string
	Password string
}

// NewNeo4jClient opens a Bolt connection and verifies it.
func NewNeo4jClient(ctx context.Context, opts Neo4jOptions) (GraphClient, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &neo4jClient{driver: driver, database: opts.Database}, nil
}

type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
}

func (c *neo4jClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return consumeResult(ctx, res)
}

func (c *neo4jClient) ExecuteWrite(ctx context.Context, stmts ...Statement) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			res, err := tx.Run(ctx, st.Cypher, st.Params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func consumeResult(ctx context.Context, res neo4j.ResultWithContext) ([]Record, error) {
	var records []Record
	for res.Next(ctx) {
		rec := res.Record()
		record := make(Record, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			record[key] = value
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Board schema: (:Place {name, lat, lon, seq}), (:Place)-[:CONNECTS {trains,
// seq}]->(:Place) in stored orientation, and (:Place)-[:IN]->(:Region {name,
// seq}). The seq properties preserve insertion order; region seq 0 is home.
const (
	queryPlaces = `MATCH (p:Place)
RETURN p.name AS name, p.lat AS lat, p.lon AS lon
ORDER BY p.seq`

	queryConnections = `MATCH (a:Place)-[c:CONNECTS]->(b:Place)
RETURN a.name AS from, b.name AS to, c.trains AS trains
ORDER BY c.seq`

	queryRegions = `MATCH (r:Region)
OPTIONAL MATCH (p:Place)-[:IN]->(r)
WITH r, p ORDER BY p.seq
RETURN r.name AS name, r.seq AS seq, collect(p.name) AS places
ORDER BY seq`

	clearBoard = `MATCH (n) WHERE n:Place OR n:Region DETACH DELETE n`

	createPlaces = `UNWIND $places AS row
CREATE (:Place {name: row.name, lat: row.lat, lon: row.lon, seq: row.seq})`

	createConnections = `UNWIND $edges AS row
MATCH (a:Place {name: row.from}), (b:Place {name: row.to})
CREATE (a)-[:CONNECTS {trains: row.trains, seq: row.seq}]->(b)`

	createRegions = `UNWIND $regions AS row
CREATE (r:Region {name: row.name, seq: row.seq})
WITH r, row
UNWIND row.places AS place
MATCH (p:Place {name: place})
CREATE (p)-[:IN]->(r)`
)

// Neo4jSource reads and writes boards stored in a graph database.
type Neo4jSource struct {
	client GraphClient
}

// NewNeo4jSource wraps a connected client.
func NewNeo4jSource(client GraphClient) *Neo4jSource {
	return &Neo4jSource{client: client}
}

// Load reads the board.
func (s *Neo4jSource) Load(ctx context.Context) (*Map, error) {
	rows, err := s.client.ExecuteRead(ctx, queryPlaces, nil)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	places := make([]graph.Place, 0, len(rows))
	for _, row := range rows {
		name, err := field[string](row, "name")
		if err != nil {
			return nil, err
		}
		lat, err := field[float64](row, "lat")
		if err != nil {
			return nil, err
		}
		lon, err := field[float64](row, "lon")
		if err != nil {
			return nil, err
		}
		places = append(places, graph.Place{Name: name, Lat: lat, Lon: lon})
	}

	rows, err = s.client.ExecuteRead(ctx, queryConnections, nil)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	edges := make([]graph.Edge, 0, len(rows))
	for _, row := range rows {
		from, err := field[string](row, "from")
		if err != nil {
			return nil, err
		}
		to, err := field[string](row, "to")
		if err != nil {
			return nil, err
		}
		trains, err := field[int64](row, "trains")
		if err != nil {
			return nil, err
		}
		if trains <= 0 || trains > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s - %s has %d trains", graph.ErrInvalidWeight, from, to, trains)
		}
		edges = append(edges, graph.Edge{From: from, To: to, Weight: uint32(trains)})
	}

	rows, err = s.client.ExecuteRead(ctx, queryRegions, nil)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	regions := make(region.Set, 0, len(rows))
	for _, row := range rows {
		name, err := field[string](row, "name")
		if err != nil {
			return nil, err
		}
		members, err := field[[]any](row, "places")
		if err != nil {
			return nil, err
		}
		r := region.Region{Name: name}
		for _, m := range members {
			p, ok := m.(string)
			if !ok {
				return nil, fmt.Errorf("region %q: member is %T, want string", name, m)
			}
			r.Places = append(r.Places, p)
		}
		regions = append(regions, r)
	}

	return Build(places, edges, regions)
}

// Save replaces the board stored in the database with m. The old board is
// removed in the same transaction, so a failed save leaves it in place.
func (s *Neo4jSource) Save(ctx context.Context, m *Map) error {
	places := make([]map[string]any, 0, m.Graph.NumNodes)
	for i, p := range m.Places() {
		places = append(places, map[string]any{"name": p.Name, "lat": p.Lat, "lon": p.Lon, "seq": i})
	}

	edges := make([]map[string]any, 0, m.Graph.NumEdges)
	for i, e := range m.Edges() {
		edges = append(edges, map[string]any{"from": e.From, "to": e.To, "trains": int64(e.Weight), "seq": i})
	}

	regions := make([]map[string]any, 0, len(m.Regions))
	for i, r := range m.Regions {
		members := make([]any, len(r.Places))
		for j, p := range r.Places {
			members[j] = p
		}
		regions = append(regions, map[string]any{"name": r.Name, "seq": i, "places": members})
	}

	err := s.client.ExecuteWrite(ctx,
		Statement{Cypher: clearBoard},
		Statement{Cypher: createPlaces, Params: map[string]any{"places": places}},
		Statement{Cypher: createConnections, Params: map[string]any{"edges": edges}},
		Statement{Cypher: createRegions, Params: map[string]any{"regions": regions}},
	)
	if err != nil {
		return fmt.Errorf("store board: %w", err)
	}
	return nil
}

// field extracts a typed value from a record.
func field[T any](rec Record, key string) (T, error) {
	var zero T
	v, ok := rec[key]
	if !ok {
		return zero, fmt.Errorf("record missing %q", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("record field %q is %T", key, v)
	}
	return t, nil
}
