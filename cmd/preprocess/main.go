package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ttr_router/internal/config"
	"ttr_router/internal/logging"
	"ttr_router/pkg/graph"
	"ttr_router/pkg/mapdata"
)

func main() {
	input := flag.String("input", "", "Path to board .osm file (empty = embedded Europe board)")
	output := flag.String("output", "board.bin", "Output binary snapshot path (empty = skip)")
	toNeo4j := flag.Bool("neo4j", false, "Also store the board in the graph database at GRAPH_URI")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	if *output == "" && !*toNeo4j {
		fmt.Fprintln(os.Stderr, "Usage: preprocess [--input board.osm] [--output board.bin] [--neo4j]")
		os.Exit(1)
	}

	start := time.Now()
	ctx := context.Background()

	// Step 1: Parse and validate the board.
	src := mapdata.Source{Kind: mapdata.KindEmbedded}
	if *input != "" {
		src = mapdata.Source{Kind: mapdata.KindOSM, Path: *input}
	}
	logger.Info("parsing board", "input", *input)
	board, err := mapdata.Load(ctx, src)
	if err != nil {
		logger.Error("failed to load board", "error", err)
		os.Exit(1)
	}
	logger.Info("board",
		"places", board.Graph.NumNodes,
		"connections", board.Graph.NumEdges,
		"regions", len(board.Regions))

	// Step 2: Report disconnected parts; the planner treats them as unreachable.
	if comps := graph.Components(board.Graph); len(comps) > 1 {
		for i, c := range comps {
			logger.Warn("component", "index", i, "places", len(c), "sample", c[0])
		}
	}

	// Step 3: Serialize to binary.
	if *output != "" {
		logger.Info("writing snapshot", "output", *output)
		size, err := writeSnapshot(*output, board)
		if err != nil {
			logger.Error("failed to write snapshot", "error", err)
			os.Exit(1)
		}
		logger.Info("snapshot written", "bytes", size)
	}

	// Step 4: Optionally publish to the graph database.
	if *toNeo4j {
		client, err := mapdata.NewNeo4jClient(ctx, mapdata.Neo4jOptions{
			URI:      cfg.Graph.URI,
			Database: cfg.Graph.Database,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
		})
		if err != nil {
			logger.Error("failed to connect to graph database", "error", err)
			os.Exit(1)
		}
		defer client.Close(ctx)
		if err := mapdata.NewNeo4jSource(client).Save(ctx, board); err != nil {
			logger.Error("failed to store board", "error", err)
			os.Exit(1)
		}
		logger.Info("board stored in graph database", "uri", cfg.Graph.URI)
	}

	logger.Info("done", "elapsed", time.Since(start).Round(time.Millisecond))
}

// writeSnapshot writes board to path and returns the file size.
func writeSnapshot(path string, board *mapdata.Map) (int64, error) {
	if err := mapdata.WriteBinary(path, board); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}
	return info.Size(), nil
}
