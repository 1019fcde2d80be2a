package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"ttr_router/internal/config"
	"ttr_router/internal/logging"
	"ttr_router/pkg/api"
	"ttr_router/pkg/mapdata"
	"ttr_router/pkg/routing"
	"ttr_router/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	start := time.Now()
	ctx := context.Background()

	// Load board.
	logger.Info("loading board", "source", cfg.Map.Source, "path", cfg.Map.Path)
	board, err := mapdata.Load(ctx, mapdata.Source{
		Kind: string(cfg.Map.Source),
		Path: cfg.Map.Path,
		Neo4j: mapdata.Neo4jOptions{
			URI:      cfg.Graph.URI,
			Database: cfg.Graph.Database,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
		},
	})
	if err != nil {
		logger.Error("failed to load board", "error", err)
		os.Exit(1)
	}
	logger.Info("board loaded",
		"places", board.Graph.NumNodes,
		"connections", board.Graph.NumEdges,
		"regions", len(board.Regions))

	// Build planner.
	sweep, err := routing.ParseSweep(cfg.Planner.Sweep)
	if err != nil {
		logger.Error("invalid PLANNER_SWEEP", "error", err)
		os.Exit(1)
	}
	engine := routing.NewEngine(board.Graph, board.Regions,
		routing.WithSweep(sweep),
		routing.WithWorkers(cfg.Planner.Workers),
		routing.WithLogger(logger))

	logger.Info("building place index")
	locator := routing.NewLocator(board.Graph, cfg.Map.SnapMax*1000)

	deps := api.Deps{
		Planner: engine,
		Board:   board,
		Locator: locator,
		Budget:  cfg.Planner.Budget,
		Sweep:   sweep.String(),
		Logger:  logger,
	}

	// Plan history.
	if cfg.Store.Path != "" {
		plans, err := store.New(cfg.Store.Path)
		if err != nil {
			logger.Error("failed to open plan store", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		defer plans.Close()
		deps.Store = plans
	}

	logger.Info("ready", "elapsed", time.Since(start).Round(time.Millisecond))

	// Setup HTTP server.
	srvCfg := api.ConfigFrom(cfg.HTTP)
	srv := api.NewServer(srvCfg, api.NewHandlers(deps))

	if err := api.ListenAndServe(srv, srvCfg.ShutdownTimeout, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
