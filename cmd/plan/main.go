package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"ttr_router/internal/config"
	"ttr_router/internal/logging"
	"ttr_router/pkg/mapdata"
	"ttr_router/pkg/routing"
	"ttr_router/pkg/ticket"
)

func main() {
	tickets := flag.String("tickets", "", "File with one \"A : B\" ticket per line (- = stdin)")
	places := flag.String("places", "", "Comma-separated required places, used instead of tickets")
	board := flag.String("board", "", "Board snapshot (.bin) or .osm file (empty = embedded Europe board)")
	sweep := flag.String("sweep", "preceding", "Leg selection: preceding or all-pairs")
	workers := flag.Int("workers", 1, "Parallel leg searches")
	budget := flag.Int("budget", mapdata.Budget, "Trains available")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)

	if *tickets == "" && *places == "" {
		fmt.Fprintln(os.Stderr, "Usage: plan --tickets hand.txt | --places Paris,Wien [--sweep all-pairs] [--workers 4]")
		os.Exit(1)
	}

	ctx := context.Background()
	m, err := mapdata.Load(ctx, boardSource(*board))
	if err != nil {
		logger.Error("failed to load board", "error", err)
		os.Exit(1)
	}

	required, entries, err := requiredPlaces(m, *tickets, *places)
	if err != nil {
		logger.Error("invalid input", "error", err)
		os.Exit(1)
	}

	s, err := routing.ParseSweep(*sweep)
	if err != nil {
		logger.Error("invalid sweep", "error", err)
		os.Exit(1)
	}
	engine := routing.NewEngine(m.Graph, m.Regions,
		routing.WithSweep(s),
		routing.WithWorkers(*workers),
		routing.WithLogger(logger))

	start := time.Now()
	route, err := engine.Plan(ctx, required)
	if err != nil {
		logger.Error("planning failed", "error", err)
		os.Exit(1)
	}
	logger.Debug("planned", "elapsed", time.Since(start).Round(time.Microsecond))

	printRoute(os.Stdout, entries, route, *budget)
}

func boardSource(path string) mapdata.Source {
	switch {
	case path == "":
		return mapdata.Source{Kind: mapdata.KindEmbedded}
	case strings.HasSuffix(path, ".osm"):
		return mapdata.Source{Kind: mapdata.KindOSM, Path: path}
	}
	return mapdata.Source{Kind: mapdata.KindBinary, Path: path}
}

// requiredPlaces builds the place list from either a ticket file or an
// explicit list.
func requiredPlaces(m *mapdata.Map, ticketPath, placeList string) ([]string, []ticket.Entry, error) {
	if placeList != "" {
		var (
			required []string
			counts   = make(map[string]int)
		)
		for p := range strings.SplitSeq(placeList, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !m.Graph.HasPlace(p) {
				return nil, nil, fmt.Errorf("%w: %q", ticket.ErrUnknownPlace, p)
			}
			if counts[p] == 0 {
				required = append(required, p)
			}
			counts[p]++
		}
		entries := make([]ticket.Entry, 0, len(required))
		for _, p := range required {
			entries = append(entries, ticket.Entry{Place: p, Count: counts[p], Tier: ticket.TierOf(counts[p])})
		}
		return required, entries, nil
	}

	var r io.Reader = os.Stdin
	if ticketPath != "-" {
		f, err := os.Open(ticketPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open tickets: %w", err)
		}
		defer f.Close()
		r = f
	}
	hand, err := ticket.ReadHand(r, m.Graph)
	if err != nil {
		return nil, nil, err
	}
	return hand.Required(), hand.Entries(), nil
}

func printRoute(w io.Writer, entries []ticket.Entry, route *routing.Route, budget int) {
	fmt.Fprintln(w, "Required Places:")
	for _, e := range entries {
		fmt.Fprintf(w, "  %-16s %d (%s)\n", e.Place, e.Count, e.Tier)
	}
	if len(route.Regions) > 0 {
		fmt.Fprintf(w, "Regions: %s\n", strings.Join(route.Regions, ", "))
	}

	fmt.Fprintln(w, "Connections:")
	for _, k := range route.SortedEdges() {
		fmt.Fprintf(w, "  %s - %s (%d)\n", k.A, k.B, route.Edges[k])
	}

	fmt.Fprintf(w, "Trains Needed: %d / %d\n", route.Distance, budget)
	if int(route.Distance) > budget {
		fmt.Fprintf(w, "Over budget by %d trains\n", int(route.Distance)-budget)
	}
}
