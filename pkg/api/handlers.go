package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"ttr_router/pkg/geo"
	"ttr_router/pkg/graph"
	"ttr_router/pkg/mapdata"
	"ttr_router/pkg/routing"
	"ttr_router/pkg/store"
	"ttr_router/pkg/ticket"
)

const (
	maxRequestBytes  = 64 << 10
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PlanStore persists planning results. *store.Store satisfies it.
type PlanStore interface {
	Save(ctx context.Context, p *store.Plan) (*store.Plan, error)
	Get(ctx context.Context, id string) (*store.Plan, error)
	List(ctx context.Context, limit, offset int) ([]store.Plan, int, error)
	Delete(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators of the handlers. Locator and Store are optional.
type Deps struct {
	Planner routing.Planner
	Board   *mapdata.Map
	Locator *routing.Locator
	Store   PlanStore
	Budget  int
	Sweep   string
	Logger  *slog.Logger
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	Deps
	stats StatsResponse
}

// NewHandlers creates handlers for the given board and planner.
func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Budget <= 0 {
		d.Budget = mapdata.Budget
	}
	g := d.Board.Graph
	stats := StatsResponse{
		NumPlaces:      g.NumNodes,
		NumConnections: g.NumEdges,
		NumRegions:     len(d.Board.Regions),
		Components:     len(graph.Components(g)),
		Budget:         d.Budget,
		Sweep:          d.Sweep,
	}
	if len(d.Board.Regions) > 0 {
		stats.HomeRegion = d.Board.Regions[0].Name
	}
	return &Handlers{Deps: d, stats: stats}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	// Enforce Content-Type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
		return
	}

	// Parse request.
	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
		return
	}

	// Collect required places: tickets first, then loose places.
	hand := ticket.NewHand(h.Board.Graph)
	for i, raw := range req.Tickets {
		if _, err := hand.Add(raw); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{
				Error:  "invalid_ticket",
				Field:  fmt.Sprintf("tickets[%d]", i),
				Detail: err.Error(),
			})
			return
		}
	}
	required := hand.Required()
	extra := make(map[string]int)
	for i, p := range req.Places {
		if !h.Board.Graph.HasPlace(p) {
			writeError(w, http.StatusBadRequest, ErrorResponse{
				Error: "unknown_place",
				Field: fmt.Sprintf("places[%d]", i),
			})
			return
		}
		required = append(required, p)
		extra[p]++
	}
	if len(required) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "no_places"})
		return
	}

	// Plan.
	route, err := h.Planner.Plan(r.Context(), required)
	if err != nil {
		switch {
		case errors.Is(err, graph.ErrUnknownPlace):
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: "unknown_place", Detail: err.Error()})
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: "request_timeout"})
		default:
			h.Logger.Error("plan route", "error", err)
			writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		}
		return
	}

	// Build response.
	resp := RouteResponse{
		Regions:      route.Regions,
		PrunedPlaces: route.PrunedPlaces,
		PrunedEdges:  route.PrunedEdges,
		Legs:         make([]LegJSON, 0, len(route.Legs)),
		TrainsNeeded: route.Distance,
		Budget:       h.Budget,
		OverBudget:   int(route.Distance) > h.Budget,
		Display:      fmt.Sprintf("%d / %d", route.Distance, h.Budget),
	}
	for _, p := range route.Required {
		n := hand.Multiplicity(p) + extra[p]
		resp.Required = append(resp.Required, RequiredJSON{Place: p, Count: n, Tier: ticket.TierOf(n).String()})
	}
	for _, leg := range route.Legs {
		resp.Legs = append(resp.Legs, LegJSON{From: leg.Start, To: leg.End, Trains: leg.Distance, Path: leg.Path})
	}
	resp.Connections = connections(route)

	if h.Store != nil {
		saved, err := h.Store.Save(r.Context(), toPlan(req, route, h.Budget, h.Sweep))
		if err != nil {
			h.Logger.Warn("save plan", "error", err)
		} else {
			resp.PlanID = saved.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandlePlaces handles GET /api/v1/places.
func (h *Handlers) HandlePlaces(w http.ResponseWriter, r *http.Request) {
	resp := PlacesResponse{Places: make([]PlaceJSON, 0, h.Board.Graph.NumNodes)}
	for _, p := range h.Board.Places() {
		pj := PlaceJSON{Name: p.Name, Lat: p.Lat, Lng: p.Lon}
		if i := h.Board.Regions.Of(p.Name); i >= 0 {
			pj.Region = h.Board.Regions[i].Name
		}
		resp.Places = append(resp.Places, pj)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleNearest handles GET /api/v1/places/nearest?lat=..&lng=..
func (h *Handlers) HandleNearest(w http.ResponseWriter, r *http.Request) {
	if h.Locator == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "not_available"})
		return
	}
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil || !geo.ValidCoord(lat, lng) {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_coordinates"})
		return
	}

	res, err := h.Locator.Nearest(lat, lng)
	if err != nil {
		if errors.Is(err, routing.ErrPointTooFar) {
			writeError(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "point_too_far_from_place"})
			return
		}
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, NearestResponse{
		Place:          res.Place,
		Lat:            res.Lat,
		Lng:            res.Lng,
		DistanceMeters: res.Dist,
	})
}

// HandleGetPlan handles GET /api/v1/plans/{id}.
func (h *Handlers) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "history_disabled"})
		return
	}
	p, err := h.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrorResponse{Error: "plan_not_found"})
			return
		}
		h.Logger.Error("get plan", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, planJSON(p))
}

// HandleDeletePlan handles DELETE /api/v1/plans/{id}.
func (h *Handlers) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "history_disabled"})
		return
	}
	if err := h.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrorResponse{Error: "plan_not_found"})
			return
		}
		h.Logger.Error("delete plan", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListPlans handles GET /api/v1/plans?limit=..&offset=..
func (h *Handlers) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "history_disabled"})
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit <= 0 || limit > maxPageLimit {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Field: "limit"})
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Field: "offset"})
		return
	}

	plans, total, err := h.Store.List(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("list plans", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		return
	}
	resp := PlanListResponse{Plans: make([]PlanJSON, 0, len(plans)), Total: total, Limit: limit, Offset: offset}
	for i := range plans {
		resp.Plans = append(resp.Plans, planJSON(&plans[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "disabled"}
	if h.Store != nil {
		resp.Store = "ok"
		if err := h.Store.HealthCheck(r.Context()); err != nil {
			resp.Store = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func connections(route *routing.Route) []ConnectionJSON {
	out := make([]ConnectionJSON, 0, len(route.Edges))
	for _, k := range route.SortedEdges() {
		out = append(out, ConnectionJSON{
			From:    k.A,
			To:      k.B,
			Trains:  route.Edges[k],
			Overlay: mapdata.OverlayName(k),
		})
	}
	return out
}

func toPlan(req RouteRequest, route *routing.Route, budget int, sweep string) *store.Plan {
	p := &store.Plan{
		Tickets:  req.Tickets,
		Required: route.Required,
		Sweep:    sweep,
		Distance: route.Distance,
		Budget:   budget,
	}
	for _, k := range route.SortedEdges() {
		p.Edges = append(p.Edges, store.Edge{From: k.A, To: k.B, Trains: route.Edges[k]})
	}
	return p
}

func planJSON(p *store.Plan) PlanJSON {
	pj := PlanJSON{
		ID:           p.ID,
		CreatedAt:    p.CreatedAt,
		Tickets:      p.Tickets,
		Required:     p.Required,
		Sweep:        p.Sweep,
		TrainsNeeded: p.Distance,
		Budget:       p.Budget,
	}
	for _, e := range p.Edges {
		k := graph.EdgeKey{A: e.From, B: e.To}
		pj.Connections = append(pj.Connections, ConnectionJSON{
			From:    e.From,
			To:      e.To,
			Trains:  e.Trains,
			Overlay: mapdata.OverlayName(k),
		})
	}
	return pj
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
