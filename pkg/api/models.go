package api

import "time"

// RouteRequest is the JSON body for POST /api/v1/route. Tickets and places
// may be combined; ticket places come first.
type RouteRequest struct {
	Tickets []string `json:"tickets,omitempty"` // "{place1} : {place2}"
	Places  []string `json:"places,omitempty"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	PlanID       string           `json:"plan_id,omitempty"`
	Required     []RequiredJSON   `json:"required"`
	Regions      []string         `json:"regions"`
	PrunedPlaces uint32           `json:"pruned_places"`
	PrunedEdges  uint32           `json:"pruned_connections"`
	Legs         []LegJSON        `json:"legs"`
	Connections  []ConnectionJSON `json:"connections"`
	TrainsNeeded uint32           `json:"trains_needed"`
	Budget       int              `json:"budget"`
	OverBudget   bool             `json:"over_budget"`
	Display      string           `json:"display"` // "17 / 45"
}

// RequiredJSON is a required place and how many tickets name it.
type RequiredJSON struct {
	Place string `json:"place"`
	Count int    `json:"count"`
	Tier  string `json:"tier"`
}

// LegJSON is one selected shortest path.
type LegJSON struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Trains uint32   `json:"trains"`
	Path   []string `json:"path"`
}

// ConnectionJSON is one connection of the combined route.
type ConnectionJSON struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Trains  uint32 `json:"trains"`
	Overlay string `json:"overlay"` // board overlay image name
}

// PlaceJSON is a place on the board.
type PlaceJSON struct {
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Region string  `json:"region,omitempty"`
}

// PlacesResponse is the JSON response for GET /api/v1/places.
type PlacesResponse struct {
	Places []PlaceJSON `json:"places"`
}

// NearestResponse is the JSON response for GET /api/v1/places/nearest.
type NearestResponse struct {
	Place          string  `json:"place"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DistanceMeters float64 `json:"distance_meters"`
}

// PlanJSON is a saved plan.
type PlanJSON struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Tickets      []string         `json:"tickets"`
	Required     []string         `json:"required"`
	Sweep        string           `json:"sweep"`
	Connections  []ConnectionJSON `json:"connections,omitempty"`
	TrainsNeeded uint32           `json:"trains_needed"`
	Budget       int              `json:"budget"`
}

// PlanListResponse is the JSON response for GET /api/v1/plans.
type PlanListResponse struct {
	Plans  []PlanJSON `json:"plans"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumPlaces      uint32 `json:"num_places"`
	NumConnections uint32 `json:"num_connections"`
	NumRegions     int    `json:"num_regions"`
	HomeRegion     string `json:"home_region"`
	Components     int    `json:"components"`
	Budget         int    `json:"budget"`
	Sweep          string `json:"sweep"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"` // ok, disabled, or unavailable
}
