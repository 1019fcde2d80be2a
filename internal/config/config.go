package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Map     MapConfig
	Graph   GraphConfig
	Planner PlannerConfig
	Store   StoreConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxConcurrent   int
	CORSOrigin      string
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MapSource names where the board is loaded from.
type MapSource string

const (
	SourceEmbedded MapSource = "embedded"
	SourceOSM      MapSource = "osm"
	SourceBinary   MapSource = "binary"
	SourceNeo4j    MapSource = "neo4j"
)

// MapConfig selects the board.
type MapConfig struct {
	Source  MapSource
	Path    string  // OSM XML or binary snapshot; unused for embedded and neo4j
	SnapMax float64 // nearest-place search radius in km
}

// GraphConfig describes connectivity to the graph database holding a board.
type GraphConfig struct {
	URI      string
	Database string
	Username string
	Password string
}

// PlannerConfig tunes the route planner.
type PlannerConfig struct {
	Sweep   string
	Workers int
	Budget  int
}

// StoreConfig locates the plan history database. An empty path disables it.
type StoreConfig struct {
	Path string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxConcurrent   = 64
	defaultCORSOrigin      = "*"
	defaultSnapMaxKm       = 150.0
	defaultBudget          = 45
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			MaxConcurrent:   parseIntWithDefault("SERVER_MAX_CONCURRENT", defaultMaxConcurrent),
			CORSOrigin:      valueOrDefault("SERVER_CORS_ORIGIN", defaultCORSOrigin),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Map: MapConfig{
			Source:  MapSource(strings.ToLower(valueOrDefault("MAP_SOURCE", string(SourceEmbedded)))),
			Path:    os.Getenv("MAP_PATH"),
			SnapMax: defaultSnapMaxKm,
		},
		Graph: GraphConfig{
			URI:      os.Getenv("GRAPH_URI"),
			Database: valueOrDefault("GRAPH_DATABASE", ""),
			Username: os.Getenv("GRAPH_USERNAME"),
			Password: os.Getenv("GRAPH_PASSWORD"),
		},
		Planner: PlannerConfig{
			Sweep:   valueOrDefault("PLANNER_SWEEP", "preceding"),
			Workers: parseIntWithDefault("PLANNER_WORKERS", 1),
			Budget:  parseIntWithDefault("TRAIN_BUDGET", defaultBudget),
		},
		Store: StoreConfig{
			Path: os.Getenv("STORE_PATH"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	for key, dst := range map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     &cfg.HTTP.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &cfg.HTTP.WriteTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &cfg.HTTP.ShutdownTimeout,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("SNAP_MAX_KM"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil || km <= 0 {
			return Config{}, fmt.Errorf("invalid SNAP_MAX_KM value %q", v)
		}
		cfg.Map.SnapMax = km
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Map.Source {
	case SourceEmbedded, SourceNeo4j:
	case SourceOSM, SourceBinary:
		if c.Map.Path == "" {
			return fmt.Errorf("MAP_PATH is required for MAP_SOURCE=%s", c.Map.Source)
		}
	default:
		return fmt.Errorf("unknown MAP_SOURCE %q", c.Map.Source)
	}
	if c.Map.Source == SourceNeo4j && c.Graph.URI == "" {
		return fmt.Errorf("GRAPH_URI is required for MAP_SOURCE=neo4j")
	}
	if c.Planner.Budget <= 0 {
		return fmt.Errorf("TRAIN_BUDGET must be positive, got %d", c.Planner.Budget)
	}
	if c.HTTP.MaxConcurrent <= 0 {
		return fmt.Errorf("SERVER_MAX_CONCURRENT must be positive, got %d", c.HTTP.MaxConcurrent)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
