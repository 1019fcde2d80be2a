package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, SourceEmbedded, cfg.Map.Source)
	assert.Equal(t, 150.0, cfg.Map.SnapMax)
	assert.Equal(t, "preceding", cfg.Planner.Sweep)
	assert.Equal(t, 1, cfg.Planner.Workers)
	assert.Equal(t, 45, cfg.Planner.Budget)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "2s")
	t.Setenv("MAP_SOURCE", "OSM")
	t.Setenv("MAP_PATH", "/data/board.osm")
	t.Setenv("PLANNER_SWEEP", "all-pairs")
	t.Setenv("PLANNER_WORKERS", "4")
	t.Setenv("TRAIN_BUDGET", "60")
	t.Setenv("SNAP_MAX_KM", "25")
	t.Setenv("LOG_INCLUDE_CALLER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 2*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, SourceOSM, cfg.Map.Source)
	assert.Equal(t, "/data/board.osm", cfg.Map.Path)
	assert.Equal(t, "all-pairs", cfg.Planner.Sweep)
	assert.Equal(t, 4, cfg.Planner.Workers)
	assert.Equal(t, 60, cfg.Planner.Budget)
	assert.Equal(t, 25.0, cfg.Map.SnapMax)
	assert.True(t, cfg.Logging.IncludeCaller)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"port not a number", map[string]string{"SERVER_PORT": "http"}},
		{"bad duration", map[string]string{"SERVER_WRITE_TIMEOUT": "soon"}},
		{"unknown source", map[string]string{"MAP_SOURCE": "s3"}},
		{"binary without path", map[string]string{"MAP_SOURCE": "binary"}},
		{"neo4j without uri", map[string]string{"MAP_SOURCE": "neo4j"}},
		{"zero budget", map[string]string{"TRAIN_BUDGET": "0"}},
		{"negative snap", map[string]string{"SNAP_MAX_KM": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
