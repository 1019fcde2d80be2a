package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttr_router/pkg/graph"
)

func buildCityGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(
		[]graph.Place{
			{Name: "Paris", Lat: 48.8566, Lon: 2.3522},
			{Name: "London", Lat: 51.5074, Lon: -0.1278},
			{Name: "Berlin", Lat: 52.5200, Lon: 13.4050},
			{Name: "Bruxelles", Lat: 50.8503, Lon: 4.3517},
		},
		[]graph.Edge{{From: "Paris", To: "Bruxelles", Weight: 2}},
	)
	require.NoError(t, err)
	return g
}

func TestLocatorNearest(t *testing.T) {
	l := NewLocator(buildCityGraph(t), 0)
	require.Equal(t, 4, l.Len())

	tests := []struct {
		name     string
		lat, lng float64
		want     string
	}{
		{"exact", 52.5200, 13.4050, "Berlin"},
		{"near Paris", 48.90, 2.40, "Paris"},
		{"Lille leans to Bruxelles", 50.63, 3.06, "Bruxelles"},
		{"Channel, closer to London", 51.10, 0.20, "London"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.Nearest(tt.lat, tt.lng)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Place)
			assert.GreaterOrEqual(t, res.Dist, 0.0)
			assert.LessOrEqual(t, res.Dist, DefaultMaxSnapMeters)
		})
	}
}

func TestLocatorTooFar(t *testing.T) {
	l := NewLocator(buildCityGraph(t), 50_000)

	_, err := l.Nearest(40.4168, -3.7038)
	assert.ErrorIs(t, err, ErrPointTooFar, "Madrid")
}

func TestLocatorEmpty(t *testing.T) {
	g, err := graph.Build(nil, nil)
	require.NoError(t, err)

	_, err = NewLocator(g, 0).Nearest(0, 0)
	assert.ErrorIs(t, err, ErrPointTooFar)
}
