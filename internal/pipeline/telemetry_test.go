package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/f1etl/pkg/types"
)

func TestAddDistance(t *testing.T) {
	samples := []types.Sample{
		{Time: 500 * time.Millisecond, Speed: 36},
		{Time: 1500 * time.Millisecond, Speed: 72},
		{Time: 2 * time.Second, Speed: 0},
	}
	got := AddDistance(samples)
	require.Len(t, got, 3)
	assert.InDelta(t, 5.0, got[0], 1e-9)
	assert.InDelta(t, 25.0, got[1], 1e-9)
	assert.InDelta(t, 25.0, got[2], 1e-9)
	assert.Empty(t, AddDistance(nil))
}

func TestBuildLapTelemetryTagsEveryRow(t *testing.T) {
	lap := types.Lap{Driver: "VER", LapNumber: 12, Stint: 2, Compound: "HARD"}
	samples := []types.Sample{
		{Date: sessionStart.Add(time.Minute), SessionTime: time.Minute, Speed: 100},
		{Date: sessionStart.Add(time.Minute + time.Second), SessionTime: time.Minute + time.Second, Speed: 110},
	}
	lt, err := buildLapTelemetry(lap, samples, types.AbsoluteStart(sessionStart))
	require.NoError(t, err)
	assert.Equal(t, []string{"60", "61"}, lt.timeSeconds)
	assert.Equal(t, []float64{100, 110}, lt.speeds)

	for col, want := range map[string]string{"Driver": "VER", "LapNumber": "12", "Stint": "2", "TyreCompound": "HARD"} {
		cells, ok := lt.frame.Column(col)
		require.True(t, ok, col)
		assert.Equal(t, []string{want, want}, cells, col)
	}
}

func TestBuildLapTelemetryWithoutSamples(t *testing.T) {
	lt, err := buildLapTelemetry(types.Lap{Driver: "VER", LapNumber: 1}, nil, types.RelativeStart(0))
	require.NoError(t, err)
	assert.Equal(t, 0, lt.frame.Len())
	assert.Contains(t, lt.frame.Columns, "Driver")
}
