package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/f1etl/pkg/types"
)

const relativeSession = `
session:
  year: 2025
  event: Hungarian Grand Prix
  kind: race
  start_offset: 55m
drivers:
  - {number: 4, code: NOR}
  - {number: 55, code: SAI}
laps:
  - driver: NOR
    driver_number: 4
    lap_number: 1
    stint: 1
    compound: MEDIUM
    start_time: 1h
    lap_time: 1m30.5s
    samples:
      - {session_time: 1h0m0.2s, speed: 120, gear: 3, throttle: 80}
      - {session_time: 1h0m1s, speed: 150, gear: 4, throttle: 100}
`

const absoluteSession = `
session:
  year: 2025
  event: Hungarian Grand Prix
  kind: R
  start: 2025-08-03T13:00:00Z
drivers:
  - {number: 4, code: NOR}
laps:
  - driver: NOR
    driver_number: 4
    lap_number: 1
    start_date: 2025-08-03T13:02:00Z
    samples:
      - {date: 2025-08-03T13:02:00.5Z, speed: 180}
      - {session_time: 2m1s, speed: 190}
weather:
  - {session_time: 30s, air_temperature: 30}
`

func writeSession(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileLoadRelativeStart(t *testing.T) {
	p := &File{Path: writeSession(t, relativeSession)}
	sess, err := p.Load(context.Background(), hungary)
	require.NoError(t, err)

	assert.False(t, sess.Info.Start.IsAbsolute())
	assert.Equal(t, 55*time.Minute, sess.Info.Start.Offset())
	assert.Equal(t, "Race", sess.Info.Name)
	require.Len(t, sess.Drivers, 2)
	assert.Empty(t, sess.PickDriver("SAI"))

	laps := sess.PickDriver("NOR")
	require.Len(t, laps, 1)
	samples, err := sess.CarData(context.Background(), laps[0])
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 200*time.Millisecond, samples[0].Time)
	assert.Equal(t, time.Second, samples[1].Time)
	assert.True(t, samples[0].Date.IsZero())
}

func TestFileLoadAbsoluteStart(t *testing.T) {
	p := &File{Path: writeSession(t, absoluteSession)}
	sess, err := p.Load(context.Background(), hungary)
	require.NoError(t, err)

	assert.True(t, sess.Info.Start.IsAbsolute())
	laps := sess.PickDriver("NOR")
	require.Len(t, laps, 1)
	require.NotNil(t, laps[0].StartTime)
	assert.Equal(t, 2*time.Minute, *laps[0].StartTime)

	samples, err := sess.CarData(context.Background(), laps[0])
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 2*time.Minute+500*time.Millisecond, samples[0].SessionTime)
	assert.Equal(t, 500*time.Millisecond, samples[0].Time)
	assert.Equal(t, time.Date(2025, 8, 3, 13, 2, 1, 0, time.UTC), samples[1].Date)
	assert.Equal(t, time.Second, samples[1].Time)

	require.Len(t, sess.Weather, 1)
	assert.Equal(t, time.Date(2025, 8, 3, 13, 0, 30, 0, time.UTC), sess.Weather[0].Date)
}

func TestFileLoadWrongSession(t *testing.T) {
	p := &File{Path: writeSession(t, absoluteSession)}
	_, err := p.Load(context.Background(), types.SessionRef{Year: 2024, Event: "Hungarian Grand Prix", Kind: types.KindRace})
	assert.True(t, errors.Is(err, ErrSessionNotFound), "got %v", err)

	_, err = (&File{Path: filepath.Join(t.TempDir(), "missing.yaml")}).Load(context.Background(), hungary)
	assert.Error(t, err)
}
