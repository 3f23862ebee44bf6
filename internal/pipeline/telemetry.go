package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yourorg/f1etl/internal/provider"
	"github.com/yourorg/f1etl/internal/table"
	"github.com/yourorg/f1etl/pkg/types"
)

// carDataColumns is the provider-side telemetry schema after distance is added.
var carDataColumns = []string{"Date", "SessionTime", "Time", "RPM", "Speed", "Gear", "Throttle", "Brake", "DRS", "Distance"}

// OutputRenames maps provider telemetry columns to their output names.
var OutputRenames = map[string]string{
	"Speed":    "Speed_kph",
	"Throttle": "Throttle_pct",
	"Brake":    "Brake_pct",
	"Gear":     "Gear_num",
	"Distance": "Distance_m",
}

// AddDistance integrates speed over time within one lap and returns the
// distance covered in metres at each sample. The first interval runs from
// the lap start to the first sample.
func AddDistance(samples []types.Sample) []float64 {
	out := make([]float64, len(samples))
	var total float64
	for i, s := range samples {
		dt := s.Time
		if i > 0 {
			dt = s.Time - samples[i-1].Time
		}
		total += s.Speed / 3.6 * dt.Seconds()
		out[i] = total
	}
	return out
}

// lapTelemetry is one lap's samples as a tagged frame plus its TimeSeconds values.
type lapTelemetry struct {
	frame       *table.Frame
	timeSeconds []string
	speeds      []float64
}

func buildLapTelemetry(lap types.Lap, samples []types.Sample, start types.StartTime) (*lapTelemetry, error) {
	f := table.New(carDataColumns...)
	distance := AddDistance(samples)
	out := &lapTelemetry{frame: f}
	for i, s := range samples {
		err := f.Append(
			table.Date(s.Date),
			table.Float(s.SessionTime.Seconds()),
			table.Float(s.Time.Seconds()),
			strconv.Itoa(s.RPM),
			table.Float(s.Speed),
			strconv.Itoa(s.Gear),
			table.Float(s.Throttle),
			table.Float(s.Brake),
			strconv.Itoa(s.DRS),
			table.Float(distance[i]),
		)
		if err != nil {
			return nil, err
		}
		out.timeSeconds = append(out.timeSeconds, table.Float(start.SecondsSinceStart(s.Date, s.SessionTime)))
		out.speeds = append(out.speeds, s.Speed)
	}
	tags := []struct{ col, val string }{
		{"Driver", lap.Driver},
		{"LapNumber", strconv.Itoa(lap.LapNumber)},
		{"Stint", table.Int(lap.Stint, true)},
		{"TyreCompound", lap.Compound},
	}
	for _, tag := range tags {
		if err := f.Fill(tag.col, tag.val); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// driverTelemetry is a driver's full telemetry table ready to be written.
type driverTelemetry struct {
	frame  *table.Frame
	speeds []float64
}

// buildDriverTelemetry concatenates the tagged telemetry of laps in lap
// order, adds TimeSeconds and applies the output column names.
func buildDriverTelemetry(ctx context.Context, sess *provider.Session, laps []types.Lap) (*driverTelemetry, error) {
	frames := make([]*table.Frame, 0, len(laps))
	var timeSeconds []string
	var speeds []float64
	for _, lap := range laps {
		samples, err := sess.CarData(ctx, lap)
		if err != nil {
			return nil, fmt.Errorf("lap %d: %w", lap.LapNumber, err)
		}
		lt, err := buildLapTelemetry(lap, samples, sess.Info.Start)
		if err != nil {
			return nil, fmt.Errorf("lap %d: %w", lap.LapNumber, err)
		}
		frames = append(frames, lt.frame)
		timeSeconds = append(timeSeconds, lt.timeSeconds...)
		speeds = append(speeds, lt.speeds...)
	}

	full, err := table.Concat(frames...)
	if err != nil {
		return nil, err
	}
	if err := full.SetColumn("TimeSeconds", timeSeconds); err != nil {
		return nil, err
	}
	full.Rename(OutputRenames)
	return &driverTelemetry{frame: full, speeds: speeds}, nil
}
