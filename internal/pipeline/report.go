package pipeline

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yourorg/f1etl/pkg/types"
)

// Report summarizes one run.
type Report struct {
	RunID       string
	Ref         types.SessionRef
	Slug        string
	Status      string
	RawPath     string
	RawWritten  bool
	LapsPath    string
	WeatherPath string
	Outcomes    []types.DriverOutcome
}

// Count returns the number of outcomes with status.
func (r *Report) Count(status string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// lapStats fills best and mean lap time (seconds) and top speed.
func lapStats(o *types.DriverOutcome, laps []types.Lap, speeds []float64) {
	var times []float64
	for _, l := range laps {
		if l.LapTime != nil {
			times = append(times, l.LapTime.Seconds())
		}
	}
	if len(times) > 0 {
		o.BestLap = floats.Min(times)
		o.MeanLap = stat.Mean(times, nil)
	}
	if len(speeds) > 0 {
		o.MaxSpeed = floats.Max(speeds)
	}
}
