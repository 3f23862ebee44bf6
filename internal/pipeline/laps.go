package pipeline

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yourorg/f1etl/internal/table"
	"github.com/yourorg/f1etl/pkg/types"
)

var lapColumns = []string{
	"Driver", "DriverNumber", "LapNumber", "LapTime", "Stint", "Compound", "TyreLife",
	"LapStartDate", "LapStartTime", "Sector1Time", "Sector2Time", "Sector3Time",
	"SpeedI1", "SpeedI2", "SpeedST", "IsPitOutLap",
}

// durationColumns hold Go duration strings in the raw lap table.
var durationColumns = []string{"LapTime", "LapStartTime", "Sector1Time", "Sector2Time", "Sector3Time"}

// LapFrame renders laps in the provider's native lap schema, durations as
// duration strings.
func LapFrame(laps []types.Lap) (*table.Frame, error) {
	f := table.New(lapColumns...)
	for _, l := range laps {
		err := f.Append(
			l.Driver,
			strconv.Itoa(l.DriverNumber),
			strconv.Itoa(l.LapNumber),
			table.Duration(l.LapTime),
			table.Int(l.Stint, true),
			l.Compound,
			table.Int(l.TyreLife, true),
			table.Date(l.StartDate),
			table.Duration(l.StartTime),
			table.Duration(l.Sector1Time),
			table.Duration(l.Sector2Time),
			table.Duration(l.Sector3Time),
			table.OptFloat(l.SpeedI1),
			table.OptFloat(l.SpeedI2),
			table.OptFloat(l.SpeedST),
			strconv.FormatBool(l.IsPitOutLap),
		)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// NormalizeLaps returns a copy of a raw lap table with every duration column
// expressed in seconds. Empty cells stay empty; a missing LapTime column is
// added empty.
func NormalizeLaps(raw *table.Frame) (*table.Frame, error) {
	out := raw.Copy()
	if _, ok := out.Column("LapTime"); !ok {
		if err := out.Fill("LapTime", ""); err != nil {
			return nil, err
		}
	}
	for _, col := range durationColumns {
		cells, ok := out.Column(col)
		if !ok {
			continue
		}
		for i, c := range cells {
			if c == "" {
				continue
			}
			d, err := time.ParseDuration(c)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", col, i+1, err)
			}
			cells[i] = table.Seconds(&d)
		}
		if err := out.SetColumn(col, cells); err != nil {
			return nil, err
		}
	}
	return out, nil
}
