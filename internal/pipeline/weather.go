package pipeline

import (
	"strconv"

	"github.com/yourorg/f1etl/internal/table"
	"github.com/yourorg/f1etl/pkg/types"
)

// WeatherFrame renders weather samples with TimeSeconds from session start.
func WeatherFrame(samples []types.WeatherSample, start types.StartTime) (*table.Frame, error) {
	f := table.New("Date", "SessionTime", "AirTemp", "TrackTemp", "Humidity", "Pressure", "Rainfall", "WindDirection", "WindSpeed", "TimeSeconds")
	for _, w := range samples {
		err := f.Append(
			table.Date(w.Date),
			table.Float(w.SessionTime.Seconds()),
			table.Float(w.AirTemp),
			table.Float(w.TrackTemp),
			table.Float(w.Humidity),
			table.Float(w.Pressure),
			strconv.FormatBool(w.Rainfall),
			strconv.Itoa(w.WindDirection),
			table.Float(w.WindSpeed),
			table.Float(start.SecondsSinceStart(w.Date, w.SessionTime)),
		)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}
