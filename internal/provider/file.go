package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/f1etl/pkg/types"
)

// File loads a session from a YAML (or JSON) file, for offline runs and replays.
type File struct {
	Path string
}

type fileSession struct {
	Session struct {
		Year        int            `yaml:"year"`
		Event       string         `yaml:"event"`
		Kind        string         `yaml:"kind"`
		Name        string         `yaml:"name"`
		Circuit     string         `yaml:"circuit"`
		Country     string         `yaml:"country"`
		Start       *time.Time     `yaml:"start"`
		StartOffset *time.Duration `yaml:"start_offset"`
	} `yaml:"session"`
	Drivers []types.Driver `yaml:"drivers"`
	Laps    []fileLap      `yaml:"laps"`
	Weather []fileWeather  `yaml:"weather"`
}

type fileLap struct {
	Driver       string         `yaml:"driver"`
	DriverNumber int            `yaml:"driver_number"`
	LapNumber    int            `yaml:"lap_number"`
	Stint        int            `yaml:"stint"`
	Compound     string         `yaml:"compound"`
	TyreLife     int            `yaml:"tyre_life"`
	StartDate    time.Time      `yaml:"start_date"`
	StartTime    *time.Duration `yaml:"start_time"`
	LapTime      *time.Duration `yaml:"lap_time"`
	Sector1Time  *time.Duration `yaml:"sector1_time"`
	Sector2Time  *time.Duration `yaml:"sector2_time"`
	Sector3Time  *time.Duration `yaml:"sector3_time"`
	SpeedI1      *float64       `yaml:"speed_i1"`
	SpeedI2      *float64       `yaml:"speed_i2"`
	SpeedST      *float64       `yaml:"speed_st"`
	IsPitOutLap  bool           `yaml:"is_pit_out_lap"`
	Samples      []fileSample   `yaml:"samples"`
}

type fileSample struct {
	Date        time.Time     `yaml:"date"`
	SessionTime time.Duration `yaml:"session_time"`
	Time        time.Duration `yaml:"time"`
	RPM         int           `yaml:"rpm"`
	Speed       float64       `yaml:"speed"`
	Gear        int           `yaml:"gear"`
	Throttle    float64       `yaml:"throttle"`
	Brake       float64       `yaml:"brake"`
	DRS         int           `yaml:"drs"`
}

type fileWeather struct {
	Date          time.Time     `yaml:"date"`
	SessionTime   time.Duration `yaml:"session_time"`
	AirTemp       float64       `yaml:"air_temperature"`
	TrackTemp     float64       `yaml:"track_temperature"`
	Humidity      float64       `yaml:"humidity"`
	Pressure      float64       `yaml:"pressure"`
	Rainfall      bool          `yaml:"rainfall"`
	WindDirection int           `yaml:"wind_direction"`
	WindSpeed     float64       `yaml:"wind_speed"`
}

type lapKey struct {
	driver string
	lap    int
}

// Load reads the file. The ref must match the session recorded in it.
// A file with `start` gets an absolute start time; one with `start_offset`
// gets a relative one.
func (p *File) Load(_ context.Context, ref types.SessionRef) (*Session, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	var fs fileSession
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}

	kind, err := types.ParseSessionKind(fs.Session.Kind)
	if err != nil {
		return nil, fmt.Errorf("session file: %w", err)
	}
	if fs.Session.Year != ref.Year || !strings.EqualFold(fs.Session.Event, ref.Event) || kind != ref.Kind {
		return nil, fmt.Errorf("%w: %s not in %s", ErrSessionNotFound, ref, p.Path)
	}

	info := Info{Ref: ref, Name: fs.Session.Name, Circuit: fs.Session.Circuit, Country: fs.Session.Country}
	var startAt time.Time
	switch {
	case fs.Session.Start != nil:
		startAt = fs.Session.Start.UTC()
		info.Start = types.AbsoluteStart(startAt)
	case fs.Session.StartOffset != nil:
		info.Start = types.RelativeStart(*fs.Session.StartOffset)
	default:
		return nil, fmt.Errorf("session file: start or start_offset required")
	}
	if info.Name == "" {
		info.Name = kind.Name()
	}

	laps := make([]types.Lap, 0, len(fs.Laps))
	samples := make(map[lapKey][]types.Sample, len(fs.Laps))
	for _, fl := range fs.Laps {
		l := types.Lap{
			DriverNumber: fl.DriverNumber,
			Driver:       fl.Driver,
			LapNumber:    fl.LapNumber,
			Stint:        fl.Stint,
			Compound:     fl.Compound,
			TyreLife:     fl.TyreLife,
			StartDate:    fl.StartDate,
			StartTime:    fl.StartTime,
			LapTime:      fl.LapTime,
			Sector1Time:  fl.Sector1Time,
			Sector2Time:  fl.Sector2Time,
			Sector3Time:  fl.Sector3Time,
			SpeedI1:      fl.SpeedI1,
			SpeedI2:      fl.SpeedI2,
			SpeedST:      fl.SpeedST,
			IsPitOutLap:  fl.IsPitOutLap,
		}
		if l.StartDate.IsZero() && l.StartTime != nil && !startAt.IsZero() {
			l.StartDate = startAt.Add(*l.StartTime)
		}
		if l.StartTime == nil && !l.StartDate.IsZero() && !startAt.IsZero() {
			offset := l.StartDate.Sub(startAt)
			l.StartTime = &offset
		}
		laps = append(laps, l)

		ss := make([]types.Sample, 0, len(fl.Samples))
		for _, s := range fl.Samples {
			ss = append(ss, fileSampleToSample(s, l, startAt))
		}
		samples[lapKey{l.Driver, l.LapNumber}] = ss
	}

	weather := make([]types.WeatherSample, 0, len(fs.Weather))
	for _, w := range fs.Weather {
		ws := types.WeatherSample{
			Date:          w.Date,
			SessionTime:   w.SessionTime,
			AirTemp:       w.AirTemp,
			TrackTemp:     w.TrackTemp,
			Humidity:      w.Humidity,
			Pressure:      w.Pressure,
			Rainfall:      w.Rainfall,
			WindDirection: w.WindDirection,
			WindSpeed:     w.WindSpeed,
		}
		if ws.Date.IsZero() && !startAt.IsZero() {
			ws.Date = startAt.Add(ws.SessionTime)
		}
		weather = append(weather, ws)
	}

	carData := func(_ context.Context, l types.Lap) ([]types.Sample, error) {
		return samples[lapKey{l.Driver, l.LapNumber}], nil
	}
	return NewSession(info, fs.Drivers, laps, weather, carData), nil
}

// fileSampleToSample fills whichever of date, session time and lap time
// the file left out and can be derived.
func fileSampleToSample(s fileSample, l types.Lap, startAt time.Time) types.Sample {
	out := types.Sample{
		Date:        s.Date,
		SessionTime: s.SessionTime,
		Time:        s.Time,
		RPM:         s.RPM,
		Speed:       s.Speed,
		Gear:        s.Gear,
		Throttle:    s.Throttle,
		Brake:       s.Brake,
		DRS:         s.DRS,
	}
	if !startAt.IsZero() {
		if out.Date.IsZero() {
			out.Date = startAt.Add(out.SessionTime)
		} else if out.SessionTime == 0 {
			out.SessionTime = out.Date.Sub(startAt)
		}
	}
	if out.Time == 0 {
		switch {
		case l.StartTime != nil:
			out.Time = out.SessionTime - *l.StartTime
		case !l.StartDate.IsZero() && !out.Date.IsZero():
			out.Time = out.Date.Sub(l.StartDate)
		}
	}
	return out
}
