// Package provider loads session data (drivers, laps, car telemetry and
// weather) from an external source.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/f1etl/pkg/types"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Provider resolves and loads one session.
type Provider interface {
	Load(ctx context.Context, ref types.SessionRef) (*Session, error)
}

// CarDataFunc returns the car telemetry samples recorded during lap, in time order.
type CarDataFunc func(ctx context.Context, lap types.Lap) ([]types.Sample, error)

// Info describes a loaded session.
type Info struct {
	Ref     types.SessionRef
	Key     int
	Name    string
	Circuit string
	Country string
	Start   types.StartTime
	End     time.Time
}

// Session is a loaded session. It is read-only once returned by a Provider.
type Session struct {
	Info    Info
	Drivers []types.Driver
	Laps    []types.Lap
	Weather []types.WeatherSample

	carData CarDataFunc
}

func NewSession(info Info, drivers []types.Driver, laps []types.Lap, weather []types.WeatherSample, carData CarDataFunc) *Session {
	return &Session{Info: info, Drivers: drivers, Laps: laps, Weather: weather, carData: carData}
}

// PickDriver returns the laps of one driver in session lap order.
func (s *Session) PickDriver(code string) []types.Lap {
	var out []types.Lap
	for _, l := range s.Laps {
		if l.Driver == code {
			out = append(out, l)
		}
	}
	return out
}

// CarData returns the telemetry samples of one lap.
func (s *Session) CarData(ctx context.Context, lap types.Lap) ([]types.Sample, error) {
	if s.carData == nil {
		return nil, nil
	}
	return s.carData(ctx, lap)
}
