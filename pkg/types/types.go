package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionKind is the kind of session within a race weekend.
type SessionKind string

const (
	KindRace             SessionKind = "R"
	KindQualifying       SessionKind = "Q"
	KindPractice1        SessionKind = "FP1"
	KindPractice2        SessionKind = "FP2"
	KindPractice3        SessionKind = "FP3"
	KindSprint           SessionKind = "S"
	KindSprintQualifying SessionKind = "SQ"
	KindSprintShootout   SessionKind = "SS"
)

var kindNames = map[SessionKind]string{
	KindRace:             "Race",
	KindQualifying:       "Qualifying",
	KindPractice1:        "Practice 1",
	KindPractice2:        "Practice 2",
	KindPractice3:        "Practice 3",
	KindSprint:           "Sprint",
	KindSprintQualifying: "Sprint Qualifying",
	KindSprintShootout:   "Sprint Shootout",
}

// Name returns the long session name, e.g. "Practice 1".
func (k SessionKind) Name() string {
	return kindNames[k]
}

// ParseSessionKind accepts a short code ("R", "fp2") or a long name ("Race", "practice 2").
func ParseSessionKind(s string) (SessionKind, error) {
	v := strings.TrimSpace(s)
	for k, name := range kindNames {
		if strings.EqualFold(v, string(k)) || strings.EqualFold(v, name) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown session kind %q", s)
}

// SessionRef identifies a session by year, event name and kind.
type SessionRef struct {
	Year  int         `json:"year" yaml:"year"`
	Event string      `json:"event" yaml:"event"`
	Kind  SessionKind `json:"kind" yaml:"kind"`
}

// Slug is the filesystem-safe identifier used for output directories.
func (r SessionRef) Slug() string {
	return strconv.Itoa(r.Year) + "_" + strings.ReplaceAll(r.Event, " ", "_")
}

func (r SessionRef) String() string {
	return fmt.Sprintf("%d %s %s", r.Year, r.Event, r.Kind)
}

// StartTime is the session start, either an absolute instant or an offset.
// The variant is fixed when the session is loaded.
type StartTime struct {
	absolute bool
	at       time.Time
	epoch    float64
	offset   time.Duration
}

// AbsoluteStart builds a start time from a wall-clock instant.
func AbsoluteStart(t time.Time) StartTime {
	return StartTime{absolute: true, at: t, epoch: EpochSeconds(t)}
}

// RelativeStart builds a start time that is itself a duration.
func RelativeStart(d time.Duration) StartTime {
	return StartTime{offset: d}
}

func (s StartTime) IsAbsolute() bool { return s.absolute }

// Epoch returns the start as unix seconds. Zero for relative starts.
func (s StartTime) Epoch() float64 { return s.epoch }

// Offset returns the start offset. Zero for absolute starts.
func (s StartTime) Offset() time.Duration { return s.offset }

// SecondsSinceStart returns the sample's time relative to session start.
// Absolute starts subtract the start instant from the sample date; relative
// starts subtract the start offset from the sample's session time.
func (s StartTime) SecondsSinceStart(date time.Time, sessionTime time.Duration) float64 {
	if s.absolute {
		return date.Sub(s.at).Seconds()
	}
	return (sessionTime - s.offset).Seconds()
}

// EpochSeconds converts t to fractional unix seconds.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// Driver is one participant in a session.
type Driver struct {
	Number   int    `json:"number" yaml:"number"`
	Code     string `json:"code" yaml:"code"`
	FullName string `json:"full_name,omitempty" yaml:"full_name"`
	Team     string `json:"team,omitempty" yaml:"team"`
}

// Lap is one lap driven by one driver.
type Lap struct {
	DriverNumber int            `json:"driver_number"`
	Driver       string         `json:"driver"`
	LapNumber    int            `json:"lap_number"`
	Stint        int            `json:"stint"`
	Compound     string         `json:"compound"`
	TyreLife     int            `json:"tyre_life"`
	StartDate    time.Time      `json:"start_date"`
	StartTime    *time.Duration `json:"start_time,omitempty"`
	LapTime      *time.Duration `json:"lap_time,omitempty"`
	Sector1Time  *time.Duration `json:"sector1_time,omitempty"`
	Sector2Time  *time.Duration `json:"sector2_time,omitempty"`
	Sector3Time  *time.Duration `json:"sector3_time,omitempty"`
	SpeedI1      *float64       `json:"speed_i1,omitempty"`
	SpeedI2      *float64       `json:"speed_i2,omitempty"`
	SpeedST      *float64       `json:"speed_st,omitempty"`
	IsPitOutLap  bool           `json:"is_pit_out_lap"`
}

// Sample is one car telemetry reading.
type Sample struct {
	Date        time.Time     `json:"date"`
	SessionTime time.Duration `json:"session_time"`
	Time        time.Duration `json:"time"`
	RPM         int           `json:"rpm"`
	Speed       float64       `json:"speed"`
	Gear        int           `json:"gear"`
	Throttle    float64       `json:"throttle"`
	Brake       float64       `json:"brake"`
	DRS         int           `json:"drs"`
}

// WeatherSample is one track weather reading.
type WeatherSample struct {
	Date          time.Time     `json:"date"`
	SessionTime   time.Duration `json:"session_time"`
	AirTemp       float64       `json:"air_temperature"`
	TrackTemp     float64       `json:"track_temperature"`
	Humidity      float64       `json:"humidity"`
	Pressure      float64       `json:"pressure"`
	Rainfall      bool          `json:"rainfall"`
	WindDirection int           `json:"wind_direction"`
	WindSpeed     float64       `json:"wind_speed"`
}
