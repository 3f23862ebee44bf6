package provider

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/f1etl/pkg/types"
)

// OpenF1 loads sessions from the OpenF1 API.
type OpenF1 struct {
	Client *Client
}

type meeting struct {
	Key          int    `json:"meeting_key"`
	Name         string `json:"meeting_name"`
	OfficialName string `json:"meeting_official_name"`
	Location     string `json:"location"`
	CountryName  string `json:"country_name"`
	Circuit      string `json:"circuit_short_name"`
	DateStart    string `json:"date_start"`
	Year         int    `json:"year"`
}

type session struct {
	Key        int    `json:"session_key"`
	Name       string `json:"session_name"`
	Type       string `json:"session_type"`
	MeetingKey int    `json:"meeting_key"`
	DateStart  string `json:"date_start"`
	DateEnd    string `json:"date_end"`
	Circuit    string `json:"circuit_short_name"`
	Country    string `json:"country_name"`
}

type driver struct {
	Number   int    `json:"driver_number"`
	Acronym  string `json:"name_acronym"`
	FullName string `json:"full_name"`
	Team     string `json:"team_name"`
}

type lap struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	DateStart    *string  `json:"date_start"`
	LapDuration  *float64 `json:"lap_duration"`
	Sector1      *float64 `json:"duration_sector_1"`
	Sector2      *float64 `json:"duration_sector_2"`
	Sector3      *float64 `json:"duration_sector_3"`
	I1Speed      *float64 `json:"i1_speed"`
	I2Speed      *float64 `json:"i2_speed"`
	STSpeed      *float64 `json:"st_speed"`
	IsPitOutLap  bool     `json:"is_pit_out_lap"`
}

type stint struct {
	DriverNumber   int    `json:"driver_number"`
	StintNumber    int    `json:"stint_number"`
	LapStart       int    `json:"lap_start"`
	LapEnd         int    `json:"lap_end"`
	Compound       string `json:"compound"`
	TyreAgeAtStart int    `json:"tyre_age_at_start"`
}

type carData struct {
	Date     string  `json:"date"`
	RPM      int     `json:"rpm"`
	Speed    float64 `json:"speed"`
	Gear     int     `json:"n_gear"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
	DRS      int     `json:"drs"`
}

type weather struct {
	Date          string  `json:"date"`
	AirTemp       float64 `json:"air_temperature"`
	TrackTemp     float64 `json:"track_temperature"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	Rainfall      float64 `json:"rainfall"`
	WindDirection int     `json:"wind_direction"`
	WindSpeed     float64 `json:"wind_speed"`
}

// Load resolves ref to an OpenF1 session and loads drivers, laps, stints and weather.
// Car data is fetched lazily, once per driver.
func (p *OpenF1) Load(ctx context.Context, ref types.SessionRef) (*Session, error) {
	m, err := p.findMeeting(ctx, ref.Year, ref.Event)
	if err != nil {
		return nil, err
	}
	s, err := p.findSession(ctx, m, ref.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.DateStart) == "" {
		return nil, fmt.Errorf("session %d has no start date", s.Key)
	}
	start, err := parseDate(s.DateStart)
	if err != nil {
		return nil, fmt.Errorf("session %d start: %w", s.Key, err)
	}
	end, _ := parseDate(s.DateEnd)

	info := Info{
		Ref:     ref,
		Key:     s.Key,
		Name:    s.Name,
		Circuit: s.Circuit,
		Country: s.Country,
		Start:   types.AbsoluteStart(start),
		End:     end,
	}
	key := url.Values{"session_key": {strconv.Itoa(s.Key)}}

	var rawDrivers []driver
	if err := p.Client.Get(ctx, "drivers", key, &rawDrivers); err != nil {
		return nil, fmt.Errorf("drivers: %w", err)
	}
	var rawLaps []lap
	if err := p.Client.Get(ctx, "laps", key, &rawLaps); err != nil {
		return nil, fmt.Errorf("laps: %w", err)
	}
	var rawStints []stint
	if err := p.Client.Get(ctx, "stints", key, &rawStints); err != nil {
		return nil, fmt.Errorf("stints: %w", err)
	}
	var rawWeather []weather
	if err := p.Client.Get(ctx, "weather", key, &rawWeather); err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}

	drivers := buildDrivers(rawDrivers)
	laps, err := buildLaps(rawLaps, rawStints, drivers, start)
	if err != nil {
		return nil, err
	}
	ws, err := buildWeather(rawWeather, start)
	if err != nil {
		return nil, err
	}

	cd := &carDataLoader{
		client:     p.Client,
		sessionKey: s.Key,
		start:      start,
		end:        end,
		laps:       laps,
		byDriver:   make(map[int][]types.Sample),
	}
	return NewSession(info, drivers, laps, ws, cd.lap), nil
}

func (p *OpenF1) findMeeting(ctx context.Context, year int, event string) (meeting, error) {
	var meetings []meeting
	if err := p.Client.Get(ctx, "meetings", url.Values{"year": {strconv.Itoa(year)}}, &meetings); err != nil {
		return meeting{}, fmt.Errorf("meetings: %w", err)
	}
	if m, ok := matchMeeting(meetings, event); ok {
		return m, nil
	}
	return meeting{}, fmt.Errorf("%w: %q in %d", ErrEventNotFound, event, year)
}

// matchMeeting finds event by round number, meeting name, official name,
// country, location or circuit, in that order of preference.
func matchMeeting(meetings []meeting, event string) (meeting, bool) {
	event = strings.TrimSpace(event)
	if round, err := strconv.Atoi(event); err == nil {
		var rounds []meeting
		for _, m := range meetings {
			if !strings.Contains(strings.ToLower(m.Name), "testing") {
				rounds = append(rounds, m)
			}
		}
		sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].DateStart < rounds[j].DateStart })
		if round >= 1 && round <= len(rounds) {
			return rounds[round-1], true
		}
		return meeting{}, false
	}

	matchers := []func(m meeting) bool{
		func(m meeting) bool { return strings.EqualFold(m.Name, event) },
		func(m meeting) bool { return containsFold(m.OfficialName, event) },
		func(m meeting) bool {
			return strings.EqualFold(m.CountryName, event) || strings.EqualFold(m.Location, event) || strings.EqualFold(m.Circuit, event)
		},
		func(m meeting) bool { return containsFold(m.Name, event) },
	}
	for _, match := range matchers {
		for _, m := range meetings {
			if match(m) {
				return m, true
			}
		}
	}
	return meeting{}, false
}

func containsFold(s, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (p *OpenF1) findSession(ctx context.Context, m meeting, kind types.SessionKind) (session, error) {
	var sessions []session
	if err := p.Client.Get(ctx, "sessions", url.Values{"meeting_key": {strconv.Itoa(m.Key)}}, &sessions); err != nil {
		return session{}, fmt.Errorf("sessions: %w", err)
	}
	names := []string{kind.Name()}
	switch kind {
	case types.KindSprintQualifying:
		names = append(names, types.KindSprintShootout.Name())
	case types.KindSprintShootout:
		names = append(names, types.KindSprintQualifying.Name())
	}
	for _, name := range names {
		for _, s := range sessions {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
	}
	return session{}, fmt.Errorf("%w: %s at %s", ErrSessionNotFound, kind.Name(), m.Name)
}

func buildDrivers(raw []driver) []types.Driver {
	out := make([]types.Driver, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for _, d := range raw {
		if _, ok := seen[d.Number]; ok {
			continue
		}
		seen[d.Number] = struct{}{}
		code := d.Acronym
		if code == "" {
			code = strconv.Itoa(d.Number)
		}
		out = append(out, types.Driver{Number: d.Number, Code: code, FullName: d.FullName, Team: d.Team})
	}
	return out
}

func buildLaps(raw []lap, stints []stint, drivers []types.Driver, start time.Time) ([]types.Lap, error) {
	codes := make(map[int]string, len(drivers))
	for _, d := range drivers {
		codes[d.Number] = d.Code
	}
	out := make([]types.Lap, 0, len(raw))
	for _, r := range raw {
		code, ok := codes[r.DriverNumber]
		if !ok {
			code = strconv.Itoa(r.DriverNumber)
		}
		l := types.Lap{
			DriverNumber: r.DriverNumber,
			Driver:       code,
			LapNumber:    r.LapNumber,
			LapTime:      seconds(r.LapDuration),
			Sector1Time:  seconds(r.Sector1),
			Sector2Time:  seconds(r.Sector2),
			Sector3Time:  seconds(r.Sector3),
			SpeedI1:      r.I1Speed,
			SpeedI2:      r.I2Speed,
			SpeedST:      r.STSpeed,
			IsPitOutLap:  r.IsPitOutLap,
		}
		if r.DateStart != nil && *r.DateStart != "" {
			d, err := parseDate(*r.DateStart)
			if err != nil {
				return nil, fmt.Errorf("lap %d of driver %d: %w", r.LapNumber, r.DriverNumber, err)
			}
			l.StartDate = d
			offset := d.Sub(start)
			l.StartTime = &offset
		}
		for _, s := range stints {
			if s.DriverNumber == r.DriverNumber && r.LapNumber >= s.LapStart && r.LapNumber <= s.LapEnd {
				l.Stint = s.StintNumber
				l.Compound = s.Compound
				l.TyreLife = s.TyreAgeAtStart + r.LapNumber - s.LapStart + 1
				break
			}
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DriverNumber != out[j].DriverNumber {
			return out[i].DriverNumber < out[j].DriverNumber
		}
		return out[i].LapNumber < out[j].LapNumber
	})
	return out, nil
}

func buildWeather(raw []weather, start time.Time) ([]types.WeatherSample, error) {
	out := make([]types.WeatherSample, 0, len(raw))
	for _, w := range raw {
		d, err := parseDate(w.Date)
		if err != nil {
			return nil, fmt.Errorf("weather: %w", err)
		}
		out = append(out, types.WeatherSample{
			Date:          d,
			SessionTime:   d.Sub(start),
			AirTemp:       w.AirTemp,
			TrackTemp:     w.TrackTemp,
			Humidity:      w.Humidity,
			Pressure:      w.Pressure,
			Rainfall:      w.Rainfall > 0,
			WindDirection: w.WindDirection,
			WindSpeed:     w.WindSpeed,
		})
	}
	return out, nil
}

type carDataLoader struct {
	client     *Client
	sessionKey int
	start      time.Time
	end        time.Time
	laps       []types.Lap
	byDriver   map[int][]types.Sample
}

func (c *carDataLoader) lap(ctx context.Context, l types.Lap) ([]types.Sample, error) {
	if l.StartDate.IsZero() {
		return nil, nil
	}
	samples, err := c.driverSamples(ctx, l.DriverNumber)
	if err != nil {
		return nil, err
	}
	lapEnd := c.lapEnd(l)

	i := sort.Search(len(samples), func(i int) bool { return !samples[i].Date.Before(l.StartDate) })
	var out []types.Sample
	for ; i < len(samples); i++ {
		s := samples[i]
		if !lapEnd.IsZero() && !s.Date.Before(lapEnd) {
			break
		}
		s.Time = s.Date.Sub(l.StartDate)
		out = append(out, s)
	}
	return out, nil
}

// lapEnd is the lap start plus its duration, else the next lap's start,
// else the session end. Zero means open-ended.
func (c *carDataLoader) lapEnd(l types.Lap) time.Time {
	if l.LapTime != nil {
		return l.StartDate.Add(*l.LapTime)
	}
	for _, next := range c.laps {
		if next.DriverNumber == l.DriverNumber && next.LapNumber == l.LapNumber+1 && !next.StartDate.IsZero() {
			return next.StartDate
		}
	}
	return c.end
}

func (c *carDataLoader) driverSamples(ctx context.Context, number int) ([]types.Sample, error) {
	if s, ok := c.byDriver[number]; ok {
		return s, nil
	}
	var raw []carData
	q := url.Values{"session_key": {strconv.Itoa(c.sessionKey)}, "driver_number": {strconv.Itoa(number)}}
	if err := c.client.Get(ctx, "car_data", q, &raw); err != nil {
		return nil, fmt.Errorf("car data for driver %d: %w", number, err)
	}
	out := make([]types.Sample, 0, len(raw))
	for _, r := range raw {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("car data for driver %d: %w", number, err)
		}
		out = append(out, types.Sample{
			Date:        d,
			SessionTime: d.Sub(c.start),
			RPM:         r.RPM,
			Speed:       r.Speed,
			Gear:        r.Gear,
			Throttle:    r.Throttle,
			Brake:       r.Brake,
			DRS:         r.DRS,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	c.byDriver[number] = out
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func seconds(v *float64) *time.Duration {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	d := time.Duration(math.Round(*v * float64(time.Second)))
	return &d
}
