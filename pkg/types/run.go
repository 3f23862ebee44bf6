package types

import "time"

// Run records one processing run of a session.
type Run struct {
	ID         string      `json:"id"`
	Slug       string      `json:"slug"`
	Year       int         `json:"year"`
	Event      string      `json:"event"`
	Kind       SessionKind `json:"kind"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

const (
	OutcomeWritten = "written"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// DriverOutcome is what happened to one driver during a run.
type DriverOutcome struct {
	RunID    string  `json:"run_id"`
	Seq      int     `json:"seq"`
	Driver   string  `json:"driver"`
	Status   string  `json:"status"`
	Laps     int     `json:"laps"`
	Samples  int     `json:"samples"`
	Path     string  `json:"path,omitempty"`
	Bytes    int64   `json:"bytes"`
	BestLap  float64 `json:"best_lap"`
	MeanLap  float64 `json:"mean_lap"`
	MaxSpeed float64 `json:"max_speed"`
	Error    string  `json:"error,omitempty"`
}

// CachedResponse is one provider response body kept on disk.
type CachedResponse struct {
	Key       string    `json:"key"`
	Body      []byte    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
