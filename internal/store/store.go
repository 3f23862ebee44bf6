package store

import "github.com/yourorg/f1etl/pkg/types"

type Store interface {
	GetResponse(key string) (*types.CachedResponse, error)
	SaveResponse(key string, body []byte) error
	ClearResponses() error

	CreateRun(ref types.SessionRef) (*types.Run, error)
	FinishRun(id, status, errMsg string) error
	GetRun(id string) (*types.Run, error)
	ListRuns() ([]types.Run, error)
	DeleteRun(id string) error

	SaveOutcome(outcome *types.DriverOutcome) error
	GetOutcomes(runID string) ([]types.DriverOutcome, error)

	Close() error
}
