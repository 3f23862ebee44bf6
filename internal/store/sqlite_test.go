package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yourorg/f1etl/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), DBFile))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

var hungary = types.SessionRef{Year: 2025, Event: "Hungarian Grand Prix", Kind: types.KindRace}

func TestResponseCache(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.GetResponse("https://api.openf1.org/v1/laps?session_key=1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows on miss, got %v", err)
	}
	if err := s.SaveResponse("k", []byte(`[{"a":1}]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveResponse("k", []byte(`[{"a":2}]`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetResponse("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Body) != `[{"a":2}]` {
		t.Fatalf("expected overwritten body, got %s", got.Body)
	}
	if err := s.ClearResponses(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetResponse("k"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected cache cleared")
	}
}

func TestRunAndOutcomes(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, err := s.CreateRun(hungary)
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" || run.Slug != "2025_Hungarian_Grand_Prix" || run.Status != types.RunRunning {
		t.Fatalf("unexpected run %+v", run)
	}
	outcomes := []types.DriverOutcome{
		{RunID: run.ID, Seq: 1, Driver: "NOR", Status: types.OutcomeWritten, Laps: 70, Samples: 31000, Path: "data/processed/x/telemetry_NOR.csv.gz", Bytes: 1024, BestLap: 80.1, MeanLap: 83.2, MaxSpeed: 321},
		{RunID: run.ID, Seq: 2, Driver: "SAI", Status: types.OutcomeSkipped},
	}
	for i := range outcomes {
		if err := s.SaveOutcome(&outcomes[i]); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.FinishRun(run.ID, types.RunCompleted, ""); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.RunCompleted || got.FinishedAt.IsZero() || got.Kind != types.KindRace {
		t.Fatalf("run not finished: %+v", got)
	}
	stored, err := s.GetOutcomes(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[0].Driver != "NOR" || stored[1].Status != types.OutcomeSkipped {
		t.Fatalf("unexpected outcomes %+v", stored)
	}

	if err := s.FinishRun("missing", types.RunFailed, "boom"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for unknown run, got %v", err)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun(hungary)
	_ = s.SaveOutcome(&types.DriverOutcome{RunID: run.ID, Seq: 1, Driver: "PIA", Status: types.OutcomeFailed, Error: "boom"})
	if err := s.DeleteRun(run.ID); err != nil {
		t.Fatal(err)
	}
	if outcomes, _ := s.GetOutcomes(run.ID); len(outcomes) != 0 {
		t.Fatalf("expected outcomes deleted")
	}
	if runs, _ := s.ListRuns(); len(runs) != 0 {
		t.Fatalf("expected runs deleted")
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SaveResponse(fmt.Sprintf("key-%d", i), []byte("[]"))
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ListRuns()
		}()
	}
	wg.Wait()

	hits := 0
	for i := 0; i < 10; i++ {
		if _, err := s.GetResponse(fmt.Sprintf("key-%d", i)); err == nil {
			hits++
		}
	}
	if hits == 0 {
		t.Fatalf("expected cached responses")
	}
}
