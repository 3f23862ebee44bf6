package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourorg/f1etl/pkg/types"
)

// DBFile is the store's file name inside the cache directory.
const DBFile = "f1etl.db"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS http_cache (
			key TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			year INTEGER NOT NULL,
			event TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			error_msg TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS driver_outcomes (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			driver TEXT NOT NULL,
			status TEXT NOT NULL,
			laps INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			best_lap REAL NOT NULL,
			mean_lap REAL NOT NULL,
			max_speed REAL NOT NULL,
			error_msg TEXT NOT NULL,
			PRIMARY KEY(run_id, driver)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON driver_outcomes(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetResponse returns the cached body for key, or sql.ErrNoRows.
func (s *SQLiteStore) GetResponse(key string) (*types.CachedResponse, error) {
	row := s.db.QueryRow(`SELECT key,body,created_at FROM http_cache WHERE key=?`, key)
	var out types.CachedResponse
	if err := row.Scan(&out.Key, &out.Body, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQLiteStore) SaveResponse(key string, body []byte) error {
	_, err := s.db.Exec(`INSERT INTO http_cache(key,body,created_at) VALUES(?,?,?)
	ON CONFLICT(key) DO UPDATE SET body=excluded.body,created_at=excluded.created_at`,
		key, body, time.Now().UTC())
	return err
}

func (s *SQLiteStore) ClearResponses() error {
	_, err := s.db.Exec(`DELETE FROM http_cache`)
	return err
}

func (s *SQLiteStore) CreateRun(ref types.SessionRef) (*types.Run, error) {
	run := &types.Run{
		ID:        uuid.NewString(),
		Slug:      ref.Slug(),
		Year:      ref.Year,
		Event:     ref.Event,
		Kind:      ref.Kind,
		Status:    types.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO runs(id,slug,year,event,kind,status,started_at) VALUES(?,?,?,?,?,?,?)`,
		run.ID, run.Slug, run.Year, run.Event, string(run.Kind), run.Status, run.StartedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(id, status, errMsg string) error {
	res, err := s.db.Exec(`UPDATE runs SET status=?, error_msg=?, finished_at=? WHERE id=?`, status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const runColumns = `id,slug,year,event,kind,status,error_msg,started_at,finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*types.Run, error) {
	var r types.Run
	var kind string
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.Slug, &r.Year, &r.Event, &kind, &r.Status, &r.Error, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	r.Kind = types.SessionKind(kind)
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

func (s *SQLiteStore) GetRun(id string) (*types.Run, error) {
	return scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id=?`, id))
}

func (s *SQLiteStore) ListRuns() ([]types.Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM driver_outcomes WHERE run_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveOutcome(o *types.DriverOutcome) error {
	_, err := s.db.Exec(`INSERT INTO driver_outcomes(run_id,seq,driver,status,laps,samples,path,bytes,best_lap,mean_lap,max_speed,error_msg)
	VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(run_id,driver) DO UPDATE SET seq=excluded.seq,status=excluded.status,laps=excluded.laps,samples=excluded.samples,path=excluded.path,bytes=excluded.bytes,best_lap=excluded.best_lap,mean_lap=excluded.mean_lap,max_speed=excluded.max_speed,error_msg=excluded.error_msg`,
		o.RunID, o.Seq, o.Driver, o.Status, o.Laps, o.Samples, o.Path, o.Bytes, o.BestLap, o.MeanLap, o.MaxSpeed, o.Error)
	return err
}

func (s *SQLiteStore) GetOutcomes(runID string) ([]types.DriverOutcome, error) {
	rows, err := s.db.Query(`SELECT run_id,seq,driver,status,laps,samples,path,bytes,best_lap,mean_lap,max_speed,error_msg FROM driver_outcomes WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.DriverOutcome, 0)
	for rows.Next() {
		var o types.DriverOutcome
		if err := rows.Scan(&o.RunID, &o.Seq, &o.Driver, &o.Status, &o.Laps, &o.Samples, &o.Path, &o.Bytes, &o.BestLap, &o.MeanLap, &o.MaxSpeed, &o.Error); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
