// Package pipeline turns one loaded session into raw and processed CSV files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yourorg/f1etl/internal/config"
	"github.com/yourorg/f1etl/internal/filter"
	"github.com/yourorg/f1etl/internal/provider"
	"github.com/yourorg/f1etl/internal/store"
	"github.com/yourorg/f1etl/internal/table"
	"github.com/yourorg/f1etl/pkg/types"
)

// Processor fetches a session and writes its raw and processed tables.
type Processor struct {
	Provider     provider.Provider
	Store        store.Store
	Logger       *slog.Logger
	RawDir       string
	ProcessedDir string
	Drivers      []string
	Weather      bool
}

// New prepares the cache directory, opens the store in it and wires the
// configured provider to use it. The caller closes the returned store.
func New(cfg *config.Config, logger *slog.Logger) (*Processor, store.Store, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("cache dir: %w", err)
	}
	st, err := store.NewSQLiteStore(filepath.Join(cfg.Cache.Dir, store.DBFile))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	var p provider.Provider
	if cfg.Provider.SessionFile != "" {
		p = &provider.File{Path: cfg.Provider.SessionFile}
	} else {
		client := &provider.Client{
			BaseURL:    cfg.Provider.BaseURL,
			MaxRetries: cfg.Provider.MaxRetries,
			HTTPClient: &http.Client{Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second},
			Logger:     logger,
		}
		if cfg.CacheEnabled() {
			client.Cache = st
		}
		p = &provider.OpenF1{Client: client}
	}

	return &Processor{
		Provider:     p,
		Store:        st,
		Logger:       logger,
		RawDir:       cfg.Output.RawDir,
		ProcessedDir: cfg.Output.ProcessedDir,
		Drivers:      cfg.Session.Drivers,
		Weather:      cfg.Output.Weather,
	}, st, nil
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

// Process runs the whole pipeline for ref. A session that cannot be loaded,
// or a lap table that cannot be written, fails the run. Failures of single
// drivers are recorded in the report and do not stop the other drivers.
func (p *Processor) Process(ctx context.Context, ref types.SessionRef) (*Report, error) {
	if p.Provider == nil {
		return nil, errors.New("provider is nil")
	}
	log := p.logger().With("session", ref.String())
	report := &Report{Ref: ref, Slug: ref.Slug(), Status: types.RunRunning}
	p.startRun(report)

	fail := func(err error) (*Report, error) {
		report.Status = types.RunFailed
		p.finishRun(report, err)
		return report, err
	}

	sess, err := p.Provider.Load(ctx, ref)
	if err != nil {
		return fail(fmt.Errorf("load session: %w", err))
	}
	log.Info("session loaded", "name", sess.Info.Name, "drivers", len(sess.Drivers), "laps", len(sess.Laps))

	rawDir := filepath.Join(p.RawDir, report.Slug)
	processedDir := filepath.Join(p.ProcessedDir, report.Slug)
	for _, dir := range []string{rawDir, processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(err)
		}
	}

	rawLaps, err := LapFrame(sess.Laps)
	if err != nil {
		return fail(fmt.Errorf("lap table: %w", err))
	}
	report.RawPath = filepath.Join(rawDir, "laps.csv")
	report.RawWritten, err = table.WriteFileOnce(report.RawPath, rawLaps)
	if err != nil {
		return fail(fmt.Errorf("raw laps: %w", err))
	}
	if report.RawWritten {
		log.Info("saved raw laps", "path", report.RawPath, "rows", rawLaps.Len())
	} else {
		log.Debug("raw laps already captured", "path", report.RawPath)
	}

	drivers, unknown := filter.Drivers(sess.Drivers, p.Drivers)
	for _, u := range unknown {
		log.Warn("driver not in session", "driver", u)
	}
	for i, d := range drivers {
		o := p.processDriver(ctx, log, sess, d, processedDir)
		o.RunID = report.RunID
		o.Seq = i + 1
		report.Outcomes = append(report.Outcomes, o)
		p.saveOutcome(log, &o)
	}

	lapsOut, err := NormalizeLaps(rawLaps)
	if err != nil {
		return fail(fmt.Errorf("normalize laps: %w", err))
	}
	report.LapsPath = filepath.Join(processedDir, "laps.csv.gz")
	n, err := table.WriteGzipFile(report.LapsPath, lapsOut)
	if err != nil {
		return fail(fmt.Errorf("processed laps: %w", err))
	}
	log.Info("saved processed laps", "path", report.LapsPath, "rows", lapsOut.Len(), "size", humanize.Bytes(uint64(n)))

	if p.Weather {
		wf, err := WeatherFrame(sess.Weather, sess.Info.Start)
		if err != nil {
			return fail(fmt.Errorf("weather table: %w", err))
		}
		report.WeatherPath = filepath.Join(processedDir, "weather.csv.gz")
		n, err := table.WriteGzipFile(report.WeatherPath, wf)
		if err != nil {
			return fail(fmt.Errorf("weather: %w", err))
		}
		log.Info("saved weather", "path", report.WeatherPath, "rows", wf.Len(), "size", humanize.Bytes(uint64(n)))
	}

	report.Status = types.RunCompleted
	if report.Count(types.OutcomeFailed) > 0 {
		report.Status = types.RunPartial
	}
	p.finishRun(report, nil)
	return report, nil
}

func (p *Processor) processDriver(ctx context.Context, log *slog.Logger, sess *provider.Session, d types.Driver, dir string) types.DriverOutcome {
	o := types.DriverOutcome{Driver: d.Code}
	laps := sess.PickDriver(d.Code)
	o.Laps = len(laps)
	if len(laps) == 0 {
		log.Warn("driver has no laps, skipping", "driver", d.Code)
		o.Status = types.OutcomeSkipped
		return o
	}

	tel, err := buildDriverTelemetry(ctx, sess, laps)
	if err != nil {
		log.Error("driver telemetry failed", "driver", d.Code, "err", err)
		o.Status = types.OutcomeFailed
		o.Error = err.Error()
		return o
	}
	o.Samples = tel.frame.Len()
	lapStats(&o, laps, tel.speeds)

	o.Path = filepath.Join(dir, "telemetry_"+filter.SafeName(d.Code)+".csv.gz")
	o.Bytes, err = table.WriteGzipFile(o.Path, tel.frame)
	if err != nil {
		log.Error("write telemetry failed", "driver", d.Code, "err", err)
		o.Status = types.OutcomeFailed
		o.Error = err.Error()
		return o
	}
	o.Status = types.OutcomeWritten
	log.Info("saved processed telemetry", "driver", d.Code, "path", o.Path, "rows", o.Samples, "size", humanize.Bytes(uint64(o.Bytes)))
	return o
}

func (p *Processor) startRun(report *Report) {
	if p.Store == nil {
		return
	}
	run, err := p.Store.CreateRun(report.Ref)
	if err != nil {
		p.logger().Warn("could not record run", "err", err)
		return
	}
	report.RunID = run.ID
}

func (p *Processor) finishRun(report *Report, runErr error) {
	if p.Store == nil || report.RunID == "" {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := p.Store.FinishRun(report.RunID, report.Status, msg); err != nil {
		p.logger().Warn("could not record run status", "run", report.RunID, "err", err)
	}
}

func (p *Processor) saveOutcome(log *slog.Logger, o *types.DriverOutcome) {
	if p.Store == nil || o.RunID == "" {
		return
	}
	if err := p.Store.SaveOutcome(o); err != nil {
		log.Warn("could not record driver outcome", "driver", o.Driver, "err", err)
	}
}
