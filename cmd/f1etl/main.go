package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourorg/f1etl/internal/config"
	"github.com/yourorg/f1etl/internal/pipeline"
	"github.com/yourorg/f1etl/internal/store"
	"github.com/yourorg/f1etl/pkg/types"
)

const defaultConfigContent = `provider:
  base_url: "https://api.openf1.org/v1"
  timeout_seconds: 120
  max_retries: 0
  session_file: ""

cache:
  dir: "cache"
  enabled: true

output:
  raw_dir: "data/raw"
  processed_dir: "data/processed"
  weather: false

session:
  year: 2025
  event: "Hungarian Grand Prix"
  kind: "R"
  drivers: []

log:
  level: "info"
`

// errDriversFailed makes the process exit non-zero after the report is printed.
var errDriversFailed = errors.New("one or more drivers failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFlags struct {
	year        int
	event       string
	session     string
	drivers     []string
	weather     bool
	sessionFile string
	noCache     bool
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var f runFlags

	root := &cobra.Command{
		Use:           "f1etl",
		Short:         "Extract F1 session laps and per-driver telemetry to CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfgPath, f)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ./"+config.DefaultConfigPath+")")
	root.Flags().IntVar(&f.year, "year", 0, "season year")
	root.Flags().StringVar(&f.event, "event", "", "event name, location or round number")
	root.Flags().StringVar(&f.session, "session", "", "session kind (R, Q, FP1, FP2, FP3, S, SQ, SS)")
	root.Flags().StringSliceVar(&f.drivers, "drivers", nil, "only process these drivers (code or number)")
	root.Flags().BoolVar(&f.weather, "weather", false, "also write weather.csv.gz")
	root.Flags().StringVar(&f.sessionFile, "session-file", "", "load the session from a YAML file instead of the API")
	root.Flags().BoolVar(&f.noCache, "no-cache", false, "bypass the response cache")

	root.AddCommand(newInitCmd(&cfgPath))
	root.AddCommand(newListCmd(&cfgPath))
	root.AddCommand(newShowCmd(&cfgPath))
	root.AddCommand(newDeleteCmd(&cfgPath))
	root.AddCommand(newCacheCmd(&cfgPath))

	return root
}

// loadConfig reads the config file and lets explicitly set flags win over it.
func loadConfig(cmd *cobra.Command, cfgPath string, f runFlags) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("year") {
		cfg.Session.Year = f.year
	}
	if flags.Changed("event") {
		cfg.Session.Event = f.event
	}
	if flags.Changed("session") {
		cfg.Session.Kind = f.session
	}
	if flags.Changed("drivers") {
		cfg.Session.Drivers = f.drivers
	}
	if flags.Changed("weather") {
		cfg.Output.Weather = f.weather
	}
	if flags.Changed("session-file") {
		cfg.Provider.SessionFile = f.sessionFile
	}
	if f.noCache {
		disabled := false
		cfg.Cache.Enabled = &disabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func runSession(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	ref, err := cfg.SessionRef()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level, errOut)

	proc, st, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := proc.Process(ctx, ref)
	if err != nil {
		return err
	}
	printReport(out, report)
	if report.Count(types.OutcomeFailed) > 0 {
		return errDriversFailed
	}
	return nil
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "run %s: %s (%s)\n", r.RunID, r.Ref, r.Status)
	if r.RawWritten {
		fmt.Fprintln(w, "raw laps:", r.RawPath)
	} else {
		fmt.Fprintln(w, "raw laps kept:", r.RawPath)
	}
	fmt.Fprintln(w, "laps:", r.LapsPath)
	if r.WeatherPath != "" {
		fmt.Fprintln(w, "weather:", r.WeatherPath)
	}
	printOutcomes(w, r.Outcomes)
}

func printOutcomes(w io.Writer, outcomes []types.DriverOutcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DRIVER\tSTATUS\tLAPS\tSAMPLES\tBEST\tTOP SPEED\tSIZE\tDETAIL")
	for _, o := range outcomes {
		detail := o.Path
		if o.Error != "" {
			detail = o.Error
		}
		size := "-"
		if o.Bytes > 0 {
			size = humanize.Bytes(uint64(o.Bytes))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.3f\t%.1f\t%s\t%s\n",
			o.Driver, o.Status, o.Laps, humanize.Comma(int64(o.Samples)), o.BestLap, o.MaxSpeed, size, detail)
	}
	_ = tw.Flush()
}

func newInitCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := *cfgPath
			if cfgFile == "" {
				cfgFile = config.DefaultConfigPath
			}
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
				return err
			}
			dbPath := filepath.Join(cfg.Cache.Dir, store.DBFile)
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			return nil
		},
	}
}

func openStore(cfgPath string) (*store.SQLiteStore, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(cfg.Cache.Dir, store.DBFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no run history at %s (run f1etl init first): %w", dbPath, err)
	}
	return store.NewSQLiteStore(dbPath)
}

func newListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()
			runs, err := s.ListRuns()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSESSION\tSTATUS\tSTARTED")
			for _, r := range runs {
				ref := types.SessionRef{Year: r.Year, Event: r.Event, Kind: r.Kind}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, ref, r.Status, humanize.Time(r.StartedAt))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(cfgPath *string) *cobra.Command {
	var runID string
	cmd := &cobra.Command{Use: "show", Short: "Show per-driver outcomes of a run", RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(*cfgPath)
		if err != nil {
			return err
		}
		defer s.Close()
		run, err := s.GetRun(runID)
		if err != nil {
			return fmt.Errorf("run %s: %w", runID, err)
		}
		outcomes, err := s.GetOutcomes(runID)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "run %s: %d %s %s (%s)\n", run.ID, run.Year, run.Event, run.Kind, run.Status)
		if run.Error != "" {
			fmt.Fprintln(w, "error:", run.Error)
		}
		printOutcomes(w, outcomes)
		return nil
	}}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newDeleteCmd(cfgPath *string) *cobra.Command {
	var runID string
	cmd := &cobra.Command{Use: "delete", Short: "Delete a recorded run", RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(*cfgPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.DeleteRun(runID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", runID)
		return nil
	}}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newCacheCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Manage cached provider responses"}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached provider response",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.ClearResponses(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
			return nil
		},
	})
	return cmd
}
