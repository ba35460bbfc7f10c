// Command simulate populates the championship outcome tables and prints a summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/champsim/internal/adapters/report"
	"github.com/okian/champsim/internal/adapters/repository"
	service "github.com/okian/champsim/internal/app"
	"github.com/okian/champsim/internal/config"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/pkg/logger"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		force    = fs.Bool("force", false, "Recompute even if the tables are already populated")
		withTies = fs.Bool("ties", false, "Also populate the tie-scenario table")
		project  = fs.String("project", "", `Project a what-if result instead, e.g. '{"Race Qatar":{"piastri":1,"norris":2}}'`)
		help     = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if *help {
		showHelp(stdout, fs)
		return exitOK
	}

	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging: "+err.Error())
		return exitFailure
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config: "+err.Error())
		return exitFailure
	}
	if err := logger.Init(logger.WithOutput(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging: "+err.Error())
		return exitFailure
	}
	log := logger.Named("simulate")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, err := service.ConfigOptions(cfg)
	if err != nil {
		log.Error(ctx, "invalid configuration", logger.Error(err))
		return exitFailure
	}

	if *project != "" {
		svc := service.New(append(opts, service.WithLogger(log))...)
		return runProjection(ctx, svc, *project, stdout, log)
	}

	store, err := repository.NewSQLiteStore(ctx, cfg.DBPath,
		repository.WithBatchSize(cfg.BatchSize),
		repository.WithDefaultLimit(cfg.MaxOutcomeLimit),
		repository.WithLogger(logger.Named("store")),
	)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.String("path", cfg.DBPath), logger.Error(err))
		return exitFailure
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "failed to close store", logger.Error(err))
		}
	}()

	svc := service.New(append(opts, service.WithStore(store), service.WithLogger(log))...)

	res, err := svc.Run(ctx, *force)
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		return exitFailure
	}
	report.Run(stdout, res.Run, res.Computed)
	report.Summary(stdout, res.Summary)

	if *withTies {
		tr, err := svc.RunTies(ctx, *force)
		if err != nil {
			log.Error(ctx, "tie scenarios failed", logger.Error(err))
			return exitFailure
		}
		report.Run(stdout, tr.Run, tr.Computed)
		report.Ties(stdout, tr.Summary)
	}
	return exitOK
}

func runProjection(ctx context.Context, svc *service.Service, raw string, stdout io.Writer, log logger.Logger) int {
	var events map[string]map[string]int
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		log.Error(ctx, "invalid -project value", logger.Error(err))
		return exitFailure
	}
	positions := make(map[string]delta.Assignment, len(events))
	for name, byDriver := range events {
		a, err := delta.AssignmentOf(byDriver)
		if err != nil {
			log.Error(ctx, "invalid -project value", logger.String("event", name), logger.Error(err))
			return exitFailure
		}
		positions[name] = a
	}
	p, err := svc.Project(ctx, positions)
	if err != nil {
		log.Error(ctx, "projection failed", logger.Error(err))
		return exitFailure
	}
	report.Projection(stdout, p)
	return exitOK
}

func showHelp(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Championship scenario simulator")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Enumerates every finishing combination of the remaining events, stores")
	fmt.Fprintln(w, "one row per distinct final state in SQLite and prints who wins how often.")
	fmt.Fprintln(w, "Populated tables are reused unless -force is given.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  simulate [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration is read from the file named by "+config.EnvFile+" and from")
	fmt.Fprintln(w, config.EnvPrefix+"* environment variables, e.g. "+config.EnvPrefix+"DB_PATH=/tmp/season.db.")
}
