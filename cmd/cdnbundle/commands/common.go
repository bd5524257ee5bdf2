// Package commands implements the cdnbundle subcommands.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
	"git.home.luguber.info/inful/cdnbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/logfields"
	"git.home.luguber.info/inful/cdnbundle/internal/metrics"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"cdnbundle.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Bundle the entry point into dist/v-<version> and move v-latest"`
	Deploy  DeployCmd  `cmd:"" help:"Publish the built version into the CDN repository"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	History HistoryCmd `cmd:"" help:"List recorded builds and deploys"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose || strings.EqualFold(os.Getenv("CDNBUNDLE_LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the configuration file named by --config.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if ferrors.IsClassified(err) {
			return nil, err
		}
		return nil, ferrors.ConfigError("failed to load configuration").
			WithCause(err).
			WithContext("path", path).
			WithRemedy("run `cdnbundle init` or pass --config").
			Build()
	}
	return cfg, nil
}

// openLedger opens the release ledger, or a no-op store when history is disabled.
func openLedger(cfg *config.Config) (eventstore.Store, error) {
	if cfg.History.Path == "" {
		return eventstore.NopStore{}, nil
	}
	return eventstore.NewSQLiteStore(cfg.Path(cfg.History.Path))
}

// runMetrics owns the recorder for one command and exports it when configured.
type runMetrics struct {
	recorder metrics.Recorder
	prom     *metrics.PrometheusRecorder
	textfile string
}

func newRunMetrics(cfg *config.Config) *runMetrics {
	if cfg.Metrics.Textfile == "" {
		return &runMetrics{recorder: metrics.NoopRecorder{}}
	}
	pr := metrics.NewPrometheusRecorder(nil)
	return &runMetrics{recorder: pr, prom: pr, textfile: cfg.Path(cfg.Metrics.Textfile)}
}

func (m *runMetrics) flush() {
	if m.prom == nil {
		return
	}
	if err := m.prom.WriteTextfile(m.textfile, time.Now()); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(m.textfile), logfields.Error(err))
	}
}

// record appends an event, logging instead of failing when the ledger is unavailable.
func record(ctx context.Context, store eventstore.Store, runID, typ, pkg, version string, payload any) {
	ev, err := eventstore.NewEvent(runID, typ, pkg, version, payload)
	if err == nil {
		err = store.Append(ctx, ev)
	}
	if err != nil {
		slog.Warn("Failed to record event", slog.String("type", typ), logfields.Error(err))
	}
}

func closeLedger(store eventstore.Store) {
	if err := store.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		slog.Warn("Failed to close ledger", logfields.Error(err))
	}
}
