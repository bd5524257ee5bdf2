package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/cdnbundle/internal/alias"
	"git.home.luguber.info/inful/cdnbundle/internal/config"
	"git.home.luguber.info/inful/cdnbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/layout"
	"git.home.luguber.info/inful/cdnbundle/internal/output"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit   int    `short:"n" help:"Number of events to show" default:"20"`
	Version string `help:"Only show events for this version (e.g. 1.2.0)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	return h.run(context.Background(), cfg, os.Stdout)
}

func (h *HistoryCmd) run(ctx context.Context, cfg *config.Config, w io.Writer) error {
	if cfg.History.Path == "" {
		return ferrors.ConfigError("release history is disabled").
			WithRemedy("set history.path in the configuration").
			Build()
	}
	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger(store)

	var events []eventstore.Event
	if h.Version != "" {
		events, err = store.GetByRelease(ctx, cfg.Package.Name, h.Version)
	} else {
		events, err = store.Recent(ctx, h.Limit)
	}
	if err != nil {
		return err
	}

	tbl := output.NewTable("TIME", "EVENT", "PACKAGE", "VERSION", "DETAIL")
	for _, e := range events {
		tbl.Row(e.Timestamp.Local().Format(time.DateTime), e.Type, e.Package, e.Version, detail(e))
	}
	if tbl.Len() == 0 {
		_, _ = fmt.Fprintln(w, "No recorded events")
	} else {
		_, _ = fmt.Fprintln(w, tbl.String())
	}

	return printBuilds(w, cfg)
}

// printBuilds lists the version directories present in the dist tree and
// where the alias points.
func printBuilds(w io.Writer, cfg *config.Config) error {
	dist := cfg.OutputDir()
	tags, err := layout.NewManager(dist).Versions()
	if err != nil {
		return ferrors.FileSystemError("list local builds").WithCause(err).WithContext("path", dist).Build()
	}
	if len(tags) == 0 {
		_, _ = fmt.Fprintf(w, "No local builds in %s\n", dist)
		return nil
	}

	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.DirName())
	}
	_, _ = fmt.Fprintf(w, "Local builds: %s\n", strings.Join(names, ", "))
	if target, err := alias.Resolve(dist, cfg.Output.Alias); err == nil {
		_, _ = fmt.Fprintf(w, "%s -> %s\n", cfg.Output.Alias, target)
	}
	return nil
}

func detail(e eventstore.Event) string {
	switch e.Type {
	case eventstore.TypeBuildCompleted:
		var p eventstore.BuildCompleted
		if e.Decode(&p) == nil {
			s := fmt.Sprintf("%d files in %dms", len(p.Files), p.DurationMS)
			if p.Digest != "" {
				s += ", digest " + shortHash(p.Digest)
			}
			return s
		}
	case eventstore.TypeDeployCommitted:
		var p eventstore.DeployCommitted
		if e.Decode(&p) == nil {
			s := "commit " + shortHash(p.Commit)
			if p.Forced {
				s += " (overwrite)"
			}
			return s
		}
	case eventstore.TypeDeployPushed:
		var p eventstore.DeployPushed
		if e.Decode(&p) == nil {
			return fmt.Sprintf("%s to %s", shortHash(p.Commit), p.Remote)
		}
	case eventstore.TypeDeployNoop, eventstore.TypeDeployDeclined:
		var p eventstore.DeployReason
		if e.Decode(&p) == nil {
			return p.Reason
		}
	}
	return ""
}
