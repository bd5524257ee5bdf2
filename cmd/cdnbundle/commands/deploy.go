package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/cdnbundle/internal/auth"
	"git.home.luguber.info/inful/cdnbundle/internal/config"
	"git.home.luguber.info/inful/cdnbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/git"
	"git.home.luguber.info/inful/cdnbundle/internal/layout"
	"git.home.luguber.info/inful/cdnbundle/internal/logfields"
	"git.home.luguber.info/inful/cdnbundle/internal/notify"
	"git.home.luguber.info/inful/cdnbundle/internal/observability"
	"git.home.luguber.info/inful/cdnbundle/internal/prompt"
	"git.home.luguber.info/inful/cdnbundle/internal/publish"
)

// DeployCmd implements the 'deploy' command.
type DeployCmd struct {
	Force bool `short:"f" help:"Overwrite an existing version without asking"`
	Push  bool `help:"Push the commit to the CDN remote"`
	Auto  bool `help:"Alias for --push"`

	// confirm is injectable for tests; nil means the terminal prompt.
	confirm publish.ConfirmFunc
}

func (d *DeployCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithCommand(ctx, "deploy")

	return d.run(ctx, cfg)
}

func (d *DeployCmd) run(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)

	spec, err := cfg.BuildSpec()
	if err != nil {
		return err
	}
	tag, err := layout.ReadVersion(cfg.ManifestPath())
	if err != nil {
		return err
	}

	method, err := auth.CreateAuth(cfg.CDN.Auth)
	if err != nil {
		return err
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger(ledger)

	m := newRunMetrics(cfg)
	defer m.flush()
	start := time.Now()
	defer func() { m.recorder.ObserveRunDuration("deploy", time.Since(start)) }()

	confirm := d.confirm
	if confirm == nil {
		confirm = prompt.NewTerminal().Confirm
	}

	fallback := config.Author{}.AuthorOrDefault()
	req := publish.Request{
		Package:        cfg.Package.Name,
		Name:           spec.Name,
		Version:        tag,
		DistDir:        cfg.OutputDir(),
		CDNRoot:        cfg.CDNRoot(),
		LibsDir:        cfg.CDN.LibsDir,
		Alias:          cfg.Output.Alias,
		Formats:        spec.Formats,
		Variants:       spec.Variants,
		Force:          d.Force,
		Push:           d.Push || d.Auto,
		Remote:         cfg.CDN.Remote,
		Auth:           method,
		Author:         git.Signature{Name: cfg.CDN.Author.Name, Email: cfg.CDN.Author.Email},
		FallbackAuthor: git.Signature{Name: fallback.Name, Email: fallback.Email},
		Changelog:      cfg.CDN.Changelog,
		BaseURL:        cfg.CDN.BaseURL,
	}

	fmt.Printf("Deploying %s v%s to %s\n", req.Package, tag, req.CDNRoot)
	res, err := publish.New(confirm).WithRecorder(m.recorder).Publish(ctx, req)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryConflict) {
			record(ctx, ledger, runID, eventstore.TypeDeployDeclined, req.Package, tag.String(),
				eventstore.DeployReason{Reason: "existing version not overwritten"})
			fmt.Println("Deployment cancelled")
		}
		m.recorder.IncRunOutcome("deploy", "failed")
		return err
	}

	if res.NoChanges {
		record(ctx, ledger, runID, eventstore.TypeDeployNoop, req.Package, tag.String(),
			eventstore.DeployReason{Reason: "no changes to commit"})
		m.recorder.IncRunOutcome("deploy", "noop")
		fmt.Printf("No changes to commit; %s already holds v%s\n", shortHash(res.Commit), tag)
		printURLs(res)
		return nil
	}

	record(ctx, ledger, runID, eventstore.TypeDeployCommitted, req.Package, tag.String(),
		eventstore.DeployCommitted{Commit: res.Commit, Files: res.Files, Forced: res.Replaced})
	fmt.Printf("Committed %s (%d files)\n", shortHash(res.Commit), len(res.Files))

	if res.Pushed {
		record(ctx, ledger, runID, eventstore.TypeDeployPushed, req.Package, tag.String(),
			eventstore.DeployPushed{Commit: res.Commit, Remote: req.Remote, UpToDate: res.UpToDate})
		fmt.Printf("Pushed to %s (%s)\n", req.Remote, res.RemoteURL)
	} else {
		fmt.Println("Changes committed but not pushed.")
		fmt.Printf("Run \"git push\" in %s to deploy, or use --push\n", req.CDNRoot)
	}
	m.recorder.IncRunOutcome("deploy", "success")

	d.announce(ctx, cfg, runID, req, res)
	printURLs(res)
	return nil
}

// announce publishes the release notification. Failures never fail the deploy.
func (d *DeployCmd) announce(ctx context.Context, cfg *config.Config, runID string, req publish.Request, res *publish.Result) {
	n, err := notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		observability.WarnContext(ctx, "Release notification unavailable", logfields.Error(err))
		return
	}
	defer func() { _ = n.Close() }()

	err = n.Notify(ctx, notify.Release{
		RunID:   runID,
		Package: req.Package,
		Version: req.Version.String(),
		Commit:  res.Commit,
		Pushed:  res.Pushed,
		URLs:    res.URLs,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.WarnContext(ctx, "Release notification failed", logfields.Error(err))
	}
}

func printURLs(res *publish.Result) {
	if len(res.URLs) == 0 {
		return
	}
	fmt.Println("Deployed bundles:")
	for _, u := range res.URLs {
		fmt.Printf("  %s\n", u)
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
