package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	"git.home.luguber.info/inful/cdnbundle/internal/config"
	"git.home.luguber.info/inful/cdnbundle/internal/logfields"
	"git.home.luguber.info/inful/cdnbundle/internal/observability"
	"git.home.luguber.info/inful/cdnbundle/internal/pipeline"
	"git.home.luguber.info/inful/cdnbundle/internal/watch"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Watch  bool   `short:"w" help:"Rebuild the current version directory whenever sources change"`
	Output string `short:"o" help:"Override output.directory" type:"path"`

	// bundler is injectable for tests; nil means esbuild.
	bundler bundle.Bundler
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithCommand(ctx, "build")

	return b.run(ctx, cfg)
}

func (b *BuildCmd) run(ctx context.Context, cfg *config.Config) error {
	req, err := b.request(cfg)
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

	svc := pipeline.NewService(b.bundlerOrDefault()).WithLedger(ledger).WithRecorder(m.recorder)

	res, err := svc.Run(ctx, req)
	if err != nil {
		fmt.Println("Build failed")
		return err
	}
	printBuild(res, req)

	if !b.Watch {
		return nil
	}
	return b.watch(ctx, cfg, svc, req)
}

func (b *BuildCmd) request(cfg *config.Config) (pipeline.Request, error) {
	spec, err := cfg.BuildSpec()
	if err != nil {
		return pipeline.Request{}, err
	}
	out := cfg.OutputDir()
	if b.Output != "" {
		out = b.Output
	}
	return pipeline.Request{
		Spec:         spec,
		ManifestPath: cfg.ManifestPath(),
		OutputDir:    out,
		Alias:        cfg.Output.Alias,
		Examples:     cfg.Output.ExamplesEnabled(),
	}, nil
}

func (b *BuildCmd) bundlerOrDefault() bundle.Bundler {
	if b.bundler != nil {
		return b.bundler
	}
	return bundle.NewEsbuildBundler()
}

// watch re-emits into the current version directory until ctx is canceled.
func (b *BuildCmd) watch(ctx context.Context, cfg *config.Config, svc *pipeline.Service, req pipeline.Request) error {
	paths := make([]string, 0, len(cfg.Watch.Paths))
	for _, p := range cfg.Watch.Paths {
		paths = append(paths, cfg.Path(p))
	}
	if len(paths) == 0 {
		paths = []string{filepath.Dir(req.Spec.EntryPoint)}
	}

	w, err := watch.New(watch.Options{
		Paths:        paths,
		Ignore:       []string{req.OutputDir},
		Debounce:     cfg.Watch.DebounceDuration(),
		PollInterval: cfg.Watch.PollDuration(),
	}, func(ctx context.Context) {
		res, err := svc.EmitOnly(ctx, req)
		if err != nil {
			observability.ErrorContext(ctx, "Rebuild failed", logfields.Error(err))
			return
		}
		observability.InfoContext(ctx, "Rebuilt", logfields.Path(res.VersionDir), logfields.Version(res.Version.String()))
	})
	if err != nil {
		return err
	}

	fmt.Println("Watching for changes (Ctrl-C to stop)")
	return w.Run(ctx)
}

func printBuild(res *pipeline.Result, req pipeline.Request) {
	fmt.Printf("Built %s v%s into %s\n", req.Spec.Name, res.Version, res.VersionDir)
	for _, f := range res.Files {
		fmt.Printf("  %s\n", filepath.Base(f))
	}
	for _, f := range res.Examples {
		fmt.Printf("  %s\n", filepath.Base(f))
	}
	fmt.Printf("%s -> %s\n", filepath.Join(req.OutputDir, req.Alias), res.Version.DirName())
}
