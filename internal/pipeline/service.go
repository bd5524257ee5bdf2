package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/cdnbundle/internal/alias"
	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	"git.home.luguber.info/inful/cdnbundle/internal/eventstore"
	"git.home.luguber.info/inful/cdnbundle/internal/examples"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/layout"
	"git.home.luguber.info/inful/cdnbundle/internal/logfields"
	"git.home.luguber.info/inful/cdnbundle/internal/manifest"
	"git.home.luguber.info/inful/cdnbundle/internal/metrics"
	"git.home.luguber.info/inful/cdnbundle/internal/observability"
	"git.home.luguber.info/inful/cdnbundle/internal/version"
)

// Stage names used for logging and metrics.
const (
	StageCheck    = "check"
	StageEmit     = "emit"
	StageWrite    = "write"
	StageExamples = "examples"
	StageAlias    = "alias"
	StageManifest = "manifest"
)

// Request describes one build.
type Request struct {
	Spec         bundle.Spec
	ManifestPath string // package.json holding the version
	OutputDir    string // dist root
	Alias        string
	Examples     bool
}

// Result reports what a build produced.
type Result struct {
	RunID        string
	Version      layout.VersionTag
	VersionDir   string
	Files        []string
	Examples     []string
	ManifestPath string
	Manifest     *manifest.BuildManifest
	Analysis     *bundle.Analysis
	Duration     time.Duration
}

// Service is the build pipeline.
type Service struct {
	bundler  bundle.Bundler
	ledger   eventstore.Store
	recorder metrics.Recorder
	now      func() time.Time
	newID    func() string
}

// NewService creates a Service around b.
func NewService(b bundle.Bundler) *Service {
	return &Service{
		bundler:  b,
		ledger:   eventstore.NopStore{},
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithLedger records build.completed events in store.
func (s *Service) WithLedger(store eventstore.Store) *Service {
	if store != nil {
		s.ledger = store
	}
	return s
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithClock overrides the clock used for banners and manifests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides run ID generation (for testing).
func (s *Service) WithIDGenerator(f func() string) *Service {
	s.newID = f
	return s
}

// Run executes the complete build.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx, req, true)
	s.finish("build", start, err)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	payload := eventstore.BuildCompleted{
		Files:        res.Manifest.Files(),
		Alias:        req.Alias,
		ManifestPath: res.ManifestPath,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if digest, err := res.Manifest.Hash(); err == nil {
		payload.Digest = digest
	}
	if ev, err := eventstore.NewEvent(res.RunID, eventstore.TypeBuildCompleted, req.Spec.Name, res.Version.String(), payload); err == nil {
		if err := s.ledger.Append(ctx, ev); err != nil {
			observability.WarnContext(ctx, "Failed to record build in ledger", logfields.Error(err))
		}
	}

	return res, nil
}

// EmitOnly re-emits the artifacts into the current version directory. It
// never touches the alias, examples, manifest or ledger; watch mode uses it.
func (s *Service) EmitOnly(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx, req, false)
	s.finish("rebuild", start, err)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Service) finish(command string, start time.Time, err error) {
	s.recorder.ObserveRunDuration(command, time.Since(start))
	switch {
	case err == nil:
		s.recorder.IncRunOutcome(command, string(metrics.ResultSuccess))
	case errors.Is(err, context.Canceled):
		s.recorder.IncRunOutcome(command, string(metrics.ResultCanceled))
	default:
		s.recorder.IncRunOutcome(command, string(metrics.ResultFailed))
	}
}

func (s *Service) run(ctx context.Context, req Request, full bool) (*Result, error) {
	if req.Alias == "" {
		req.Alias = layout.LatestAlias
	}
	res := &Result{RunID: s.newID()}
	ctx = observability.WithRunID(ctx, res.RunID)
	startedAt := s.now()

	if err := s.stage(ctx, StageCheck, func(context.Context) error {
		if err := layout.CheckEntryPoint(req.Spec.EntryPoint); err != nil {
			return err
		}
		tag, err := layout.ReadVersion(req.ManifestPath)
		if err != nil {
			return err
		}
		res.Version = tag
		return nil
	}); err != nil {
		return nil, err
	}
	ctx = observability.WithVersion(ctx, res.Version.String())

	mgr := layout.NewManager(req.OutputDir)
	res.VersionDir = mgr.VersionDir(res.Version)

	var records []bundle.ArtifactRecord
	if err := s.stage(ctx, StageEmit, func(ctx context.Context) error {
		var err error
		records, err = bundle.NewEmitter(s.bundler).WithClock(s.now).Emit(ctx, req.Spec, res.VersionDir)
		return err
	}); err != nil {
		return nil, err
	}

	if err := s.stage(ctx, StageWrite, func(ctx context.Context) error {
		files, err := mgr.Write(res.Version, records)
		if err != nil {
			return err
		}
		res.Files = files
		for _, r := range records {
			s.recorder.ObserveArtifactSize(string(r.Format), r.Minified, len(r.Contents))
		}
		observability.InfoContext(ctx, "Wrote artifacts",
			logfields.Path(res.VersionDir), slog.Int("files", len(files)))
		return nil
	}); err != nil {
		return nil, err
	}

	if !full {
		return res, nil
	}

	var pages []examples.Page
	if req.Examples {
		if err := s.stage(ctx, StageExamples, func(context.Context) error {
			var err error
			pages, err = examples.Generate(req.Spec)
			if err != nil {
				return err
			}
			for _, p := range pages {
				path, err := mgr.WriteFile(res.Version, p.Filename, p.Contents)
				if err != nil {
					return err
				}
				res.Examples = append(res.Examples, path)
			}
			return examples.Verify(res.VersionDir, pages)
		}); err != nil {
			return nil, err
		}
	} else {
		s.recorder.IncStageResult(StageExamples, metrics.ResultSkipped)
	}

	if err := s.stage(ctx, StageAlias, func(ctx context.Context) error {
		if err := alias.Update(req.OutputDir, res.Version.DirName(), req.Alias); err != nil {
			return err
		}
		observability.InfoContext(ctx, "Updated alias",
			logfields.Alias(req.Alias), logfields.Target(res.Version.DirName()))
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.stage(ctx, StageManifest, func(context.Context) error {
		m := manifest.New(res.RunID, req.Spec.Name, res.Version.String(), req.Spec, startedAt)
		m.Tool = "cdnbundle " + version.Version
		for _, r := range records {
			m.AddRecord(r)
		}
		for _, p := range pages {
			m.AddExample(p.Filename, p.Contents)
		}
		res.Analysis = analyze(ctx, records)
		m.Analysis = res.Analysis
		m.Duration = time.Since(startedAt).Milliseconds()

		path, err := manifest.Write(req.OutputDir, res.Version.DirName(), m)
		if err != nil {
			return ferrors.FileSystemError("failed to write build manifest").WithCause(err).Build()
		}
		res.ManifestPath = path
		res.Manifest = m
		return nil
	}); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, name)
	start := time.Now()
	err := fn(ctx)
	s.recorder.ObserveStageDuration(name, time.Since(start))
	switch {
	case err == nil:
		s.recorder.IncStageResult(name, metrics.ResultSuccess)
	case errors.Is(err, context.Canceled):
		s.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		s.recorder.IncStageResult(name, metrics.ResultFailed)
		observability.ErrorContext(ctx, "Build stage failed", logfields.Error(err))
	}
	return err
}

// analyze summarises the first raw IIFE or ESM metafile; UMD metafiles
// describe the synthetic build and are skipped.
func analyze(ctx context.Context, records []bundle.ArtifactRecord) *bundle.Analysis {
	for _, r := range records {
		if r.Metafile == "" || r.Format == bundle.FormatUMD || r.Minified {
			continue
		}
		a, err := bundle.Analyze(r.Metafile)
		if err != nil {
			observability.WarnContext(ctx, "Could not analyze metafile", logfields.Error(err))
			return nil
		}
		return a
	}
	return nil
}
