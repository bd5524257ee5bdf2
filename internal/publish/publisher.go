package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/cdnbundle/internal/alias"
	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/git"
	"git.home.luguber.info/inful/cdnbundle/internal/layout"
	"git.home.luguber.info/inful/cdnbundle/internal/logfields"
	"git.home.luguber.info/inful/cdnbundle/internal/manifest"
	"git.home.luguber.info/inful/cdnbundle/internal/metrics"
	"git.home.luguber.info/inful/cdnbundle/internal/observability"
)

// Stage names used for logging and metrics.
const (
	StageValidate = "validate"
	StageStage    = "stage"
	StageCommit   = "commit"
	StagePush     = "push"
)

// Publisher runs deploys.
type Publisher struct {
	confirm  ConfirmFunc
	now      func() time.Time
	recorder metrics.Recorder
}

// New returns a Publisher. A nil confirm treats every existing version as a
// declined overwrite unless Request.Force is set.
func New(confirm ConfirmFunc) *Publisher {
	return &Publisher{
		confirm:  confirm,
		now:      time.Now,
		recorder: metrics.NoopRecorder{},
	}
}

// WithClock overrides the commit timestamp source.
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// WithRecorder sets the metrics recorder.
func (p *Publisher) WithRecorder(r metrics.Recorder) *Publisher {
	if r != nil {
		p.recorder = r
	}
	return p
}

// Publish runs Validate, Stage, Commit and then Push or Hold.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	ctx = observability.WithVersion(ctx, req.Version.String())

	var repo *git.Repository
	var srcDir string
	err := p.stage(ctx, StageValidate, func(ctx context.Context) error {
		var err error
		srcDir, repo, err = p.validate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{VersionDir: path.Join(req.LibsDir, req.Package, req.Version.DirName())}
	res.URLs = urls(req)

	if err := p.stage(ctx, StageStage, func(ctx context.Context) error {
		return p.copyRelease(ctx, req, srcDir, res)
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, StageCommit, func(ctx context.Context) error {
		return p.commit(ctx, repo, req, res)
	}); err != nil {
		return nil, err
	}
	if res.NoChanges {
		p.recorder.IncStageResult(StagePush, metrics.ResultSkipped)
		return res, nil
	}

	if !req.Push {
		res.Held = true
		p.recorder.IncStageResult(StagePush, metrics.ResultSkipped)
		observability.InfoContext(ctx, "Commit held locally; push it from the CDN repository or deploy with --push",
			logfields.Path(req.CDNRoot), logfields.Commit(res.Commit))
		return res, nil
	}

	if err := p.stage(ctx, StagePush, func(ctx context.Context) error {
		return p.push(ctx, repo, req, res)
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Publisher) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, name)
	start := time.Now()
	err := fn(ctx)
	p.recorder.ObserveStageDuration(name, time.Since(start))
	switch {
	case err == nil:
		p.recorder.IncStageResult(name, metrics.ResultSuccess)
	case errors.Is(err, context.Canceled):
		p.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		p.recorder.IncStageResult(name, metrics.ResultFailed)
		observability.DebugContext(ctx, "Deploy stage failed", logfields.Error(err))
	}
	return err
}

func (p *Publisher) validate(ctx context.Context, req Request) (string, *git.Repository, error) {
	dist := layout.NewManager(req.DistDir)
	srcDir := dist.VersionDir(req.Version)
	if !dist.Exists(req.Version) {
		return "", nil, ferrors.PreconditionError(fmt.Sprintf("build not yet produced: %s does not exist", srcDir)).
			WithContext("path", srcDir).
			WithRemedy("run `cdnbundle build` first").
			Build()
	}

	m, err := manifest.Read(req.DistDir, req.Version.DirName())
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		observability.DebugContext(ctx, "No build manifest; skipping artifact verification", logfields.Path(srcDir))
	case err != nil:
		return "", nil, ferrors.FileSystemError("failed to read build manifest").WithCause(err).Build()
	default:
		if err := m.Verify(srcDir); err != nil {
			return "", nil, ferrors.PreconditionError("build output changed since it was built").
				WithCause(err).
				WithContext("path", srcDir).
				WithRemedy("run `cdnbundle build` again before deploying").
				Build()
		}
	}

	if info, err := os.Stat(req.CDNRoot); err != nil || !info.IsDir() {
		return "", nil, ferrors.PreconditionError(fmt.Sprintf("CDN repository not found at %s", req.CDNRoot)).
			WithContext("path", req.CDNRoot).
			WithRemedy("clone the CDN repository there or point cdn.root at it").
			Build()
	}

	repo, err := git.Open(req.CDNRoot)
	if err != nil {
		if errors.Is(err, git.ErrNotRepository) || errors.Is(err, git.ErrBareRepository) {
			return "", nil, ferrors.PreconditionError(fmt.Sprintf("%s is not a git working copy", req.CDNRoot)).
				WithCause(err).
				WithContext("path", req.CDNRoot).
				WithRemedy("cdn.root must be a cloned, non-bare git repository").
				Build()
		}
		return "", nil, git.ClassifyGitError(err, "open", "")
	}
	return srcDir, repo, nil
}

func (p *Publisher) copyRelease(ctx context.Context, req Request, srcDir string, res *Result) error {
	libDir := filepath.Join(req.CDNRoot, filepath.FromSlash(req.LibsDir), req.Package)
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return ferrors.FileSystemError("failed to create library directory").WithCause(err).WithContext("path", libDir).Build()
	}

	dst := filepath.Join(libDir, req.Version.DirName())
	if _, err := os.Lstat(dst); err == nil {
		if err := p.approveOverwrite(ctx, req, res.VersionDir); err != nil {
			return err
		}
		if err := os.RemoveAll(dst); err != nil {
			return ferrors.FileSystemError("failed to remove existing version").WithCause(err).WithContext("path", dst).Build()
		}
		res.Replaced = true
		observability.InfoContext(ctx, "Removed existing version", logfields.Path(res.VersionDir))
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return ferrors.FileSystemError("failed to create version directory").WithCause(err).WithContext("path", dst).Build()
	}

	for _, name := range bundle.ExpectedFiles(req.Name, req.Formats, req.Variants) {
		src := filepath.Join(srcDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(dst, name)); err != nil {
			return ferrors.FileSystemError("failed to copy artifact").WithCause(err).WithContext("file", name).Build()
		}
		res.Files = append(res.Files, name)
		observability.DebugContext(ctx, "Copied artifact", logfields.File(name))
	}

	if err := alias.Update(libDir, req.Version.DirName(), req.Alias); err != nil {
		return err
	}
	observability.InfoContext(ctx, "Staged release",
		logfields.Path(res.VersionDir),
		slog.Int("files", len(res.Files)),
		logfields.Alias(req.Alias))
	return nil
}

func (p *Publisher) approveOverwrite(ctx context.Context, req Request, rel string) error {
	if req.Force {
		return nil
	}
	declined := ferrors.ConflictError(fmt.Sprintf("version %s already exists in the CDN repository", req.Version.DirName())).
		WithContext("path", rel).
		WithRemedy("re-run with --force to overwrite it").
		Build()
	if p.confirm == nil {
		return declined
	}
	observability.WarnContext(ctx, "Version already exists in CDN", logfields.Path(rel))
	ok, err := p.confirm(fmt.Sprintf("Version %s already exists in the CDN repository. Overwrite?", req.Version.DirName()))
	if err != nil {
		return ferrors.InternalError("confirmation failed").WithCause(err).Build()
	}
	if !ok {
		return declined
	}
	return nil
}

func (p *Publisher) commit(ctx context.Context, repo *git.Repository, req Request, res *Result) error {
	rel := path.Join(req.LibsDir, req.Package)
	if err := repo.StageDir(rel); err != nil {
		return git.ClassifyGitError(err, "add", "")
	}

	changed, err := repo.StagedChanges()
	if err != nil {
		return git.ClassifyGitError(err, "status", "")
	}
	if !changed {
		head, err := repo.Head()
		if err != nil {
			return git.ClassifyGitError(err, "rev-parse", "")
		}
		res.NoChanges = true
		if !head.IsZero() {
			res.Commit = head.String()
		}
		observability.InfoContext(ctx, "No changes to commit", logfields.Path(rel), logfields.Commit(res.Commit))
		return nil
	}

	author := resolveAuthor(req.Author, repo.ConfiguredAuthor(), req.FallbackAuthor)
	hash, err := repo.Commit(CommitMessage(req, p.now()), author, p.now())
	if err != nil {
		return git.ClassifyGitError(err, "commit", "")
	}
	res.Commit = hash.String()
	observability.InfoContext(ctx, "Committed release", logfields.Commit(res.Commit))
	return nil
}

func (p *Publisher) push(ctx context.Context, repo *git.Repository, req Request, res *Result) error {
	url, err := repo.RemoteURL(req.Remote)
	if err != nil {
		return git.ClassifyGitError(err, "push", req.Remote)
	}
	upToDate, err := repo.Push(ctx, req.Remote, req.Auth)
	if err != nil {
		return git.ClassifyGitError(err, "push", req.Remote)
	}
	res.Pushed = true
	res.UpToDate = upToDate
	res.RemoteURL = url
	observability.InfoContext(ctx, "Pushed release", logfields.Remote(req.Remote),
		slog.String("url", url), slog.Bool("up_to_date", upToDate))
	return nil
}

// CommitMessage renders the deploy commit message.
func CommitMessage(req Request, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Update %s to v%s\n\n", req.Package, req.Version)
	for _, line := range req.Changelog {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	fmt.Fprintf(&b, "- Updated %s -> %s\n", req.Alias, req.Version.DirName())
	fmt.Fprintf(&b, "- Generated: %s\n", at.UTC().Format(time.RFC3339))
	return b.String()
}

func resolveAuthor(sigs ...git.Signature) git.Signature {
	var out git.Signature
	for _, s := range sigs {
		if out.Name == "" {
			out.Name = s.Name
		}
		if out.Email == "" {
			out.Email = s.Email
		}
	}
	return out
}

// urls lists the CDN URL of the preferred artifact of each format plus the
// alias directory.
func urls(req Request) []string {
	if req.BaseURL == "" {
		return nil
	}
	minified := false
	for _, v := range req.Variants {
		if v.Minified() {
			minified = true
		}
	}
	base := strings.TrimRight(req.BaseURL, "/") + "/" + path.Join(req.LibsDir, req.Package)
	var out []string
	for _, f := range bundle.Formats {
		for _, want := range req.Formats {
			if f == want {
				out = append(out, base+"/"+req.Version.DirName()+"/"+bundle.Filename(req.Name, f, minified))
			}
		}
	}
	return append(out, base+"/"+req.Alias+"/")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
