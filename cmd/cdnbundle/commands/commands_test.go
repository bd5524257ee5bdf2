package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	"git.home.luguber.info/inful/cdnbundle/internal/config"
	"git.home.luguber.info/inful/cdnbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

type stubBundler struct{}

func (stubBundler) Bundle(_ context.Context, req bundle.Request) (*bundle.Output, error) {
	out := &bundle.Output{
		Code:     []byte("var " + req.GlobalName + " = {format: '" + string(req.Format) + "'};\n"),
		Metafile: `{"inputs":{"src/index.mjs":{"bytes":40}},"outputs":{"out.js":{"bytes":40,"inputs":{"src/index.mjs":{"bytesInOutput":30}}}}}`,
	}
	if req.SourceMap {
		out.SourceMap = []byte(`{"version":3,"sources":[]}`)
	}
	return out, nil
}

const testConfig = `package:
  name: openai-sdk
  entry_point: src/index.mjs
bundle:
  global_name: OpenAI
output:
  directory: dist
cdn:
  root: cdn
  base_url: https://cdn.example.com
  author:
    name: Release Bot
    email: bot@example.com
history:
  path: .cdnbundle/history.db
`

type project struct {
	dir  string
	cfg  *config.Config
	repo *gogit.Repository
}

func newProject(t *testing.T, version string) *project {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "index.mjs"), []byte("export const x = 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"openai","version":"`+version+`"}`), 0o644))
	cfgPath := filepath.Join(dir, config.DefaultFilename)
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))

	repo, err := gogit.PlainInit(filepath.Join(dir, "cdn"), false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cdn", "README.md"), []byte("cdn\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	sig := &object.Signature{Name: "init", Email: "init@example.com", When: time.Now()}
	_, err = wt.Commit("init", &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	return &project{dir: dir, cfg: cfg, repo: repo}
}

func (p *project) head(t *testing.T) string {
	t.Helper()
	ref, err := p.repo.Head()
	require.NoError(t, err)
	return ref.Hash().String()
}

func (p *project) events(t *testing.T) []string {
	t.Helper()
	store, err := eventstore.NewSQLiteStore(p.cfg.Path(p.cfg.History.Path))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	events, err := store.Recent(context.Background(), 50)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		types = append(types, events[i].Type)
	}
	return types
}

func TestBuildThenDeploy(t *testing.T) {
	p := newProject(t, "1.2.0")
	ctx := context.Background()

	build := &BuildCmd{bundler: stubBundler{}}
	require.NoError(t, build.run(ctx, p.cfg))

	versionDir := filepath.Join(p.dir, "dist", "v-1.2.0")
	assert.FileExists(t, filepath.Join(versionDir, "openai-sdk.min.js"))
	target, err := os.Readlink(filepath.Join(p.dir, "dist", "v-latest"))
	require.NoError(t, err)
	assert.Equal(t, "v-1.2.0", target)

	before := p.head(t)
	deploy := &DeployCmd{}
	require.NoError(t, deploy.run(ctx, p.cfg))
	assert.NotEqual(t, before, p.head(t))
	assert.FileExists(t, filepath.Join(p.dir, "cdn", "libs", "openai-sdk", "v-1.2.0", "openai-sdk.esm.js"))

	// Second deploy of the same version: declined prompt leaves the repository alone.
	committed := p.head(t)
	declined := &DeployCmd{confirm: func(string) (bool, error) { return false, nil }}
	err = declined.run(ctx, p.cfg)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConflict))
	assert.Equal(t, committed, p.head(t))

	// Forced redeploy of identical artifacts produces no commit.
	forced := &DeployCmd{Force: true}
	require.NoError(t, forced.run(ctx, p.cfg))
	assert.Equal(t, committed, p.head(t))

	assert.Equal(t, []string{
		eventstore.TypeBuildCompleted,
		eventstore.TypeDeployCommitted,
		eventstore.TypeDeployDeclined,
		eventstore.TypeDeployNoop,
	}, p.events(t))

	var out bytes.Buffer
	require.NoError(t, (&HistoryCmd{Limit: 10}).run(ctx, p.cfg, &out))
	assert.Contains(t, out.String(), eventstore.TypeDeployCommitted)
	assert.Contains(t, out.String(), "1.2.0")
	assert.Contains(t, out.String(), "Local builds: v-1.2.0")
	assert.Contains(t, out.String(), "v-latest -> v-1.2.0")

	out.Reset()
	require.NoError(t, (&HistoryCmd{Version: "9.9.9"}).run(ctx, p.cfg, &out))
	assert.Contains(t, out.String(), "No recorded events")
}

func TestDeployWithoutBuild(t *testing.T) {
	p := newProject(t, "2.0.0")

	err := (&DeployCmd{}).run(context.Background(), p.cfg)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPrecondition))
}

func TestBuildOutputOverride(t *testing.T) {
	p := newProject(t, "1.0.0")
	out := filepath.Join(t.TempDir(), "out")

	require.NoError(t, (&BuildCmd{Output: out, bundler: stubBundler{}}).run(context.Background(), p.cfg))
	assert.DirExists(t, filepath.Join(out, "v-1.0.0"))
	assert.NoDirExists(t, filepath.Join(p.dir, "dist", "v-1.0.0"))
}

func TestHistoryDisabled(t *testing.T) {
	p := newProject(t, "1.0.0")
	p.cfg.History.Path = ""

	err := (&HistoryCmd{Limit: 5}).run(context.Background(), p.cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFilename)

	require.NoError(t, RunInit(path, false))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai-sdk", cfg.Package.Name)

	err = RunInit(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	require.NoError(t, RunInit(path, true))
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	c, _ := ferrors.AsClassified(err)
	assert.Contains(t, c.Remedy(), "cdnbundle init")
}
