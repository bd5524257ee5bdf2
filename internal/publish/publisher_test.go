package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/git"
	"git.home.luguber.info/inful/cdnbundle/internal/layout"
	"git.home.luguber.info/inful/cdnbundle/internal/manifest"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

type fixture struct {
	dist    string
	cdnRoot string
	repo    *gogit.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		dist:    filepath.Join(base, "dist"),
		cdnRoot: filepath.Join(base, "cdn"),
	}

	repo, err := gogit.PlainInit(f.cdnRoot, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.cdnRoot, "README.md"), []byte("cdn\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	sig := &object.Signature{Name: "init", Email: "init@example.com", When: fixedNow}
	_, err = wt.Commit("init", &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	f.repo = repo
	return f
}

// writeBuild fills dist/v-<version> with every artifact, each containing content.
func (f *fixture) writeBuild(t *testing.T, version, content string) {
	t.Helper()
	dir := filepath.Join(f.dist, "v-"+version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range bundle.ExpectedFiles("openai-sdk", bundle.Formats, bundle.Variants) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content+" "+name), 0o644))
	}
}

func (f *fixture) request(version string) Request {
	return Request{
		Package:   "openai-sdk",
		Version:   layout.VersionTag(version),
		DistDir:   f.dist,
		CDNRoot:   f.cdnRoot,
		Author:    git.Signature{Name: "Release Bot", Email: "bot@example.com"},
		Changelog: []string{"Added ESM bundles"},
		BaseURL:   "https://cdn.example.com/",
	}
}

func (f *fixture) head(t *testing.T) string {
	t.Helper()
	ref, err := f.repo.Head()
	require.NoError(t, err)
	return ref.Hash().String()
}

func (f *fixture) headCommit(t *testing.T) *object.Commit {
	t.Helper()
	ref, err := f.repo.Head()
	require.NoError(t, err)
	commit, err := f.repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return commit
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.cdnRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func newPublisher(confirm ConfirmFunc) *Publisher {
	return New(confirm).WithClock(func() time.Time { return fixedNow })
}

func TestPublish_FirstDeploy(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")
	before := f.head(t)

	res, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)

	assert.Equal(t, "libs/openai-sdk/v-1.2.0", res.VersionDir)
	assert.Len(t, res.Files, 10)
	assert.False(t, res.Replaced)
	assert.False(t, res.NoChanges)
	assert.True(t, res.Held)
	assert.False(t, res.Pushed)
	assert.NotEqual(t, before, res.Commit)
	assert.Equal(t, res.Commit, f.head(t))

	assert.Equal(t, "build-a openai-sdk.umd.min.js", f.read(t, "libs/openai-sdk/v-1.2.0/openai-sdk.umd.min.js"))
	target, err := os.Readlink(filepath.Join(f.cdnRoot, "libs", "openai-sdk", "v-latest"))
	require.NoError(t, err)
	assert.Equal(t, "v-1.2.0", target)

	commit := f.headCommit(t)
	assert.True(t, strings.HasPrefix(commit.Message, "Update openai-sdk to v1.2.0\n\n"))
	assert.Contains(t, commit.Message, "- Added ESM bundles\n")
	assert.Contains(t, commit.Message, "- Generated: 2025-03-14T15:09:26Z")
	assert.Equal(t, "Release Bot", commit.Author.Name)

	assert.Equal(t, []string{
		"https://cdn.example.com/libs/openai-sdk/v-1.2.0/openai-sdk.min.js",
		"https://cdn.example.com/libs/openai-sdk/v-1.2.0/openai-sdk.esm.min.js",
		"https://cdn.example.com/libs/openai-sdk/v-1.2.0/openai-sdk.umd.min.js",
		"https://cdn.example.com/libs/openai-sdk/v-latest/",
	}, res.URLs)
}

func TestPublish_ExistingVersionWithoutForceIsConflict(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")
	_, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)
	before := f.head(t)

	f.writeBuild(t, "1.2.0", "build-b")

	t.Run("no confirmer", func(t *testing.T) {
		_, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConflict))
	})

	t.Run("declined", func(t *testing.T) {
		var asked string
		confirm := func(q string) (bool, error) {
			asked = q
			return false, nil
		}
		_, err := newPublisher(confirm).Publish(context.Background(), f.request("1.2.0"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConflict))
		assert.Contains(t, asked, "v-1.2.0 already exists")
	})

	t.Run("confirmer error", func(t *testing.T) {
		confirm := func(string) (bool, error) { return false, errors.New("stdin closed") }
		_, err := newPublisher(confirm).Publish(context.Background(), f.request("1.2.0"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryInternal))
	})

	assert.Equal(t, before, f.head(t), "no commit after a declined overwrite")
	assert.Equal(t, "build-a openai-sdk.js", f.read(t, "libs/openai-sdk/v-1.2.0/openai-sdk.js"))
}

func TestPublish_ConfirmedOverwriteReplaces(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")
	_, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)

	f.writeBuild(t, "1.2.0", "build-b")
	res, err := newPublisher(func(string) (bool, error) { return true, nil }).
		Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, "build-b openai-sdk.js", f.read(t, "libs/openai-sdk/v-1.2.0/openai-sdk.js"))
}

func TestPublish_ForceReplacesAndRemovesStaleFiles(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")
	_, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)
	first := f.head(t)

	stale := filepath.Join(f.cdnRoot, "libs", "openai-sdk", "v-1.2.0", "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("left over"), 0o644))

	f.writeBuild(t, "1.2.0", "build-b")
	req := f.request("1.2.0")
	req.Force = true
	res, err := newPublisher(func(string) (bool, error) {
		t.Fatal("force must not prompt")
		return false, nil
	}).Publish(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Replaced)
	assert.NotEqual(t, first, res.Commit)
	assert.Equal(t, "build-b openai-sdk.esm.min.js", f.read(t, "libs/openai-sdk/v-1.2.0/openai-sdk.esm.min.js"))
	assert.NoFileExists(t, stale)
}

func TestPublish_CleanRedeployIsNoChanges(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")
	_, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)
	before := f.head(t)

	req := f.request("1.2.0")
	req.Force = true
	req.Push = true
	res, err := newPublisher(nil).Publish(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.NoChanges)
	assert.Equal(t, before, res.Commit, "a no-op deploy reports the commit that already holds the release")
	assert.False(t, res.Pushed, "nothing is pushed when nothing was committed")
	assert.Equal(t, before, f.head(t))
}

func TestPublish_NewVersionMovesAliasAndKeepsOld(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")
	f.writeBuild(t, "1.3.0", "build-c")

	_, err := newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)
	_, err = newPublisher(nil).Publish(context.Background(), f.request("1.3.0"))
	require.NoError(t, err)

	target, err := os.Readlink(filepath.Join(f.cdnRoot, "libs", "openai-sdk", "v-latest"))
	require.NoError(t, err)
	assert.Equal(t, "v-1.3.0", target)
	assert.Equal(t, "build-a openai-sdk.js", f.read(t, "libs/openai-sdk/v-1.2.0/openai-sdk.js"))
	assert.Equal(t, "build-c openai-sdk.js", f.read(t, "libs/openai-sdk/v-latest/openai-sdk.js"))
}

func TestPublish_SkipsAbsentArtifacts(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.dist, "v-1.0.0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai-sdk.min.js"), []byte("min"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "example-iife.html"), []byte("<html>"), 0o644))

	res, err := newPublisher(nil).Publish(context.Background(), f.request("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"openai-sdk.min.js"}, res.Files)
	assert.NoFileExists(t, filepath.Join(f.cdnRoot, "libs", "openai-sdk", "v-1.0.0", "example-iife.html"))
}

func TestPublish_Preconditions(t *testing.T) {
	t.Run("build missing", func(t *testing.T) {
		f := newFixture(t)
		_, err := newPublisher(nil).Publish(context.Background(), f.request("9.9.9"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPrecondition))
		ce, _ := ferrors.AsClassified(err)
		assert.Contains(t, ce.Remedy(), "cdnbundle build")
	})

	t.Run("cdn root missing", func(t *testing.T) {
		f := newFixture(t)
		f.writeBuild(t, "1.0.0", "x")
		req := f.request("1.0.0")
		req.CDNRoot = filepath.Join(t.TempDir(), "nope")
		_, err := newPublisher(nil).Publish(context.Background(), req)
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPrecondition))
	})

	t.Run("cdn root not a repository", func(t *testing.T) {
		f := newFixture(t)
		f.writeBuild(t, "1.0.0", "x")
		req := f.request("1.0.0")
		req.CDNRoot = t.TempDir()
		_, err := newPublisher(nil).Publish(context.Background(), req)
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPrecondition))
		assert.NoDirExists(t, filepath.Join(req.CDNRoot, "libs"))
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := newPublisher(nil).Publish(context.Background(), Request{})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	})
}

func TestPublish_VerifiesBuildManifest(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")

	dir := filepath.Join(f.dist, "v-1.2.0")
	m := manifest.New("run-1", "openai-sdk", "1.2.0", bundle.Spec{}, fixedNow)
	data, err := os.ReadFile(filepath.Join(dir, "openai-sdk.js"))
	require.NoError(t, err)
	m.AddRecord(bundle.ArtifactRecord{Format: bundle.FormatIIFE, Filename: "openai-sdk.js", Contents: data})
	_, err = manifest.Write(f.dist, "v-1.2.0", m)
	require.NoError(t, err)

	_, err = newPublisher(nil).Publish(context.Background(), f.request("1.2.0"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai-sdk.js"), []byte("tampered"), 0o644))
	req := f.request("1.2.0")
	req.Force = true
	_, err = newPublisher(nil).Publish(context.Background(), req)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPrecondition))
}

func TestPublish_PushToRemote(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")

	bare := t.TempDir()
	remote, err := gogit.PlainInit(bare, true)
	require.NoError(t, err)
	_, err = f.repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)

	req := f.request("1.2.0")
	req.Push = true
	res, err := newPublisher(nil).Publish(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.False(t, res.Held)
	assert.False(t, res.UpToDate)
	assert.Equal(t, bare, res.RemoteURL)

	head, err := f.repo.Head()
	require.NoError(t, err)
	ref, err := remote.Reference(head.Name(), true)
	require.NoError(t, err)
	assert.Equal(t, res.Commit, ref.Hash().String())
}

func TestPublish_PushToMissingRemoteIsGitError(t *testing.T) {
	f := newFixture(t)
	f.writeBuild(t, "1.2.0", "build-a")

	req := f.request("1.2.0")
	req.Push = true
	req.Remote = "nowhere"
	_, err := newPublisher(nil).Publish(context.Background(), req)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGit))
	assert.True(t, strings.Contains(err.Error(), "push"))
}

func TestCommitMessage(t *testing.T) {
	req := Request{Package: "openai-sdk", Version: "1.3.0", Alias: "v-latest", Changelog: []string{"Fix streaming", "  "}}
	msg := CommitMessage(req, fixedNow)
	assert.Equal(t, "Update openai-sdk to v1.3.0\n\n- Fix streaming\n- Updated v-latest -> v-1.3.0\n- Generated: 2025-03-14T15:09:26Z\n", msg)
}

func TestResolveAuthor(t *testing.T) {
	got := resolveAuthor(
		git.Signature{Name: "Configured"},
		git.Signature{Name: "Git Config", Email: "git@example.com"},
		git.Signature{Name: "cdnbundle", Email: "cdnbundle@localhost"},
	)
	assert.Equal(t, git.Signature{Name: "Configured", Email: "git@example.com"}, got)
}
