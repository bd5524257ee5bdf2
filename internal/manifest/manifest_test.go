package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
)

func sample(t *testing.T) *BuildManifest {
	t.Helper()
	spec := bundle.Spec{
		EntryPoint: "dist/index.mjs",
		Formats:    []bundle.Format{bundle.FormatIIFE, bundle.FormatUMD},
		Variants:   []bundle.Variant{bundle.VariantRaw},
		GlobalName: "SDK",
	}
	m := New(uuid.NewString(), "sdk", "1.2.0", spec, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	m.AddRecord(bundle.ArtifactRecord{Format: bundle.FormatIIFE, Filename: "sdk.js", Contents: []byte("iife"), SourceMapFilename: "sdk.js.map", SourceMap: []byte("{}")})
	m.AddRecord(bundle.ArtifactRecord{Format: bundle.FormatUMD, Filename: "sdk.umd.js", Contents: []byte("umd")})
	m.AddExample("example-iife.html", []byte("<html></html>"))
	return m
}

func TestNew_RecordsArtifacts(t *testing.T) {
	m := sample(t)

	_, err := uuid.Parse(m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"iife", "umd"}, m.Spec.Formats)
	assert.Equal(t, []string{"example-iife.html", "sdk.js", "sdk.js.map", "sdk.umd.js"}, m.Files())
	assert.Equal(t, 4, m.Artifacts[0].Bytes)
	assert.Len(t, m.Artifacts[0].SHA256, 64)
}

func TestWriteRead(t *testing.T) {
	dist := t.TempDir()
	m := sample(t)

	p, err := Write(dist, "v-1.2.0", m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dist, ".manifests", "v-1.2.0.json"), p)

	got, err := Read(dist, "v-1.2.0")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Artifacts, got.Artifacts)

	_, err = Read(dist, "v-9.9.9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHash_IgnoresIdentityAndOrder(t *testing.T) {
	a := sample(t)
	b := sample(t)
	b.Artifacts[0], b.Artifacts[1] = b.Artifacts[1], b.Artifacts[0]

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, ha, hb)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	m := sample(t)
	for name, body := range map[string]string{
		"sdk.js": "iife", "sdk.js.map": "{}", "sdk.umd.js": "umd", "example-iife.html": "<html></html>",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, m.Verify(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sdk.js"), []byte("tampered"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "sdk.umd.js")))

	err := m.Verify(dir)
	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []Mismatch{
		{File: "sdk.js", Reason: "changed since build"},
		{File: "sdk.umd.js", Reason: "is missing"},
	}, verr.Mismatches)
	assert.Contains(t, err.Error(), "2 artifacts")
}
