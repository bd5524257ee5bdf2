package examples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

func testSpec() bundle.Spec {
	return bundle.Spec{
		EntryPoint: "dist/index.mjs",
		Name:       "openai-sdk",
		Formats:    []bundle.Format{bundle.FormatIIFE, bundle.FormatESM, bundle.FormatUMD},
		Variants:   []bundle.Variant{bundle.VariantRaw, bundle.VariantMinified},
		GlobalName: "OpenAI",
	}
}

func TestGenerate_OnePagePerFormat(t *testing.T) {
	pages, err := Generate(testSpec())
	require.NoError(t, err)
	require.Len(t, pages, 3)

	want := map[string][]string{
		"example-iife.html": {"openai-sdk.min.js"},
		"example-esm.html":  {"openai-sdk.esm.min.js"},
		"example-umd.html":  {"openai-sdk.umd.min.js"},
	}
	for _, p := range pages {
		refs, err := References(p.Contents)
		require.NoError(t, err)
		assert.Equal(t, want[p.Filename], refs, p.Filename)
	}

	assert.Contains(t, string(pages[0].Contents), "<title>openai-sdk IIFE example</title>")
	assert.Contains(t, string(pages[0].Contents), `window["OpenAI"]`)
	assert.Contains(t, string(pages[1].Contents), `<script type="module">`)
}

func TestGenerate_RawOnlyReferencesRawArtifacts(t *testing.T) {
	spec := testSpec()
	spec.Formats = []bundle.Format{bundle.FormatESM}
	spec.Variants = []bundle.Variant{bundle.VariantRaw}

	pages, err := Generate(spec)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	refs, err := References(pages[0].Contents)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai-sdk.esm.js"}, refs)
}

func TestGenerate_RendersMarkdownUsage(t *testing.T) {
	pages, err := Generate(testSpec())
	require.NoError(t, err)
	html := string(pages[2].Contents)
	assert.Contains(t, html, "<h1>openai-sdk (UMD)</h1>")
	assert.Contains(t, html, "<code>window.OpenAI</code>")
	assert.Contains(t, html, `<pre><code class="language-html">`)
}

func TestReferences_SkipsRemote(t *testing.T) {
	page := []byte(`<html><head>
<script src="https://cdn.example.com/lib.js"></script>
<script src="//cdn.example.com/lib2.js"></script>
<script src="local.js"></script>
<script type="module">import { a } from "./mod.js"; import "https://x.test/y.js";</script>
</head></html>`)
	refs, err := References(page)
	require.NoError(t, err)
	assert.Equal(t, []string{"local.js", "mod.js"}, refs)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	pages, err := Generate(testSpec())
	require.NoError(t, err)

	err = Verify(dir, pages)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	for _, f := range []string{"openai-sdk.min.js", "openai-sdk.esm.min.js", "openai-sdk.umd.min.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("//"), 0o600))
	}
	require.NoError(t, Verify(dir, pages))
}
