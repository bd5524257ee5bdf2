package bundle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

type fakeBundler struct {
	requests []Request
	failOn   Format
	failMin  bool
}

func (f *fakeBundler) Bundle(_ context.Context, req Request) (*Output, error) {
	f.requests = append(f.requests, req)
	if f.failOn != "" && req.Format == f.failOn && req.Minify == f.failMin {
		return nil, &BuildError{Messages: []string{`✘ [ERROR] Could not resolve "missing-dep"`}}
	}
	code := "var " + req.GlobalName + " = (function () { return { format: '" + string(req.Format) + "' }; })();\n"
	if req.Banner != "" {
		code = req.Banner + "\n" + code
	}
	out := &Output{Code: []byte(code), Metafile: `{"inputs":{},"outputs":{}}`}
	if req.SourceMap {
		out.SourceMap = []byte(`{"version":3,"sources":[]}`)
	}
	return out, nil
}

var fixedClock = func() time.Time { return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC) }

func TestEmitter_EmitAllCombinations(t *testing.T) {
	fb := &fakeBundler{}
	spec := fullSpec()
	spec.Banner = "OpenAI SDK Bundle"

	records, err := NewEmitter(fb).WithClock(fixedClock).Emit(t.Context(), spec, t.TempDir())
	require.NoError(t, err)
	require.Len(t, records, 6)
	require.Len(t, fb.requests, 6)

	var names []string
	for _, r := range records {
		names = append(names, r.Filename)
	}
	assert.Equal(t, []string{
		"openai-sdk.js", "openai-sdk.min.js",
		"openai-sdk.esm.js", "openai-sdk.esm.min.js",
		"openai-sdk.umd.js", "openai-sdk.umd.min.js",
	}, names)

	for _, r := range records[:4] {
		assert.Equal(t, r.Filename+".map", r.SourceMapFilename)
		assert.NotEmpty(t, r.SourceMap)
		assert.True(t, strings.HasPrefix(string(r.Contents), "/* OpenAI SDK Bundle - Generated 2025-03-14T15:09:26Z */"))
	}
	for _, r := range records[4:] {
		assert.Equal(t, FormatUMD, r.Format)
		assert.Empty(t, r.SourceMapFilename)
		assert.Nil(t, r.SourceMap)
		assert.NotEmpty(t, r.WrappedFrom)
		assert.Contains(t, string(r.Contents), "define.amd")
		assert.Contains(t, string(r.Contents), string(r.WrappedFrom))
		assert.True(t, strings.HasPrefix(string(r.Contents), "/* OpenAI SDK Bundle"))
	}
}

func TestEmitter_RequestOptions(t *testing.T) {
	fb := &fakeBundler{}
	spec := fullSpec()
	spec.Define = map[string]string{"global": "window"}
	outDir := t.TempDir()

	_, err := NewEmitter(fb).Emit(t.Context(), spec, outDir)
	require.NoError(t, err)

	iife, esm, umdRaw := fb.requests[0], fb.requests[2], fb.requests[4]

	assert.Equal(t, FormatIIFE, iife.Format)
	assert.Equal(t, "OpenAIBundle", iife.GlobalName)
	assert.True(t, iife.SourceMap)
	assert.Equal(t, "window", iife.Define["global"])
	assert.True(t, strings.HasSuffix(iife.Outfile, "openai-sdk.js"))
	assert.False(t, iife.Minify)
	assert.True(t, fb.requests[1].Minify)

	assert.Equal(t, FormatESM, esm.Format)

	assert.Equal(t, FormatIIFE, umdRaw.Format, "UMD is built from an IIFE")
	assert.Equal(t, "__cdnbundle_umd", umdRaw.GlobalName)
	assert.False(t, umdRaw.SourceMap)
	assert.Empty(t, umdRaw.Banner, "banner is placed outside the UMD wrapper")
}

func TestEmitter_BundlerErrorAborts(t *testing.T) {
	fb := &fakeBundler{failOn: FormatESM, failMin: false}

	records, err := NewEmitter(fb).Emit(t.Context(), fullSpec(), t.TempDir())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Len(t, fb.requests, 3, "emission stops at the failing invocation")

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryBundler, ce.Category())
	assert.Contains(t, err.Error(), `Could not resolve "missing-dep"`)

	var be *BuildError
	assert.True(t, errors.As(err, &be))
}

func TestEmitter_InvalidSpec(t *testing.T) {
	fb := &fakeBundler{}
	spec := fullSpec()
	spec.Variants = nil

	_, err := NewEmitter(fb).Emit(t.Context(), spec, t.TempDir())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.Empty(t, fb.requests)
}

func TestEmitter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewEmitter(&fakeBundler{}).Emit(ctx, fullSpec(), t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBannerComment(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "/* SDK - Generated 2025-01-02T02:04:05Z */", BannerComment("SDK", at))
}
