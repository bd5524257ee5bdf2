package bundle

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// EsbuildBundler is the production Bundler backed by the esbuild Go API.
// Output is kept in memory (Write: false); callers decide where it lands.
type EsbuildBundler struct{}

// NewEsbuildBundler returns an esbuild-backed Bundler.
func NewEsbuildBundler() *EsbuildBundler { return &EsbuildBundler{} }

// Bundle runs one esbuild build.
func (EsbuildBundler) Bundle(ctx context.Context, req Request) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := buildOptions(req)
	if err != nil {
		return nil, err
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: api.FormatMessages(result.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		})}
	}

	out := &Output{Metafile: result.Metafile}
	if len(result.Warnings) > 0 {
		out.Warnings = api.FormatMessages(result.Warnings, api.FormatMessagesOptions{
			Kind: api.WarningMessage,
		})
	}
	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".map") {
			out.SourceMap = f.Contents
			continue
		}
		out.Code = f.Contents
	}
	if out.Code == nil {
		return nil, &BuildError{Messages: []string{"esbuild produced no output for " + req.EntryPoint}}
	}
	return out, nil
}

func buildOptions(req Request) (api.BuildOptions, error) {
	format, err := esbuildFormat(req.Format)
	if err != nil {
		return api.BuildOptions{}, err
	}
	platform, err := esbuildPlatform(req.Platform)
	if err != nil {
		return api.BuildOptions{}, err
	}
	target, err := esbuildTarget(req.Target)
	if err != nil {
		return api.BuildOptions{}, err
	}

	opts := api.BuildOptions{
		EntryPoints:       []string{req.EntryPoint},
		Bundle:            true,
		Format:            format,
		Platform:          platform,
		Target:            target,
		Define:            req.Define,
		Outfile:           req.Outfile,
		Write:             false,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		MinifyWhitespace:  req.Minify,
		MinifyIdentifiers: req.Minify,
		MinifySyntax:      req.Minify,
	}
	if req.Format == FormatIIFE {
		opts.GlobalName = req.GlobalName
	}
	if req.SourceMap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if req.Banner != "" {
		opts.Banner = map[string]string{"js": req.Banner}
	}
	return opts, nil
}

func esbuildFormat(f Format) (api.Format, error) {
	switch f {
	case FormatIIFE:
		return api.FormatIIFE, nil
	case FormatESM:
		return api.FormatESModule, nil
	}
	return api.FormatDefault, fmt.Errorf("esbuild cannot emit format %q directly", f)
}

func esbuildPlatform(p string) (api.Platform, error) {
	switch strings.ToLower(p) {
	case "", "browser":
		return api.PlatformBrowser, nil
	case "node":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	}
	return api.PlatformBrowser, fmt.Errorf("unknown platform %q", p)
}

var esbuildTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

func esbuildTarget(t string) (api.Target, error) {
	if t == "" {
		return api.ES2020, nil
	}
	if target, ok := esbuildTargets[strings.ToLower(t)]; ok {
		return target, nil
	}
	return api.DefaultTarget, fmt.Errorf("unknown target %q", t)
}
