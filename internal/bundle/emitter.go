package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/logfields"
	"git.home.luguber.info/inful/cdnbundle/internal/umd"
)

// Emitter runs the bundler once per requested format/variant pair.
type Emitter struct {
	bundler Bundler
	now     func() time.Time
}

// NewEmitter creates an Emitter around b.
func NewEmitter(b Bundler) *Emitter {
	return &Emitter{bundler: b, now: time.Now}
}

// WithClock overrides the clock used for the banner timestamp.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// BannerComment renders the banner stamped at the top of every artifact.
func BannerComment(banner string, at time.Time) string {
	return fmt.Sprintf("/* %s - Generated %s */", banner, at.UTC().Format(time.RFC3339))
}

// Emit produces every artifact the spec requests, entirely in memory.
// outDir is where the artifacts will be written; it only anchors source map paths.
// The first bundler failure aborts the run.
func (e *Emitter) Emit(ctx context.Context, spec Spec, outDir string) ([]ArtifactRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, ferrors.ValidationError("invalid build spec").
			WithCause(err).
			Build()
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, ferrors.FileSystemError("resolve output directory").WithCause(err).Build()
	}

	banner := ""
	if spec.Banner != "" {
		banner = BannerComment(spec.Banner, e.now())
	}

	records := make([]ArtifactRecord, 0, len(spec.Combinations()))
	for _, c := range spec.Combinations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		minified := c.Variant.Minified()
		filename := Filename(spec.Name, c.Format, minified)

		var rec ArtifactRecord
		if c.Format == FormatUMD {
			rec, err = e.emitUMD(ctx, spec, banner, minified, filepath.Join(absOut, filename))
		} else {
			rec, err = e.emitDirect(ctx, spec, c.Format, banner, minified, filepath.Join(absOut, filename))
		}
		if err != nil {
			return nil, err
		}
		rec.Filename = filename
		records = append(records, rec)

		slog.Debug("Emitted artifact",
			logfields.Format(string(c.Format)),
			logfields.Minified(minified),
			logfields.File(filename),
			logfields.Bytes(len(rec.Contents)))
	}
	return records, nil
}

func (e *Emitter) emitDirect(ctx context.Context, spec Spec, f Format, banner string, minified bool, outfile string) (ArtifactRecord, error) {
	out, err := e.bundle(ctx, Request{
		EntryPoint: spec.EntryPoint,
		Format:     f,
		GlobalName: spec.GlobalName,
		Minify:     minified,
		SourceMap:  true,
		Platform:   spec.Platform,
		Target:     spec.Target,
		Banner:     banner,
		Define:     spec.Define,
		Outfile:    outfile,
	})
	if err != nil {
		return ArtifactRecord{}, err
	}

	rec := ArtifactRecord{
		Format:   f,
		Minified: minified,
		Contents: out.Code,
		Metafile: out.Metafile,
	}
	if len(out.SourceMap) > 0 {
		rec.SourceMap = out.SourceMap
		rec.SourceMapFilename = filepath.Base(outfile) + ".map"
	}
	return rec, nil
}

// emitUMD builds an IIFE under a synthetic global without a source map and
// wraps it. The banner goes outside the wrapper.
func (e *Emitter) emitUMD(ctx context.Context, spec Spec, banner string, minified bool, outfile string) (ArtifactRecord, error) {
	opts := umd.Options{GlobalName: spec.GlobalName, SyntheticName: umd.DefaultSyntheticName, Banner: banner}
	if err := opts.Validate(); err != nil {
		return ArtifactRecord{}, ferrors.ValidationError("invalid UMD options").WithCause(err).Build()
	}

	out, err := e.bundle(ctx, Request{
		EntryPoint: spec.EntryPoint,
		Format:     FormatIIFE,
		GlobalName: opts.SyntheticName,
		Minify:     minified,
		Platform:   spec.Platform,
		Target:     spec.Target,
		Define:     spec.Define,
		Outfile:    outfile,
	})
	if err != nil {
		return ArtifactRecord{}, err
	}

	return ArtifactRecord{
		Format:      FormatUMD,
		Minified:    minified,
		Contents:    umd.Wrap(out.Code, opts),
		Metafile:    out.Metafile,
		WrappedFrom: out.Code,
	}, nil
}

func (e *Emitter) bundle(ctx context.Context, req Request) (*Output, error) {
	out, err := e.bundler.Bundle(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ferrors.BundlerError(fmt.Sprintf("bundling %s output failed", req.Format)).
			WithCause(err).
			WithContext("entry_point", req.EntryPoint).
			WithContext("format", string(req.Format)).
			Build()
	}
	for _, w := range out.Warnings {
		slog.Warn("Bundler warning", logfields.Format(string(req.Format)), slog.String("message", w))
	}
	return out, nil
}
