package bundle

import (
	"context"
	"strings"
)

// Request is one bundler invocation. Format is FormatIIFE or FormatESM;
// UMD is produced by the Emitter on top of an IIFE request.
type Request struct {
	EntryPoint string
	Format     Format
	GlobalName string
	Minify     bool
	SourceMap  bool
	Platform   string
	Target     string
	Banner     string
	Define     map[string]string

	// Outfile is the absolute path the output is destined for. It names the
	// source map and anchors relative source paths; nothing is written there.
	Outfile string
}

// Output is the in-memory result of a bundler invocation.
type Output struct {
	Code      []byte
	SourceMap []byte
	Metafile  string
	Warnings  []string
}

// Bundler compiles a module graph into a single file.
type Bundler interface {
	Bundle(ctx context.Context, req Request) (*Output, error)
}

// BuildError carries the bundler's diagnostics verbatim.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return "bundler failed"
	}
	return strings.TrimSpace(strings.Join(e.Messages, "\n"))
}
