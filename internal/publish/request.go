package publish

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/cdnbundle/internal/git"
	"git.home.luguber.info/inful/cdnbundle/internal/layout"
)

// ConfirmFunc asks the operator a yes/no question. It is the only blocking
// wait in a deploy.
type ConfirmFunc func(question string) (bool, error)

// Request describes one deploy.
type Request struct {
	Package string // library directory under LibsDir
	Name    string // artifact base name; defaults to Package
	Version layout.VersionTag

	DistDir string
	CDNRoot string
	LibsDir string
	Alias   string

	Formats  []bundle.Format
	Variants []bundle.Variant

	Force  bool
	Push   bool
	Remote string
	Auth   transport.AuthMethod

	// Author is preferred; missing fields come from the CDN repository's git
	// config, then from FallbackAuthor.
	Author         git.Signature
	FallbackAuthor git.Signature
	Changelog      []string

	// BaseURL enables the CDN URL summary in Result.URLs.
	BaseURL string
}

func (r *Request) normalize() error {
	if r.Package == "" {
		return ferrors.ValidationError("deploy requires a package name").Build()
	}
	if r.Version == "" {
		return ferrors.ValidationError("deploy requires a version").Build()
	}
	if r.Name == "" {
		r.Name = r.Package
	}
	if r.LibsDir == "" {
		r.LibsDir = "libs"
	}
	if r.Alias == "" {
		r.Alias = layout.LatestAlias
	}
	if r.Remote == "" {
		r.Remote = "origin"
	}
	if len(r.Formats) == 0 {
		r.Formats = bundle.Formats
	}
	if len(r.Variants) == 0 {
		r.Variants = bundle.Variants
	}
	return nil
}

// Result reports what a deploy did.
type Result struct {
	// VersionDir is the repository-relative directory that was published.
	VersionDir string
	Files      []string
	Replaced   bool
	NoChanges  bool
	// Commit is the new commit, or the existing HEAD when NoChanges is set.
	Commit    string
	Pushed    bool
	RemoteURL string
	UpToDate  bool
	Held      bool
	URLs      []string
}
