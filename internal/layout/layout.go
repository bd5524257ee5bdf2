// Package layout owns the version-addressed output tree: dist/v-<version>/.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// VersionPrefix prefixes every version directory name.
const VersionPrefix = "v-"

// LatestAlias is the default name of the alias that follows the newest build.
const LatestAlias = "v-latest"

// VersionTag is a semantic version read from the package manifest, without a leading "v".
type VersionTag string

// ParseVersionTag validates raw as a semantic version.
func ParseVersionTag(raw string) (VersionTag, error) {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	if v == "" || !semver.IsValid("v"+v) {
		return "", fmt.Errorf("%q is not a semantic version", raw)
	}
	return VersionTag(v), nil
}

func (t VersionTag) String() string { return string(t) }

// DirName is the version directory name, e.g. v-1.2.0.
func (t VersionTag) DirName() string { return VersionPrefix + string(t) }

// Compare orders tags by semantic version precedence.
func (t VersionTag) Compare(other VersionTag) int {
	return semver.Compare("v"+string(t), "v"+string(other))
}

// CheckEntryPoint fails when the upstream compiled module is missing. It runs
// before any bundler call.
func CheckEntryPoint(path string) error {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return ferrors.PreconditionError(fmt.Sprintf("entry point not found: %s", path)).
			WithContext("path", path).
			WithRemedy("run the upstream build first (e.g. `yarn build`) so the compiled module exists").
			Build()
	case err != nil:
		return ferrors.FileSystemError("stat entry point").WithCause(err).WithContext("path", path).Build()
	case info.IsDir():
		return ferrors.PreconditionError(fmt.Sprintf("entry point is a directory: %s", path)).
			WithContext("path", path).
			WithRemedy("point package.entry_point at the compiled module file").
			Build()
	}
	return nil
}

// ReadVersion returns the version field of a package.json manifest.
func ReadVersion(manifestPath string) (VersionTag, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ferrors.PreconditionError(fmt.Sprintf("package manifest not found: %s", manifestPath)).
				WithContext("path", manifestPath).
				WithRemedy("set package.manifest to the package.json carrying the version").
				Build()
		}
		return "", ferrors.FileSystemError("read package manifest").WithCause(err).Build()
	}

	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", ferrors.ValidationError("parse package manifest").
			WithCause(err).
			WithContext("path", manifestPath).
			Build()
	}
	if pkg.Version == "" {
		return "", ferrors.ValidationError("package manifest has no version field").
			WithContext("path", manifestPath).
			Build()
	}
	tag, err := ParseVersionTag(pkg.Version)
	if err != nil {
		return "", ferrors.ValidationError("invalid package version").
			WithCause(err).
			WithContext("path", manifestPath).
			Build()
	}
	return tag, nil
}

// Manager lays out version directories under a dist root.
type Manager struct {
	root string
}

// NewManager creates a Manager rooted at dist.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the dist directory.
func (m *Manager) Root() string { return m.root }

// VersionDir returns the directory for tag without touching the filesystem.
func (m *Manager) VersionDir(tag VersionTag) string {
	return filepath.Join(m.root, tag.DirName())
}

// Exists reports whether tag's directory has been produced.
func (m *Manager) Exists(tag VersionTag) bool {
	info, err := os.Stat(m.VersionDir(tag))
	return err == nil && info.IsDir()
}

// Ensure creates tag's directory if absent and returns its path.
func (m *Manager) Ensure(tag VersionTag) (string, error) {
	dir := m.VersionDir(tag)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ferrors.FileSystemError("create version directory").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return dir, nil
}

// Write stores every record (and its source map) in tag's directory,
// overwriting files in place. It returns the written paths in record order.
func (m *Manager) Write(tag VersionTag, records []bundle.ArtifactRecord) ([]string, error) {
	dir, err := m.Ensure(tag)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, len(records)*2)
	for _, r := range records {
		p, err := writeFile(dir, r.Filename, r.Contents)
		if err != nil {
			return written, err
		}
		written = append(written, p)

		if r.SourceMapFilename == "" {
			continue
		}
		p, err = writeFile(dir, r.SourceMapFilename, r.SourceMap)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

// WriteFile stores one auxiliary file (such as an example page) in tag's directory.
func (m *Manager) WriteFile(tag VersionTag, name string, data []byte) (string, error) {
	dir, err := m.Ensure(tag)
	if err != nil {
		return "", err
	}
	return writeFile(dir, name, data)
}

func writeFile(dir, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ferrors.InternalError(fmt.Sprintf("invalid artifact filename %q", name)).Build()
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", ferrors.FileSystemError("write artifact").
			WithCause(err).
			WithContext("path", p).
			Build()
	}
	return p, nil
}

// Versions lists the version tags present under the dist root, oldest first.
func (m *Manager) Versions() ([]VersionTag, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dist directory: %w", err)
	}
	var tags []VersionTag
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), VersionPrefix) {
			continue
		}
		tag, err := ParseVersionTag(strings.TrimPrefix(e.Name(), VersionPrefix))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Compare(tags[j]) < 0 })
	return tags, nil
}
