// Package manifest records what a build produced so a later deploy can verify it.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
)

// Dir is the directory under the dist root holding manifests.
const Dir = ".manifests"

// BuildManifest represents a complete record of a build's inputs and outputs.
type BuildManifest struct {
	ID        string           `json:"id"`
	Package   string           `json:"package"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Tool      string           `json:"tool,omitempty"`
	Spec      SpecSummary      `json:"spec"`
	Artifacts []Artifact       `json:"artifacts"`
	Examples  []string         `json:"examples,omitempty"`
	Analysis  *bundle.Analysis `json:"analysis,omitempty"`
	Duration  int64            `json:"duration_ms"`
}

// SpecSummary captures the build options that shaped the artifacts.
type SpecSummary struct {
	EntryPoint string   `json:"entry_point"`
	Formats    []string `json:"formats"`
	Variants   []string `json:"variants"`
	Platform   string   `json:"platform,omitempty"`
	Target     string   `json:"target,omitempty"`
	GlobalName string   `json:"global_name,omitempty"`
}

// Artifact is one file in the version directory.
type Artifact struct {
	File     string `json:"file"`
	Format   string `json:"format,omitempty"`
	Minified bool   `json:"minified,omitempty"`
	Bytes    int    `json:"bytes"`
	SHA256   string `json:"sha256"`
}

// New creates a manifest for one build.
func New(id, pkg, version string, spec bundle.Spec, at time.Time) *BuildManifest {
	s := SpecSummary{
		EntryPoint: spec.EntryPoint,
		Platform:   spec.Platform,
		Target:     spec.Target,
		GlobalName: spec.GlobalName,
	}
	for _, f := range spec.Formats {
		s.Formats = append(s.Formats, string(f))
	}
	for _, v := range spec.Variants {
		s.Variants = append(s.Variants, string(v))
	}
	return &BuildManifest{ID: id, Package: pkg, Version: version, Timestamp: at.UTC(), Spec: s}
}

// AddRecord adds an artifact record and its source map.
func (m *BuildManifest) AddRecord(r bundle.ArtifactRecord) {
	m.add(Artifact{File: r.Filename, Format: string(r.Format), Minified: r.Minified}, r.Contents)
	if r.SourceMapFilename != "" {
		m.add(Artifact{File: r.SourceMapFilename, Format: string(r.Format), Minified: r.Minified}, r.SourceMap)
	}
}

// AddExample records a generated example page.
func (m *BuildManifest) AddExample(name string, data []byte) {
	m.Examples = append(m.Examples, name)
	m.add(Artifact{File: name}, data)
}

func (m *BuildManifest) add(a Artifact, data []byte) {
	sum := sha256.Sum256(data)
	a.Bytes = len(data)
	a.SHA256 = hex.EncodeToString(sum[:])
	m.Artifacts = append(m.Artifacts, a)
}

// Files returns every recorded filename, sorted.
func (m *BuildManifest) Files() []string {
	files := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		files = append(files, a.File)
	}
	sort.Strings(files)
	return files
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Hash computes a digest of the artifact set, independent of id and timestamp.
func (m *BuildManifest) Hash() (string, error) {
	arts := append([]Artifact(nil), m.Artifacts...)
	sort.Slice(arts, func(i, j int) bool { return arts[i].File < arts[j].File })
	data, err := json.Marshal(struct {
		Package   string     `json:"package"`
		Version   string     `json:"version"`
		Artifacts []Artifact `json:"artifacts"`
	}{m.Package, m.Version, arts})
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Path is where the manifest for versionDir (e.g. "v-1.2.0") lives under distDir.
func Path(distDir, versionDir string) string {
	return filepath.Join(distDir, Dir, versionDir+".json")
}

// Write stores m under distDir.
func Write(distDir, versionDir string, m *BuildManifest) (string, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	p := Path(distDir, versionDir)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return p, nil
}

// ErrNotFound is returned by Read when no manifest exists for the version.
var ErrNotFound = errors.New("manifest not found")

// Read loads the manifest for versionDir.
func Read(distDir, versionDir string) (*BuildManifest, error) {
	data, err := os.ReadFile(Path(distDir, versionDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}

// Mismatch describes one artifact that no longer matches the manifest.
type Mismatch struct {
	File   string
	Reason string
}

// VerifyError lists every mismatching artifact.
type VerifyError struct {
	Mismatches []Mismatch
}

func (e *VerifyError) Error() string {
	if len(e.Mismatches) == 1 {
		return fmt.Sprintf("artifact %s %s", e.Mismatches[0].File, e.Mismatches[0].Reason)
	}
	return fmt.Sprintf("%d artifacts do not match the build manifest (first: %s %s)",
		len(e.Mismatches), e.Mismatches[0].File, e.Mismatches[0].Reason)
}

// Verify checks every recorded artifact in dir against its size and hash.
func (m *BuildManifest) Verify(dir string) error {
	var mismatches []Mismatch
	for _, a := range m.Artifacts {
		data, err := os.ReadFile(filepath.Join(dir, a.File))
		if err != nil {
			reason := "is unreadable"
			if os.IsNotExist(err) {
				reason = "is missing"
			}
			mismatches = append(mismatches, Mismatch{File: a.File, Reason: reason})
			continue
		}
		sum := sha256.Sum256(data)
		if len(data) != a.Bytes || hex.EncodeToString(sum[:]) != a.SHA256 {
			mismatches = append(mismatches, Mismatch{File: a.File, Reason: "changed since build"})
		}
	}
	if len(mismatches) > 0 {
		return &VerifyError{Mismatches: mismatches}
	}
	return nil
}
