package bundle

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Metafile is the subset of esbuild's metafile JSON the build manifest uses.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput represents an input file in the metafile.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
}

// MetafileImport represents an import in the metafile.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// MetafileOutput represents an output file in the metafile.
type MetafileOutput struct {
	Bytes   int                     `json:"bytes"`
	Inputs  map[string]InputContrib `json:"inputs"`
	Imports []MetafileImport        `json:"imports"`
}

// InputContrib is how many bytes an input contributed to an output.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Analysis summarises one build's module graph.
type Analysis struct {
	TotalBytes      int            `json:"total_bytes"`
	InputCount      int            `json:"input_count"`
	TopInputs       []InputSummary `json:"top_inputs,omitempty"`
	ExternalImports []string       `json:"external_imports,omitempty"`
}

// InputSummary is one input's share of the output.
type InputSummary struct {
	Path          string  `json:"path"`
	BytesInOutput int     `json:"bytes_in_output"`
	Percentage    float64 `json:"percentage"`
}

// maxTopInputs bounds Analysis.TopInputs.
const maxTopInputs = 10

// Analyze parses an esbuild metafile and reports the largest contributors
// to the JavaScript output. Source map outputs are ignored.
func Analyze(metafile string) (*Analysis, error) {
	if metafile == "" {
		return &Analysis{}, nil
	}
	var mf Metafile
	if err := json.Unmarshal([]byte(metafile), &mf); err != nil {
		return nil, fmt.Errorf("parse metafile: %w", err)
	}

	a := &Analysis{InputCount: len(mf.Inputs)}
	contrib := map[string]int{}
	external := map[string]bool{}
	for path, out := range mf.Outputs {
		if strings.HasSuffix(path, ".map") {
			continue
		}
		a.TotalBytes += out.Bytes
		for in, c := range out.Inputs {
			contrib[in] += c.BytesInOutput
		}
		for _, imp := range out.Imports {
			if imp.External {
				external[imp.Path] = true
			}
		}
	}

	for path, n := range contrib {
		s := InputSummary{Path: path, BytesInOutput: n}
		if a.TotalBytes > 0 {
			s.Percentage = float64(n) * 100 / float64(a.TotalBytes)
		}
		a.TopInputs = append(a.TopInputs, s)
	}
	sort.Slice(a.TopInputs, func(i, j int) bool {
		if a.TopInputs[i].BytesInOutput != a.TopInputs[j].BytesInOutput {
			return a.TopInputs[i].BytesInOutput > a.TopInputs[j].BytesInOutput
		}
		return a.TopInputs[i].Path < a.TopInputs[j].Path
	})
	if len(a.TopInputs) > maxTopInputs {
		a.TopInputs = a.TopInputs[:maxTopInputs]
	}

	for p := range external {
		a.ExternalImports = append(a.ExternalImports, p)
	}
	sort.Strings(a.ExternalImports)
	return a, nil
}
