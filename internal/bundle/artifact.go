package bundle

// ArtifactRecord is one emitted distributable.
type ArtifactRecord struct {
	Format            Format
	Minified          bool
	Filename          string
	Contents          []byte
	SourceMapFilename string // empty when the format has no source map
	SourceMap         []byte
	Metafile          string // esbuild metafile JSON for this invocation

	// WrappedFrom holds the IIFE buffer the UMD wrapper consumed (UMD only).
	WrappedFrom []byte
}

// Filename returns the fixed artifact filename for a format/variant pair:
// <name>.js, <name>.min.js, <name>.esm.js, <name>.esm.min.js, <name>.umd.js, <name>.umd.min.js.
func Filename(name string, f Format, minified bool) string {
	fn := name
	switch f {
	case FormatESM:
		fn += ".esm"
	case FormatUMD:
		fn += ".umd"
	}
	if minified {
		fn += ".min"
	}
	return fn + ".js"
}

// HasSourceMap reports whether artifacts of the format carry a linked source map.
func HasSourceMap(f Format) bool { return f != FormatUMD }

// ExpectedFiles lists every file a version directory may contain for the
// given formats and variants, source maps included.
func ExpectedFiles(name string, formats []Format, variants []Variant) []string {
	spec := Spec{Formats: formats, Variants: variants}
	var files []string
	for _, c := range spec.Combinations() {
		fn := Filename(name, c.Format, c.Variant.Minified())
		files = append(files, fn)
		if HasSourceMap(c.Format) {
			files = append(files, fn+".map")
		}
	}
	return files
}

// Files returns the artifact filename and, when present, its source map filename.
func (r ArtifactRecord) Files() []string {
	if r.SourceMapFilename == "" {
		return []string{r.Filename}
	}
	return []string{r.Filename, r.SourceMapFilename}
}
