// Package examples generates the example-<format>.html usage pages placed
// next to the artifacts in a version directory, and checks that every page
// only references artifacts that exist.
package examples

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// Page is one generated example document.
type Page struct {
	Format   bundle.Format
	Filename string
	Contents []byte
}

// Filename returns the example page name for a format.
func Filename(f bundle.Format) string {
	return "example-" + string(f) + ".html"
}

// Generate renders one page per format in spec. Pages load the minified
// artifact when the spec builds one, the raw artifact otherwise.
func Generate(spec bundle.Spec) ([]Page, error) {
	minified := false
	for _, v := range spec.Variants {
		if v.Minified() {
			minified = true
		}
	}

	md := goldmark.New()
	pages := make([]Page, 0, len(spec.Formats))
	for _, f := range bundle.Formats {
		if !spec.Has(f) {
			continue
		}
		file := bundle.Filename(spec.Name, f, minified)

		var body bytes.Buffer
		if err := md.Convert([]byte(usageMarkdown(spec, f, file)), &body); err != nil {
			return nil, ferrors.InternalError("failed to render example markdown").
				WithCause(err).
				WithContext("format", string(f)).
				Build()
		}

		var out bytes.Buffer
		err := pageTemplate.Execute(&out, pageData{
			Title:      fmt.Sprintf("%s %s example", spec.Name, strings.ToUpper(string(f))),
			Body:       template.HTML(body.String()), //nolint:gosec // rendered from our own markdown
			Module:     f == bundle.FormatESM,
			Src:        file,
			Import:     "./" + file,
			GlobalName: spec.GlobalName,
		})
		if err != nil {
			return nil, ferrors.InternalError("failed to render example page").
				WithCause(err).
				WithContext("format", string(f)).
				Build()
		}
		pages = append(pages, Page{Format: f, Filename: Filename(f), Contents: out.Bytes()})
	}
	return pages, nil
}

func usageMarkdown(spec bundle.Spec, f bundle.Format, file string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", spec.Name, strings.ToUpper(string(f)))
	switch f {
	case bundle.FormatESM:
		fmt.Fprintf(&b, "Import `%s` from a module script:\n\n", file)
		fmt.Fprintf(&b, "```html\n<script type=\"module\">\n  import * as sdk from './%s';\n</script>\n```\n", file)
	case bundle.FormatUMD:
		fmt.Fprintf(&b, "`%s` works with CommonJS, AMD and plain script tags. ", file)
		fmt.Fprintf(&b, "Loaded with a script tag it defines `window.%s`:\n\n", spec.GlobalName)
		fmt.Fprintf(&b, "```html\n<script src=\"%s\"></script>\n```\n", file)
	default:
		fmt.Fprintf(&b, "Load `%s` with a script tag; it defines `window.%s`:\n\n", file, spec.GlobalName)
		fmt.Fprintf(&b, "```html\n<script src=\"%s\"></script>\n```\n", file)
	}
	b.WriteString("\nThe list below shows the exports found when this page loaded.\n")
	return b.String()
}

type pageData struct {
	Title      string
	Body       template.HTML
	Module     bool
	Src        string
	Import     string
	GlobalName string
}

var pageTemplate = template.Must(template.New("example").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
{{- if not .Module}}
<script src="{{.Src}}"></script>
{{- end}}
</head>
<body>
{{.Body}}
<pre id="output"></pre>
{{- if .Module}}
<script type="module">
import * as sdk from {{.Import}};
document.getElementById("output").textContent = Object.keys(sdk).join("\n");
</script>
{{- else}}
<script>
var sdk = window[{{.GlobalName}}] || {};
document.getElementById("output").textContent = Object.keys(sdk).join("\n");
</script>
{{- end}}
</body>
</html>
`))
