package examples

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

var importSpecifier = regexp.MustCompile(`(?:from|import)\s*["']([^"']+)["']`)

// References returns the local files an HTML page loads through script src
// attributes and static module imports. Remote URLs are skipped.
func References(page []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failed to parse HTML").Build()
	}

	seen := map[string]bool{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			if src := getAttr(n, "src"); src != "" {
				seen[src] = true
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.TextNode {
					continue
				}
				for _, m := range importSpecifier.FindAllStringSubmatch(c.Data, -1) {
					seen[m[1]] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var refs []string
	for ref := range seen {
		if isLocal(ref) {
			refs = append(refs, strings.TrimPrefix(ref, "./"))
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// Verify checks every example page in dir against the files next to it.
func Verify(dir string, pages []Page) error {
	for _, p := range pages {
		refs, err := References(p.Contents)
		if err != nil {
			return err
		}
		var missing []string
		for _, ref := range refs {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(ref))); err != nil {
				missing = append(missing, ref)
			}
		}
		if len(missing) > 0 {
			return ferrors.ValidationError("example page references missing artifacts").
				WithContext("page", p.Filename).
				WithContext("missing", strings.Join(missing, ", ")).
				Build()
		}
	}
	return nil
}

func isLocal(ref string) bool {
	if strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "/") {
		return false
	}
	return !strings.Contains(ref, "://") && !strings.HasPrefix(ref, "data:")
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
