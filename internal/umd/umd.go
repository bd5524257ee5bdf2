// Package umd wraps an IIFE bundle in a universal module definition so the
// same file loads under CommonJS, AMD or a plain script tag.
package umd

import (
	"bytes"
	"fmt"
	"strings"
)

// DefaultSyntheticName is the IIFE global the emitter builds UMD input with.
const DefaultSyntheticName = "__cdnbundle_umd"

// Options controls Wrap.
type Options struct {
	// GlobalName is the property created on the global object when no loader is present.
	GlobalName string
	// SyntheticName is the variable the IIFE assigns its exports to.
	SyntheticName string
	// Banner, when set, is emitted verbatim as the first line.
	Banner string
}

// Validate rejects names that cannot be used as JavaScript identifiers.
func (o Options) Validate() error {
	if !isIdentifier(o.GlobalName) {
		return fmt.Errorf("umd: global name %q is not a valid identifier", o.GlobalName)
	}
	if !isIdentifier(o.syntheticName()) {
		return fmt.Errorf("umd: synthetic name %q is not a valid identifier", o.SyntheticName)
	}
	return nil
}

func (o Options) syntheticName() string {
	if o.SyntheticName == "" {
		return DefaultSyntheticName
	}
	return o.SyntheticName
}

const header = `(function (root, factory) {
  if (typeof exports === 'object' && typeof module !== 'undefined') {
    factory(exports);
  } else if (typeof define === 'function' && define.amd) {
    define(['exports'], factory);
  } else {
    root = typeof globalThis !== 'undefined' ? globalThis : root || self;
    factory((root.{{GLOBAL}} = {}));
  }
})(this, function (exports) {
`

const footer = `
  for (var key in {{SYNTHETIC}}) {
    if (Object.prototype.hasOwnProperty.call({{SYNTHETIC}}, key)) {
      exports[key] = {{SYNTHETIC}}[key];
    }
  }
  Object.defineProperty(exports, '__esModule', { value: true });
});
`

// Wrap splices iife into the UMD template. It is a pure text transform;
// callers are expected to have checked opts with Validate.
func Wrap(iife []byte, opts Options) []byte {
	r := strings.NewReplacer("{{GLOBAL}}", opts.GlobalName, "{{SYNTHETIC}}", opts.syntheticName())

	var buf bytes.Buffer
	buf.Grow(len(iife) + len(header) + len(footer) + len(opts.Banner) + 64)
	if opts.Banner != "" {
		buf.WriteString(opts.Banner)
		buf.WriteByte('\n')
	}
	buf.WriteString(r.Replace(header))
	buf.Write(bytes.TrimRight(iife, "\n"))
	buf.WriteString(r.Replace(footer))
	return buf.Bytes()
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
