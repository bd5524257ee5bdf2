// Package bundle turns one compiled module entry point into the browser
// distributables (IIFE, ESM, UMD in raw and minified variants).
package bundle

import (
	"errors"
	"fmt"
	"strings"
)

// Format is a distributable module format.
type Format string

const (
	FormatIIFE Format = "iife"
	FormatESM  Format = "esm"
	FormatUMD  Format = "umd"
)

// Formats lists every supported format in emission order.
var Formats = []Format{FormatIIFE, FormatESM, FormatUMD}

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatIIFE, FormatESM, FormatUMD:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Variant selects raw or minified output.
type Variant string

const (
	VariantRaw      Variant = "raw"
	VariantMinified Variant = "minified"
)

// Variants lists every supported variant in emission order.
var Variants = []Variant{VariantRaw, VariantMinified}

// ParseVariant returns the Variant named by s.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantRaw, VariantMinified:
		return v, nil
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

// Minified reports whether the variant is minified.
func (v Variant) Minified() bool { return v == VariantMinified }

// Spec drives one build: which formats to produce and the bundler options they share.
type Spec struct {
	EntryPoint string
	Name       string // artifact base name, e.g. "openai-sdk"
	Formats    []Format
	Variants   []Variant
	Platform   string
	Target     string
	GlobalName string
	Banner     string
	Define     map[string]string
}

// Combination is one (format, variant) pair of a Spec.
type Combination struct {
	Format  Format
	Variant Variant
}

// Validate checks that the spec requests at least one artifact and that
// every option a requested format needs is present.
func (s Spec) Validate() error {
	if s.EntryPoint == "" {
		return errors.New("entry point is required")
	}
	if s.Name == "" {
		return errors.New("artifact name is required")
	}
	if len(s.Combinations()) == 0 {
		return errors.New("at least one format and one variant must be requested")
	}
	if (s.Has(FormatIIFE) || s.Has(FormatUMD)) && !IsIdentifier(s.GlobalName) {
		return fmt.Errorf("global name %q is not a valid JavaScript identifier", s.GlobalName)
	}
	return nil
}

// Has reports whether f is requested.
func (s Spec) Has(f Format) bool {
	for _, x := range s.Formats {
		if x == f {
			return true
		}
	}
	return false
}

func (s Spec) hasVariant(v Variant) bool {
	for _, x := range s.Variants {
		if x == v {
			return true
		}
	}
	return false
}

// Combinations returns the requested pairs in stable order: iife, esm, umd
// crossed with raw, minified. Duplicates in the spec collapse.
func (s Spec) Combinations() []Combination {
	var out []Combination
	for _, f := range Formats {
		if !s.Has(f) {
			continue
		}
		for _, v := range Variants {
			if s.hasVariant(v) {
				out = append(out, Combination{Format: f, Variant: v})
			}
		}
	}
	return out
}

// IsIdentifier reports whether name is usable as a JavaScript global (ASCII subset).
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
