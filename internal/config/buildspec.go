package config

import (
	"fmt"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
)

// BuildSpec converts the bundle section into the emitter's Spec, resolving
// the entry point against the config directory.
func (c *Config) BuildSpec() (bundle.Spec, error) {
	spec := bundle.Spec{
		EntryPoint: c.Path(c.Package.EntryPoint),
		Name:       c.Package.Name,
		Platform:   c.Bundle.Platform,
		Target:     c.Bundle.Target,
		GlobalName: c.Bundle.GlobalName,
		Banner:     c.Bundle.Banner,
		Define:     c.Bundle.Define,
	}
	for _, raw := range c.Bundle.Formats {
		f, err := bundle.ParseFormat(raw)
		if err != nil {
			return bundle.Spec{}, fmt.Errorf("bundle.formats: %w", err)
		}
		spec.Formats = append(spec.Formats, f)
	}
	for _, raw := range c.Bundle.Variants {
		v, err := bundle.ParseVariant(raw)
		if err != nil {
			return bundle.Spec{}, fmt.Errorf("bundle.variants: %w", err)
		}
		spec.Variants = append(spec.Variants, v)
	}
	return spec, nil
}

// OutputDir returns the absolute-or-config-relative dist directory.
func (c *Config) OutputDir() string { return c.Path(c.Output.Directory) }

// ManifestPath returns the package.json path.
func (c *Config) ManifestPath() string { return c.Path(c.Package.Manifest) }

// CDNRoot returns the content repository root.
func (c *Config) CDNRoot() string { return c.Path(c.CDN.Root) }
