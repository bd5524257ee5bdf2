package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/cdnbundle/internal/bundle"
)

// Validate checks the configuration for values no command can work with.
// Checks that depend on the filesystem (entry point, CDN root) happen in the commands that need them.
func (c *Config) Validate() error {
	if err := c.validatePackage(); err != nil {
		return err
	}
	if err := c.validateBundle(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateCDN(); err != nil {
		return err
	}
	return c.validateWatch()
}

func (c *Config) validatePackage() error {
	name := c.Package.Name
	if name == "" {
		return errors.New("package.name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("package.name %q must be a plain file name", name)
	}
	if c.Package.EntryPoint == "" {
		return errors.New("package.entry_point is required")
	}
	return nil
}

func (c *Config) validateBundle() error {
	for _, f := range c.Bundle.Formats {
		if _, err := bundle.ParseFormat(f); err != nil {
			return fmt.Errorf("bundle.formats: unsupported format %q (want iife, esm or umd)", f)
		}
	}
	for _, v := range c.Bundle.Variants {
		if _, err := bundle.ParseVariant(v); err != nil {
			return fmt.Errorf("bundle.variants: unsupported variant %q (want raw or minified)", v)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.ContainsAny(c.Output.Alias, `/\`) {
		return fmt.Errorf("output.alias %q must be a plain directory name", c.Output.Alias)
	}
	return nil
}

func (c *Config) validateCDN() error {
	if c.CDN.Auth == nil {
		return nil
	}
	if !c.CDN.Auth.Type.IsValid() {
		return fmt.Errorf("cdn.auth.type: unsupported value %q", c.CDN.Auth.Type)
	}
	return nil
}

func (c *Config) validateWatch() error {
	for field, raw := range map[string]string{
		"watch.debounce":      c.Watch.Debounce,
		"watch.poll_interval": c.Watch.PollInterval,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}
