package config

import "time"

const (
	defaultManifest    = "package.json"
	defaultOutputDir   = "dist"
	defaultAlias       = "v-latest"
	defaultLibsDir     = "libs"
	defaultRemote      = "origin"
	defaultPlatform    = "browser"
	defaultTarget      = "es2020"
	defaultNotifySubj  = "cdnbundle.releases"
	defaultDebounce    = 300 * time.Millisecond
	defaultAuthorName  = "cdnbundle"
	defaultAuthorEmail = "cdnbundle@localhost"
)

// applyDefaults fills every unset field with its documented default.
func applyDefaults(cfg *Config) {
	if cfg.Package.Manifest == "" {
		cfg.Package.Manifest = defaultManifest
	}

	b := &cfg.Bundle
	if len(b.Formats) == 0 {
		b.Formats = []string{"iife", "esm", "umd"}
	}
	if len(b.Variants) == 0 {
		b.Variants = []string{"raw", "minified"}
	}
	if b.Platform == "" {
		b.Platform = defaultPlatform
	}
	if b.Target == "" {
		b.Target = defaultTarget
	}
	if b.Banner == "" && cfg.Package.Name != "" {
		b.Banner = cfg.Package.Name + " Bundle"
	}
	if b.Define == nil {
		b.Define = map[string]string{
			"process.env.NODE_ENV": `"production"`,
			"global":               "window",
		}
	}

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = defaultOutputDir
	}
	if cfg.Output.Alias == "" {
		cfg.Output.Alias = defaultAlias
	}

	if cfg.CDN.LibsDir == "" {
		cfg.CDN.LibsDir = defaultLibsDir
	}
	if cfg.CDN.Remote == "" {
		cfg.CDN.Remote = defaultRemote
	}
	if cfg.CDN.Auth != nil {
		if t := NormalizeAuthType(string(cfg.CDN.Auth.Type)); t != "" {
			cfg.CDN.Auth.Type = t
		}
	}

	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = defaultNotifySubj
	}
}

// DebounceDuration returns the parsed watch debounce (default 300ms).
func (w WatchConfig) DebounceDuration() time.Duration {
	if d, err := time.ParseDuration(w.Debounce); err == nil && d > 0 {
		return d
	}
	return defaultDebounce
}

// PollDuration returns the parsed poll interval; zero disables polling.
func (w WatchConfig) PollDuration() time.Duration {
	if d, err := time.ParseDuration(w.PollInterval); err == nil && d > 0 {
		return d
	}
	return 0
}

// AuthorOrDefault returns the configured author with defaults for missing fields.
// Callers that can consult git config should do so before falling back to this.
func (a Author) AuthorOrDefault() Author {
	if a.Name == "" {
		a.Name = defaultAuthorName
	}
	if a.Email == "" {
		a.Email = defaultAuthorEmail
	}
	return a
}
