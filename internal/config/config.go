package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is the configuration file looked up when --config is not given.
const DefaultFilename = "cdnbundle.yaml"

// Config represents the application configuration.
type Config struct {
	Package PackageConfig `yaml:"package"`
	Bundle  BundleConfig  `yaml:"bundle"`
	Output  OutputConfig  `yaml:"output"`
	CDN     CDNConfig     `yaml:"cdn"`
	History HistoryConfig `yaml:"history,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`

	// baseDir is the directory holding the loaded config file; relative paths resolve against it.
	baseDir string
}

// PackageConfig describes the upstream module being bundled.
type PackageConfig struct {
	Name       string `yaml:"name"`        // artifact base name and libs/<name> directory
	EntryPoint string `yaml:"entry_point"` // compiled module produced by the upstream build
	Manifest   string `yaml:"manifest"`    // package.json carrying the version
}

// BundleConfig selects the formats and esbuild options.
type BundleConfig struct {
	Formats    []string          `yaml:"formats"`  // iife|esm|umd
	Variants   []string          `yaml:"variants"` // raw|minified
	GlobalName string            `yaml:"global_name"`
	Platform   string            `yaml:"platform,omitempty"`
	Target     string            `yaml:"target,omitempty"`
	Banner     string            `yaml:"banner,omitempty"`
	Define     map[string]string `yaml:"define,omitempty"`
}

// OutputConfig represents the local build output tree.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Alias     string `yaml:"alias,omitempty"`
	Examples  *bool  `yaml:"examples,omitempty"`
}

// ExamplesEnabled reports whether example-*.html pages are generated (default true).
func (o OutputConfig) ExamplesEnabled() bool { return o.Examples == nil || *o.Examples }

// CDNConfig describes the git-backed content repository deploys are published to.
type CDNConfig struct {
	Root      string      `yaml:"root"`
	LibsDir   string      `yaml:"libs_dir,omitempty"`
	BaseURL   string      `yaml:"base_url,omitempty"`
	Remote    string      `yaml:"remote,omitempty"`
	Author    Author      `yaml:"author,omitempty"`
	Auth      *AuthConfig `yaml:"auth,omitempty"`
	Changelog []string    `yaml:"changelog,omitempty"`
}

// Author identifies the commit author for deploy commits.
type Author struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// HistoryConfig enables the SQLite release ledger. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig enables NATS release notifications. An empty URL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// WatchConfig tunes `build --watch`.
type WatchConfig struct {
	Paths        []string `yaml:"paths,omitempty"`
	Debounce     string   `yaml:"debounce,omitempty"`
	PollInterval string   `yaml:"poll_interval,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(filepath.Dir(configPath)); err != nil && !errors.Is(err, errNoEnvFile) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	cfg.baseDir = abs

	return cfg, nil
}

// envRef matches ${NAME}. A bare $NAME is left alone since $ is legal in
// JavaScript identifiers and define expressions.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// Parse expands ${VAR} references in raw YAML, applies defaults and validates.
// Relative paths resolve against the working directory until Load sets a base dir.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Example returns the configuration written by Init.
func Example() Config {
	return Config{
		Package: PackageConfig{
			Name:       "openai-sdk",
			EntryPoint: "../dist/index.mjs",
			Manifest:   "../package.json",
		},
		Bundle: BundleConfig{
			Formats:    []string{"iife", "esm", "umd"},
			Variants:   []string{"raw", "minified"},
			GlobalName: "OpenAIBundle",
			Platform:   "browser",
			Target:     "es2020",
			Banner:     "OpenAI SDK Bundle",
		},
		Output: OutputConfig{
			Directory: "dist",
			Alias:     "v-latest",
		},
		CDN: CDNConfig{
			Root:    "../../cdn",
			LibsDir: "libs",
			BaseURL: "https://cdn.example.com",
			Remote:  "origin",
			Auth: &AuthConfig{
				Type:  AuthTypeToken,
				Token: "${CDN_GIT_TOKEN}",
			},
		},
		History: HistoryConfig{Path: ".cdnbundle/history.db"},
		Watch:   WatchConfig{Debounce: "300ms"},
	}
}

// Path resolves p against the config file's directory unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}
