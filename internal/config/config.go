package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "texbuilder.yaml"

// CurrentVersion is the only configuration schema version understood.
const CurrentVersion = "1"

// Config is the texbuilder project configuration.
type Config struct {
	Version      string             `yaml:"version"`
	Project      ProjectConfig      `yaml:"project"`
	Engine       EngineConfig       `yaml:"engine"`
	Bibliography BibliographyConfig `yaml:"bibliography"`
	Watch        WatchConfig        `yaml:"watch"`
	Release      ReleaseConfig      `yaml:"release"`
	Check        CheckConfig        `yaml:"check"`
	History      HistoryConfig      `yaml:"history"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ProjectConfig locates the document and the directories texbuilder writes to.
type ProjectConfig struct {
	Name      string `yaml:"name"`       // Used for release artifact names
	Entry     string `yaml:"entry"`      // Entry document, relative to the project root
	OutputDir string `yaml:"output_dir"` // Intermediates and the build artifact
	DistDir   string `yaml:"dist_dir"`   // Staged release artifacts
	StateDir  string `yaml:"state_dir"`  // texbuilder private state (history database)
}

// EngineConfig configures the typesetting engine.
type EngineConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args,omitempty"` // Extra arguments placed before the entry document
	Timeout    string   `yaml:"timeout"`
	MinVersion string   `yaml:"min_version,omitempty"`
}

// BibliographyConfig configures the bibliography processor.
type BibliographyConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	Command    string `yaml:"command"`
	Timeout    string `yaml:"timeout"`
	MinVersion string `yaml:"min_version,omitempty"`
}

// WatchConfig configures the file-change watcher.
type WatchConfig struct {
	Dirs         []string     `yaml:"dirs"`
	Extensions   []string     `yaml:"extensions"`
	IgnoreDirs   []string     `yaml:"ignore_dirs"`
	Debounce     string       `yaml:"debounce"`
	PollInterval string       `yaml:"poll_interval"`
	Backend      WatchBackend `yaml:"backend"`
	Mode         BuildMode    `yaml:"mode"`
	MetricsAddr  string       `yaml:"metrics_addr,omitempty"`
}

// ReleaseConfig configures the release packager.
type ReleaseConfig struct {
	Branch     string `yaml:"branch"`
	Remote     string `yaml:"remote"`
	Changelog  string `yaml:"changelog"`
	SigningKey string `yaml:"signing_key,omitempty"` // Armored OpenPGP private key file
	// Name of the environment variable holding the signing key passphrase.
	PassphraseEnv string         `yaml:"passphrase_env,omitempty"`
	Auth          PushAuthConfig `yaml:"auth,omitempty"`
}

// PushAuthConfig selects credentials for pushing release tags. With type
// none the transport defaults apply (ssh-agent for ssh remotes).
type PushAuthConfig struct {
	Type     AuthType `yaml:"type,omitempty"`
	Username string   `yaml:"username,omitempty"`
	// Environment variable holding the token (token) or password (basic).
	SecretEnv string `yaml:"secret_env,omitempty"`
	KeyPath   string `yaml:"key_path,omitempty"` // ssh private key
}

// CheckConfig lists the optional tools reported by the check command.
type CheckConfig struct {
	OptionalTools []string `yaml:"optional_tools"`
}

// HistoryConfig configures the build history database.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"` // Defaults to <state_dir>/history.db
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates the configuration at path.
// A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load but falls back to the built-in defaults
// when path does not exist. The boolean reports whether a file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg, derr := Default()
		return cfg, false, derr
	}
	cfg, err := Load(path)
	return cfg, err == nil, err
}

// Parse decodes YAML configuration after expanding ${VAR} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	return Parse(nil)
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	example, err := Default()
	if err != nil {
		return err
	}
	example.Release.PassphraseEnv = "TEXBUILDER_SIGNING_PASSPHRASE"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	// #nosec G306 -- configuration is not secret; credentials are referenced via env
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// BibliographyEnabled reports whether the full sequence runs the bibliography processor.
func (c *Config) BibliographyEnabled() bool {
	return c.Bibliography.Enabled == nil || *c.Bibliography.Enabled
}

// HistoryEnabled reports whether runs are recorded in the history database.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// EngineTimeout returns the parsed per-pass engine timeout.
func (c *Config) EngineTimeout() time.Duration { return mustDuration(c.Engine.Timeout) }

// BibliographyTimeout returns the parsed bibliography processor timeout.
func (c *Config) BibliographyTimeout() time.Duration { return mustDuration(c.Bibliography.Timeout) }

// DebounceDelay returns the parsed watcher quiet period.
func (c *Config) DebounceDelay() time.Duration { return mustDuration(c.Watch.Debounce) }

// PollInterval returns the parsed polling interval.
func (c *Config) PollInterval() time.Duration { return mustDuration(c.Watch.PollInterval) }

// Resolve joins a configured path onto root unless it is already absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// mustDuration parses a duration that validation has already accepted.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
