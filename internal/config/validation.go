package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,49}$`)
	toolVersionPattern = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)
)

// MinDebounce is the shortest accepted watcher quiet period.
const MinDebounce = time.Second

// ValidateConfig checks a defaulted configuration and canonicalises enum fields.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, step := range []func() error{
		v.validateProject,
		v.validateToolchain,
		v.validateWatch,
		v.validateRelease,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// configurationValidator coordinates validation across configuration domains.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validateProject() error {
	p := cv.config.Project
	if !projectNamePattern.MatchString(p.Name) {
		return fmt.Errorf("project.name %q must be 2-50 characters of letters, digits, '.', '-' or '_'", p.Name)
	}
	if filepath.Ext(p.Entry) != ".tex" {
		return fmt.Errorf("project.entry %q must be a .tex file", p.Entry)
	}
	for field, dir := range map[string]string{
		"project.output_dir": p.OutputDir,
		"project.dist_dir":   p.DistDir,
		"project.state_dir":  p.StateDir,
	} {
		if err := validateOwnedDir(field, dir); err != nil {
			return err
		}
	}
	return nil
}

// validateOwnedDir rejects directories that would make clean or staging
// operate on the project root itself.
func validateOwnedDir(field, dir string) error {
	c := filepath.Clean(dir)
	if c == "." || c == string(filepath.Separator) || c == ".." || strings.HasPrefix(c, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s %q must be a subdirectory", field, dir)
	}
	return nil
}

func (cv *configurationValidator) validateToolchain() error {
	c := cv.config
	if strings.TrimSpace(c.Engine.Command) == "" {
		return errors.New("engine.command cannot be empty")
	}
	if strings.TrimSpace(c.Bibliography.Command) == "" {
		return errors.New("bibliography.command cannot be empty")
	}
	if err := validatePositiveDuration("engine.timeout", c.Engine.Timeout, 0); err != nil {
		return err
	}
	if err := validatePositiveDuration("bibliography.timeout", c.Bibliography.Timeout, 0); err != nil {
		return err
	}
	for field, v := range map[string]string{
		"engine.min_version":       c.Engine.MinVersion,
		"bibliography.min_version": c.Bibliography.MinVersion,
	} {
		if v != "" && !toolVersionPattern.MatchString(strings.TrimPrefix(v, "v")) {
			return fmt.Errorf("%s %q must look like 1.40 or 2.19.0", field, v)
		}
	}
	return nil
}

func (cv *configurationValidator) validateWatch() error {
	w := &cv.config.Watch
	if err := validatePositiveDuration("watch.debounce", w.Debounce, MinDebounce); err != nil {
		return err
	}
	if err := validatePositiveDuration("watch.poll_interval", w.PollInterval, 100*time.Millisecond); err != nil {
		return err
	}
	backend, err := watchBackendNormalizer.strict("watch.backend", string(w.Backend))
	if err != nil {
		return err
	}
	w.Backend = backend

	mode, err := ParseBuildMode(string(w.Mode))
	if err != nil {
		return err
	}
	if mode == ModeClean {
		return errors.New("watch.mode must be quick or full")
	}
	w.Mode = mode

	for _, ext := range w.Extensions {
		if ext == "" || ext == "." {
			return errors.New("watch.extensions cannot contain empty entries")
		}
	}
	return nil
}

func (cv *configurationValidator) validateRelease() error {
	r := &cv.config.Release
	if strings.TrimSpace(r.Remote) == "" {
		return errors.New("release.remote cannot be empty")
	}
	if strings.ContainsAny(r.Branch, " ~^:") {
		return fmt.Errorf("release.branch %q is not a valid branch name", r.Branch)
	}
	authType, err := authTypeNormalizer.strict("release.auth.type", string(r.Auth.Type))
	if err != nil {
		return err
	}
	r.Auth.Type = authType
	if (authType == AuthTypeToken || authType == AuthTypeBasic) && r.Auth.SecretEnv == "" {
		return fmt.Errorf("release.auth.secret_env is required for %s authentication", authType)
	}
	if authType == AuthTypeBasic && r.Auth.Username == "" {
		return errors.New("release.auth.username is required for basic authentication")
	}
	return nil
}

func validatePositiveDuration(field, raw string, minimum time.Duration) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, raw)
	}
	if minimum > 0 && d < minimum {
		return fmt.Errorf("%s must be at least %s, got %s", field, minimum, raw)
	}
	return nil
}
