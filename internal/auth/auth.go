// Package auth builds go-git transport credentials for pushing release tags.
package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// Provider creates credentials for one authentication type.
type Provider interface {
	Type() config.AuthType
	Validate(cfg config.PushAuthConfig) error
	// CreateAuth returns nil, nil when transport defaults should apply.
	CreateAuth(cfg config.PushAuthConfig) (transport.AuthMethod, error)
}

// Registry maps authentication types onto providers.
type Registry struct {
	providers map[config.AuthType]Provider
}

// NewRegistry returns a registry with the none, ssh, token and basic providers.
func NewRegistry() *Registry {
	return newRegistry(os.Getenv)
}

func newRegistry(getenv func(string) string) *Registry {
	r := &Registry{providers: map[config.AuthType]Provider{}}
	r.Register(noneProvider{})
	r.Register(sshProvider{})
	r.Register(tokenProvider{getenv: getenv})
	r.Register(basicProvider{getenv: getenv})
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) { r.providers[p.Type()] = p }

// CreateAuth validates cfg and returns credentials for it.
func (r *Registry) CreateAuth(cfg config.PushAuthConfig) (transport.AuthMethod, error) {
	t := cfg.Type
	if t == "" {
		t = config.AuthTypeNone
	}
	p, ok := r.providers[t]
	if !ok {
		return nil, &Error{Type: t, Message: "unsupported authentication type"}
	}
	if err := p.Validate(cfg); err != nil {
		return nil, &Error{Type: t, Message: "configuration validation failed", Cause: err}
	}
	method, err := p.CreateAuth(cfg)
	if err != nil {
		return nil, &Error{Type: t, Message: "failed to create authentication", Cause: err}
	}
	return method, nil
}

// ForRelease is CreateAuth on the default registry.
func ForRelease(cfg config.PushAuthConfig) (transport.AuthMethod, error) {
	return NewRegistry().CreateAuth(cfg)
}

// Error is an authentication setup failure.
type Error struct {
	Type    config.AuthType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

type noneProvider struct{}

func (noneProvider) Type() config.AuthType                                          { return config.AuthTypeNone }
func (noneProvider) Validate(config.PushAuthConfig) error                           { return nil }
func (noneProvider) CreateAuth(config.PushAuthConfig) (transport.AuthMethod, error) { return nil, nil }

type sshProvider struct{}

func (sshProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (sshProvider) keyPath(cfg config.PushAuthConfig) string {
	if cfg.KeyPath != "" {
		return cfg.KeyPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ssh", "id_ed25519")
}

func (p sshProvider) Validate(cfg config.PushAuthConfig) error {
	if _, err := os.Stat(p.keyPath(cfg)); err != nil {
		return fmt.Errorf("SSH key file not readable: %w", err)
	}
	return nil
}

func (p sshProvider) CreateAuth(cfg config.PushAuthConfig) (transport.AuthMethod, error) {
	user := cfg.Username
	if user == "" {
		user = "git"
	}
	keys, err := ssh.NewPublicKeysFromFile(user, p.keyPath(cfg), "")
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", p.keyPath(cfg), err)
	}
	return keys, nil
}

type tokenProvider struct{ getenv func(string) string }

func (tokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (p tokenProvider) Validate(cfg config.PushAuthConfig) error {
	if p.getenv(cfg.SecretEnv) == "" {
		return fmt.Errorf("environment variable %s is empty", cfg.SecretEnv)
	}
	return nil
}

func (p tokenProvider) CreateAuth(cfg config.PushAuthConfig) (transport.AuthMethod, error) {
	user := cfg.Username
	if user == "" {
		// Most forges accept any non-empty username with a token.
		user = "token"
	}
	return &http.BasicAuth{Username: user, Password: p.getenv(cfg.SecretEnv)}, nil
}

type basicProvider struct{ getenv func(string) string }

func (basicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (p basicProvider) Validate(cfg config.PushAuthConfig) error {
	if cfg.Username == "" {
		return fmt.Errorf("basic authentication requires a username")
	}
	if p.getenv(cfg.SecretEnv) == "" {
		return fmt.Errorf("environment variable %s is empty", cfg.SecretEnv)
	}
	return nil
}

func (p basicProvider) CreateAuth(cfg config.PushAuthConfig) (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: cfg.Username, Password: p.getenv(cfg.SecretEnv)}, nil
}
