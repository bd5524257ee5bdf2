// Package providers builds go-git transport credentials for the CDN push.
package providers

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
)

// AuthProvider handles one authentication method.
type AuthProvider interface {
	Type() config.AuthType

	// ValidateConfig checks the method's required fields before any network use.
	ValidateConfig(authCfg *config.AuthConfig) error

	// CreateAuth returns the transport credentials; nil, nil means anonymous.
	CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error)
}

// Registry maps auth types to providers.
type Registry struct {
	providers map[config.AuthType]AuthProvider
}

// NewRegistry creates a registry with the none, ssh, token and basic providers.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[config.AuthType]AuthProvider)}
	r.Register(NoneProvider{})
	r.Register(SSHProvider{})
	r.Register(TokenProvider{})
	r.Register(BasicProvider{})
	return r
}

// Register adds or replaces the provider for its type.
func (r *Registry) Register(p AuthProvider) {
	r.providers[p.Type()] = p
}

// CreateAuth validates authCfg with the matching provider and builds credentials.
func (r *Registry) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg.IsZero() {
		return nil, nil
	}

	p, ok := r.providers[authCfg.Type]
	if !ok {
		return nil, &AuthError{Type: authCfg.Type, Message: "unsupported authentication type"}
	}
	if err := p.ValidateConfig(authCfg); err != nil {
		return nil, &AuthError{Type: authCfg.Type, Message: "configuration validation failed", Cause: err}
	}
	method, err := p.CreateAuth(authCfg)
	if err != nil {
		return nil, &AuthError{Type: authCfg.Type, Message: "failed to create authentication", Cause: err}
	}
	return method, nil
}

// AuthError represents an authentication-related error.
type AuthError struct {
	Type    config.AuthType
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Cause }
