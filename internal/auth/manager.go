// Package auth turns the cdn.auth configuration into go-git push credentials.
package auth

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/cdnbundle/internal/auth/providers"
	"git.home.luguber.info/inful/cdnbundle/internal/config"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// Manager provides a high-level interface for authentication operations.
type Manager struct {
	registry *providers.Registry
}

// NewManager creates a new authentication manager with the standard providers.
func NewManager() *Manager {
	return &Manager{registry: providers.NewRegistry()}
}

// CreateAuth creates push credentials for authCfg. A nil or "none" config yields nil.
func (m *Manager) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	method, err := m.registry.CreateAuth(authCfg)
	if err != nil {
		return nil, ferrors.AuthError("cannot build push credentials").
			WithCause(err).
			WithRemedy("check cdn.auth in the configuration").
			Build()
	}
	return method, nil
}

// DefaultManager is a package-level instance for convenience.
var DefaultManager = NewManager()

// CreateAuth is a convenience function that uses the default manager.
func CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return DefaultManager.CreateAuth(authCfg)
}
