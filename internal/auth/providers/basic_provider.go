package providers

import (
	"errors"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
)

// BasicProvider handles username/password authentication.
type BasicProvider struct{}

func (BasicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (BasicProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Username == "" {
		return errors.New("basic authentication requires a username")
	}
	if authCfg.Password == "" {
		return errors.New("basic authentication requires a password")
	}
	return nil
}

func (BasicProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
}
