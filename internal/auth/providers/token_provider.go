package providers

import (
	"errors"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
)

// TokenProvider sends a personal access token over HTTP basic auth.
type TokenProvider struct{}

func (TokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (TokenProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Token == "" {
		return errors.New("token authentication requires a token")
	}
	return nil
}

// CreateAuth uses "token" as the username unless one is configured; most forges ignore it.
func (TokenProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	user := authCfg.Username
	if user == "" {
		user = "token"
	}
	return &http.BasicAuth{Username: user, Password: authCfg.Token}, nil
}
