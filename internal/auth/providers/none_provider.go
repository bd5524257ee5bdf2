package providers

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
)

// NoneProvider pushes anonymously (local or file remotes, credential helpers).
type NoneProvider struct{}

func (NoneProvider) Type() config.AuthType { return config.AuthTypeNone }

func (NoneProvider) ValidateConfig(*config.AuthConfig) error { return nil }

func (NoneProvider) CreateAuth(*config.AuthConfig) (transport.AuthMethod, error) { return nil, nil }
