package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
)

// SSHProvider loads a private key from disk. Password, when set, is the key passphrase.
type SSHProvider struct{}

func (SSHProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (SSHProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	keyPath := sshKeyPath(authCfg)
	if _, err := os.Stat(keyPath); err != nil {
		return fmt.Errorf("SSH key file not readable: %s: %w", keyPath, err)
	}
	return nil
}

func (SSHProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	user := authCfg.Username
	if user == "" {
		user = "git"
	}
	keyPath := sshKeyPath(authCfg)
	keys, err := ssh.NewPublicKeysFromFile(user, keyPath, authCfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return keys, nil
}

// sshKeyPath returns the configured key or the first default key that exists.
func sshKeyPath(authCfg *config.AuthConfig) string {
	if authCfg.KeyPath != "" {
		return authCfg.KeyPath
	}
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[len(candidates)-1]
}
