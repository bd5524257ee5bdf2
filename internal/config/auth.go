package config

import "strings"

// AuthType enumerates supported authentication methods (stringly for YAML compatibility).
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
)

// AuthConfig represents push authentication for the CDN remote.
type AuthConfig struct {
	Type     AuthType `yaml:"type"` // ssh|token|basic|none
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	KeyPath  string   `yaml:"key_path,omitempty"`
}

// IsZero reports whether no auth method specified.
func (a *AuthConfig) IsZero() bool { return a == nil || a.Type == "" || a.Type == AuthTypeNone }

// NormalizeAuthType returns the canonical AuthType or "" when unknown.
func NormalizeAuthType(raw string) AuthType {
	switch AuthType(strings.ToLower(strings.TrimSpace(raw))) {
	case AuthTypeNone:
		return AuthTypeNone
	case AuthTypeSSH:
		return AuthTypeSSH
	case AuthTypeToken:
		return AuthTypeToken
	case AuthTypeBasic:
		return AuthTypeBasic
	default:
		return ""
	}
}

// IsValid reports whether the auth type is one of the supported methods.
func (t AuthType) IsValid() bool {
	switch t {
	case AuthTypeNone, AuthTypeSSH, AuthTypeToken, AuthTypeBasic:
		return true
	}
	return false
}
