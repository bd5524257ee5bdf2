package git

import (
	"errors"
	"strings"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

var (
	// ErrNotRepository reports a directory that is not a git working copy.
	ErrNotRepository = errors.New("not a git repository")
	// ErrBareRepository reports a repository without a working tree.
	ErrBareRepository = errors.New("bare repository has no working tree")
)

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, remote string) error {
	if err == nil {
		return nil
	}

	// Already classified
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())

	builder := ferrors.GitError("git "+op+" failed").
		WithCause(err).
		WithContext("op", op)
	if remote != "" {
		builder.WithContext("remote", remote)
	}

	switch {
	case strings.Contains(l, "authentication required") || strings.Contains(l, "authentication failed") ||
		strings.Contains(l, "authorization failed") || strings.Contains(l, "not authorized") ||
		strings.Contains(l, "permission denied") || strings.Contains(l, "invalid credentials"):
		builder = ferrors.AuthError("git "+op+" was rejected by the remote").
			WithCause(err).
			WithContext("op", op).
			WithRemedy("check cdn.auth credentials for the CDN remote")
	case strings.Contains(l, "non-fast-forward") || strings.Contains(l, "diverged"):
		builder.WithContext("diverged", true).
			WithRemedy("the CDN remote has commits you do not; pull them into the CDN repository and deploy again")
	case strings.Contains(l, "remote not found"):
		builder.WithRemedy("configure cdn.remote or add the remote to the CDN repository")
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		builder.WithRemedy("use an https, ssh or file remote URL")
	}

	return builder.Build()
}
