// Package git wraps the go-git operations the release publisher needs against
// the CDN content repository: opening a working copy, staging a directory,
// detecting staged changes, committing and pushing.
//
// Every operation takes the repository root explicitly; nothing changes the
// process working directory.
package git
