// Package publish copies a built version directory into a git-backed CDN
// repository and records it as a commit.
//
// A deploy moves through four stages:
//
//	Validate -> Stage -> Commit -> Push | Hold
//
// Validate checks that the build output and the CDN working copy exist.
// Stage copies the artifacts into libs/<package>/v-<version> and moves the
// library's latest alias. An existing version directory is a conflict that
// only Request.Force or the ConfirmFunc can resolve. Commit stages the
// library directory and commits only when the index differs from HEAD; a
// clean index is the NoChanges result, not an error. Push runs only when
// requested, otherwise the commit is held locally.
//
// There is no rollback. The repository is assumed to be owned exclusively
// by one deploy at a time.
package publish
