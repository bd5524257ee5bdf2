// Package pipeline runs one `cdnbundle build`: check the entry point, read
// the version, emit every artifact in memory, write the version directory,
// generate example pages, move the latest alias, and record the build in the
// manifest and the release ledger.
//
// Emission happens before anything touches the output tree, so a bundler
// failure leaves no new version directory and never moves the alias.
package pipeline
