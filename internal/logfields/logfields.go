package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyVersion    = "version"
	KeyPackage    = "package"
	KeyFormat     = "format"
	KeyMinified   = "minified"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyBytes      = "bytes"
	KeyCommit     = "commit"
	KeyRemote     = "remote"
	KeyAlias      = "alias"
	KeyTarget     = "target"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Minified(m bool) slog.Attr       { return slog.Bool(KeyMinified, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(name string) slog.Attr      { return slog.String(KeyFile, name) }
func Bytes(n int) slog.Attr           { return slog.Int(KeyBytes, n) }
func Commit(hash string) slog.Attr    { return slog.String(KeyCommit, hash) }
func Remote(name string) slog.Attr    { return slog.String(KeyRemote, name) }
func Alias(name string) slog.Attr     { return slog.String(KeyAlias, name) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
