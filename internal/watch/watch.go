// Package watch re-runs a callback when source files change. fsnotify events
// are debounced; an optional gocron job polls a tree fingerprint for
// filesystems that do not deliver events (network mounts, some containers).
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// DefaultDebounce applies when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// skippedDirs are never watched or fingerprinted.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Options configures a Watcher.
type Options struct {
	// Paths are files or directory roots to watch. Directories are walked.
	Paths []string
	// Ignore lists path prefixes that never trigger a change (the output
	// directory, so rebuilds do not feed back into the watcher).
	Ignore       []string
	Debounce     time.Duration
	PollInterval time.Duration
}

// Watcher drives a change callback from filesystem activity.
type Watcher struct {
	opts     Options
	onChange func(ctx context.Context)
	fsw      *fsnotify.Watcher
	trigger  chan struct{}

	mu          sync.Mutex
	fingerprint string
}

// New sets up watches on every configured path. Watches are in place when
// New returns, so changes made after it are observed by Run.
func New(opts Options, onChange func(ctx context.Context)) (*Watcher, error) {
	if len(opts.Paths) == 0 {
		return nil, ferrors.ValidationError("watch requires at least one path").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	opts.Paths = absAll(opts.Paths)
	opts.Ignore = absAll(opts.Ignore)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.FileSystemError("failed to create file watcher").WithCause(err).Build()
	}

	w := &Watcher{
		opts:     opts,
		onChange: onChange,
		fsw:      fsw,
		trigger:  make(chan struct{}, 1),
	}
	for _, p := range opts.Paths {
		if err := w.addTree(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	if opts.PollInterval > 0 {
		fp, err := Fingerprint(opts.Paths, opts.Ignore)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.fingerprint = fp
	}
	return w, nil
}

// Run blocks until ctx is canceled. onChange runs on the Run goroutine, so
// callbacks never overlap; events arriving during a callback coalesce into
// one follow-up run.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}()

	if w.opts.PollInterval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return ferrors.InternalError("failed to create poll scheduler").WithCause(err).Build()
		}
		if _, err := s.NewJob(
			gocron.DurationJob(w.opts.PollInterval),
			gocron.NewTask(w.poll),
			gocron.WithName("watch-poll"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return ferrors.InternalError("failed to schedule poll job").WithCause(err).Build()
		}
		s.Start()
		defer func() { _ = s.Shutdown() }()
	}

	slog.Info("Watching for changes",
		"paths", strings.Join(w.opts.Paths, ","),
		"debounce", w.opts.Debounce,
		"poll_interval", w.opts.PollInterval)

	var timer *time.Timer
	var fire <-chan time.Time
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.opts.Debounce)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.opts.Debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Change detected", "file", event.Name, "op", event.Op.String())
			arm()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)

		case <-w.trigger:
			arm()

		case <-fire:
			fire = nil
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if w.ignored(event.Name) {
		return false
	}
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
			}
		}
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// poll runs on the gocron goroutine and nudges Run when the tree changed.
func (w *Watcher) poll() {
	if w.changed() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) changed() bool {
	fp, err := Fingerprint(w.opts.Paths, w.opts.Ignore)
	if err != nil {
		slog.Warn("Fingerprinting watched paths failed", "error", err)
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if fp == w.fingerprint {
		return false
	}
	w.fingerprint = fp
	return true
}

func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return ferrors.FileSystemError("watch path not accessible").
			WithCause(err).
			WithContext("path", root).
			Build()
	}
	if !info.IsDir() {
		return w.add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (skippedDirs[d.Name()] || w.ignored(path)) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return ferrors.FileSystemError("failed to watch path").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}

func (w *Watcher) ignored(path string) bool {
	return isIgnored(path, w.opts.Ignore)
}

func isIgnored(path string, ignore []string) bool {
	for _, prefix := range ignore {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Fingerprint hashes the name, size and modification time of every regular
// file below paths. Ignored prefixes and skipped directories are excluded.
func Fingerprint(paths, ignore []string) (string, error) {
	h := sha256.New()
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isIgnored(path, ignore) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && skippedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(h, "%s\x00%d\x00%d\n", path, info.Size(), info.ModTime().UnixNano())
			return nil
		})
		if err != nil {
			return "", ferrors.FileSystemError("failed to fingerprint watched tree").
				WithCause(err).
				WithContext("path", root).
				Build()
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
