// Package notify announces deployed releases to downstream consumers.
package notify

import (
	"context"
	"time"
)

// Release is the message published after a successful deploy.
type Release struct {
	RunID     string    `json:"run_id"`
	Package   string    `json:"package"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Pushed    bool      `json:"pushed"`
	URLs      []string  `json:"urls,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes release announcements.
type Notifier interface {
	Notify(ctx context.Context, r Release) error
	Close() error
}

// Noop is used when no notification backend is configured.
type Noop struct{}

func (Noop) Notify(context.Context, Release) error { return nil }
func (Noop) Close() error                          { return nil }
