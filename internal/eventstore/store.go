package eventstore

import "context"

// Store defines the interface for persisting and retrieving ledger events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, e Event) error

	// Recent returns the newest events first, at most limit of them.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// GetByRelease returns every event for one package version, oldest first.
	GetByRelease(ctx context.Context, pkg, version string) ([]Event, error)

	// GetByRunID returns every event recorded by one run, oldest first.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}

// NopStore discards events; used when history.path is empty.
type NopStore struct{}

func (NopStore) Append(context.Context, Event) error                           { return nil }
func (NopStore) Recent(context.Context, int) ([]Event, error)                  { return nil, nil }
func (NopStore) GetByRelease(context.Context, string, string) ([]Event, error) { return nil, nil }
func (NopStore) GetByRunID(context.Context, string) ([]Event, error)           { return nil, nil }
func (NopStore) Close() error                                                  { return nil }
