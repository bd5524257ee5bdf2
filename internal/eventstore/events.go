package eventstore

import (
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// BuildCompleted is the payload of build.completed.
type BuildCompleted struct {
	Files        []string `json:"files"`
	Alias        string   `json:"alias"`
	ManifestPath string   `json:"manifest,omitempty"`
	Digest       string   `json:"digest,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// DeployCommitted is the payload of deploy.committed.
type DeployCommitted struct {
	Commit string   `json:"commit"`
	Files  []string `json:"files"`
	Forced bool     `json:"forced,omitempty"`
}

// DeployPushed is the payload of deploy.pushed.
type DeployPushed struct {
	Commit   string `json:"commit"`
	Remote   string `json:"remote"`
	UpToDate bool   `json:"up_to_date,omitempty"`
}

// DeployReason is the payload of deploy.noop and deploy.declined.
type DeployReason struct {
	Reason string `json:"reason"`
}

// NewEvent builds an Event with a JSON-encoded payload.
func NewEvent(runID, eventType, pkg, version string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, ferrors.StoreError("failed to marshal event payload").
			WithCause(err).
			WithContext("type", eventType).
			Build()
	}
	return Event{
		RunID:     runID,
		Type:      eventType,
		Package:   pkg,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return ferrors.StoreError("failed to unmarshal event payload").
			WithCause(err).
			WithContext("type", e.Type).
			Build()
	}
	return nil
}
