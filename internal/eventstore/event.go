// Package eventstore is the release ledger: an append-only SQLite log of
// build and deploy events, queried by `cdnbundle history`.
package eventstore

import "time"

// Event types recorded by the build pipeline and the release publisher.
const (
	TypeBuildCompleted  = "build.completed"
	TypeDeployCommitted = "deploy.committed"
	TypeDeployNoop      = "deploy.noop"
	TypeDeployPushed    = "deploy.pushed"
	TypeDeployDeclined  = "deploy.declined"
)

// Event is one ledger entry.
type Event struct {
	ID        int64
	RunID     string
	Type      string
	Package   string
	Version   string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}
