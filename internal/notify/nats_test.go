package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	flushErr   error
	closed     bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.subject = subject
	f.data = data
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }
func (f *fakeConn) Close()                                 { f.closed = true }

func TestNATSNotifier_PublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	n := &NATSNotifier{conn: conn, subject: "cdnbundle.releases"}

	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	err := n.Notify(context.Background(), Release{
		RunID:     "run-1",
		Package:   "openai-sdk",
		Version:   "1.3.0",
		Commit:    "abc123",
		Pushed:    true,
		Timestamp: at,
	})
	require.NoError(t, err)
	assert.Equal(t, "cdnbundle.releases", conn.subject)

	var got Release
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, "openai-sdk", got.Package)
	assert.Equal(t, "1.3.0", got.Version)
	assert.True(t, got.Pushed)
	assert.True(t, at.Equal(got.Timestamp))

	require.NoError(t, n.Close())
	assert.True(t, conn.closed)
}

func TestNATSNotifier_FillsTimestamp(t *testing.T) {
	conn := &fakeConn{}
	n := &NATSNotifier{conn: conn, subject: "s"}

	require.NoError(t, n.Notify(context.Background(), Release{Package: "p", Version: "1.0.0"}))

	var got Release
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.False(t, got.Timestamp.IsZero())
}

func TestNATSNotifier_Errors(t *testing.T) {
	tests := []struct {
		name string
		conn *fakeConn
	}{
		{"publish", &fakeConn{publishErr: errors.New("connection closed")}},
		{"flush", &fakeConn{flushErr: errors.New("timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &NATSNotifier{conn: tt.conn, subject: "s"}
			err := n.Notify(context.Background(), Release{Package: "p"})
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
		})
	}
}

func TestNew(t *testing.T) {
	n, err := New("", "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	require.NoError(t, n.Notify(context.Background(), Release{}))

	_, err = New("nats://127.0.0.1:4222", "")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestNewNATSNotifier_Unreachable(t *testing.T) {
	// Port 1 is reserved and refuses connections.
	_, err := NewNATSNotifier("nats://127.0.0.1:1", "cdnbundle.releases")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
}
