// Package pubsub fans out editor events to connected clients
package pubsub

import (
	"context"
	"encoding/json"

	"github.com/ritzau/scenegraph/pkg/diff"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "exports", "session")
	Type    string          `json:"type"`    // Event type (e.g., "exported", "failed", "edited")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher announces exports and session edits to subscribers
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// PublishExport announces a written or failed module export
	PublishExport(data ExportData) error

	// PublishSession announces the state of the module under edit
	PublishSession(data SessionData) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Topics
const (
	TopicExports = "exports"
	TopicSession = "session"
)

// Event types
const (
	EventExported = "exported"
	EventFailed   = "failed"
	EventEdited   = "edited"
)

// ExportData reports one regeneration of a module's source file
type ExportData struct {
	Module   string `json:"module"`
	Path     string `json:"path,omitempty"`
	Changed  bool   `json:"changed"`
	Findings int    `json:"findings"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the export could not be written
func (d ExportData) Failed() bool {
	return d.Error != ""
}

// SessionData summarizes the module under edit after a change
type SessionData struct {
	Module string `json:"module"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
	Undo   int    `json:"undo"`
	Redo   int    `json:"redo"`
	Hash   string `json:"hash"`

	Diff *diff.GraphDiff `json:"diff,omitempty"`
}
