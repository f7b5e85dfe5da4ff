package server

import "context"

// Status is the JSON document served at /api/status.
type Status struct {
	Source     SourceStatus     `json:"source"`
	Subscriber SubscriberStatus `json:"subscriber"`
}

// SourceStatus describes the serial side of the bridge.
type SourceStatus struct {
	// Device is the configured serial device path.
	Device string `json:"device"`

	// BaudRate is the configured line speed.
	BaudRate int `json:"baud_rate"`

	// State is "closed", "listening" or "failed".
	State string `json:"state"`

	// Chunks counts every chunk read from the device.
	Chunks uint64 `json:"chunks"`

	// Samples counts chunks that carried a sample.
	Samples uint64 `json:"samples"`

	// LastError is the most recent transport error, if any.
	LastError *string `json:"last_error"`
}

// SubscriberStatus describes the real-time side of the bridge.
type SubscriberStatus struct {
	// Connected reports whether the subscriber slot is occupied.
	Connected bool `json:"connected"`

	// ID identifies the current subscriber connection.
	ID string `json:"id,omitempty"`

	// Connections counts every client that ever connected.
	Connections uint64 `json:"connections"`

	// Published counts samples sent to a subscriber.
	Published uint64 `json:"published"`

	// Dropped counts samples that found no ready subscriber.
	Dropped uint64 `json:"dropped"`
}

// StatusSource produces the current [Status].
//
// Implementations must be safe for concurrent use. An error means the
// status is temporarily unavailable, e.g. during shutdown.
type StatusSource interface {
	Status(ctx context.Context) (Status, error)
}
