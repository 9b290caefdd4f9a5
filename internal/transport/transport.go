// Package transport carries frames between the bridge and the Z-Wave
// controller. The protocol core never touches I/O; it hands Frame values to
// a Transport and receives Report values from it. Retries, ACK handling and
// timeouts all live here, not in the core.
package transport

import (
	"context"
	"errors"

	"zwave-lock-bridge/internal/zwave"
)

// ErrClosed is returned when sending on a closed transport.
var ErrClosed = errors.New("transport closed")

// ErrNoAck is returned when the controller never acknowledged a frame.
var ErrNoAck = errors.New("no ack from controller")

// Transport is the collaborator interface the driver depends on.
// Implementations may deliver reports from any goroutine; delivery for a
// single device is serialized.
type Transport interface {
	// SendFrame serializes and transmits one frame to the paired lock.
	SendFrame(ctx context.Context, f zwave.Frame) error

	// OnReport registers the handler for inbound reports. Must be called
	// before the first report can arrive; later calls replace the handler.
	OnReport(handler func(zwave.Report))

	Close() error
}
