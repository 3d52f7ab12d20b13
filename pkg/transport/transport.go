package transport

import (
    "context"
    "errors"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

// ErrChannelStopped is the stop reason used when the local side closes a
// channel on purpose (e.g. after harvesting addresses). Stop handlers should
// treat it as a normal teardown.
var ErrChannelStopped = errors.New("transport: channel stopped")

// ErrRemoteClosed is the stop reason when the remote side went away.
var ErrRemoteClosed = errors.New("transport: closed by remote")

// MessageHandler receives one inbound message, or a non-nil error when the
// channel fails before a message of the subscribed command arrives.
type MessageHandler func(err error, msg wire.Message)

// StopHandler is invoked exactly once with the reason the channel stopped.
type StopHandler func(reason error)

// Channel is an established peer connection. Subscriptions registered after
// the channel stopped are invoked immediately with the stop reason.
type Channel interface {
    // Start begins the read loop. Handlers subscribed before Start never
    // miss a message.
    Start()
    Send(ctx context.Context, msg wire.Message) error
    // Subscribe registers a handler for every inbound message with the given
    // command until the channel stops.
    Subscribe(command string, h MessageHandler)
    SubscribeStop(h StopHandler)
    // Stop tears the channel down; reason is passed to stop handlers.
    // Calling Stop more than once is a no-op.
    Stop(reason error)
    // Address returns the remote address as seen by the transport.
    Address() string
}

// Connector opens outbound channels.
type Connector interface {
    Connect(ctx context.Context, host string, port uint16) (Channel, error)
}

// Responder serves the remote end of a Channel (seed side). Transports call
// Serve for each accepted channel after Start.
type Responder interface {
    Serve(ch Channel)
}
