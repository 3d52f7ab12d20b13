package grpc

import (
    "context"
    "errors"
    "fmt"
    "io"
    "sync"

    "google.golang.org/grpc/codes"
    "google.golang.org/grpc/status"

    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

// msgStream is the part of grpc.ClientStream and grpc.ServerStream a
// channel needs.
type msgStream interface {
    SendMsg(m interface{}) error
    RecvMsg(m interface{}) error
}

// streamChannel adapts one bidirectional Exchange stream to
// transport.Channel. Both the dialing and the serving side use it.
type streamChannel struct {
    subs    transport.Subscriptions
    stream  msgStream
    remote  string
    sendMu  sync.Mutex
    closeFn func()
    start   sync.Once
    stop    sync.Once
    done    chan struct{}
    reason  error
}

func newStreamChannel(stream msgStream, remote string, closeFn func()) *streamChannel {
    return &streamChannel{stream: stream, remote: remote, closeFn: closeFn, done: make(chan struct{})}
}

func (c *streamChannel) Start() {
    c.start.Do(func() { go c.readLoop() })
}

func (c *streamChannel) readLoop() {
    for {
        var m wire.Message
        if err := c.stream.RecvMsg(&m); err != nil {
            c.Stop(recvReason(err))
            return
        }
        if !wire.Known(m.Command) { continue }
        c.subs.Dispatch(m)
    }
}

// recvReason maps stream termination to a stop reason.
func recvReason(err error) error {
    if errors.Is(err, io.EOF) { return transport.ErrRemoteClosed }
    switch status.Code(err) {
    case codes.Canceled, codes.Unavailable:
        return fmt.Errorf("%w: %v", transport.ErrRemoteClosed, err)
    }
    return fmt.Errorf("grpc: recv: %w", err)
}

func (c *streamChannel) Send(ctx context.Context, msg wire.Message) error {
    select {
    case <-c.done:
        return c.reason
    default:
    }
    if err := ctx.Err(); err != nil { return err }
    c.sendMu.Lock()
    defer c.sendMu.Unlock()
    if err := c.stream.SendMsg(&msg); err != nil {
        if errors.Is(err, io.EOF) { return transport.ErrRemoteClosed }
        return fmt.Errorf("grpc: send %s: %w", msg.Command, err)
    }
    return nil
}

func (c *streamChannel) Subscribe(command string, h transport.MessageHandler) { c.subs.Subscribe(command, h) }
func (c *streamChannel) SubscribeStop(h transport.StopHandler)                 { c.subs.SubscribeStop(h) }

func (c *streamChannel) Stop(reason error) {
    c.stop.Do(func() {
        if reason == nil { reason = transport.ErrChannelStopped }
        c.reason = reason
        close(c.done)
        if c.closeFn != nil { c.closeFn() }
        go c.subs.Close(reason)
    })
}

func (c *streamChannel) Address() string { return c.remote }

var _ transport.Channel = (*streamChannel)(nil)
