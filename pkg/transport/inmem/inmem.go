// Package inmem provides an in-process transport: a Network of named
// responders and a Connector that pipes channels to them. It backs tests
// and single-process simulations.
package inmem

import (
    "context"
    "errors"
    "fmt"
    "net"
    "strconv"
    "sync"

    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

var ErrConnectionRefused = errors.New("inmem: connection refused")

// Network is a registry of listening addresses.
type Network struct {
    mu        sync.Mutex
    listeners map[string]transport.Responder
}

func NewNetwork() *Network { return &Network{listeners: make(map[string]transport.Responder)} }

// Listen registers r at host:port, replacing any previous responder.
func (n *Network) Listen(host string, port uint16, r transport.Responder) {
    n.mu.Lock()
    n.listeners[addr(host, port)] = r
    n.mu.Unlock()
}

// Close unregisters host:port.
func (n *Network) Close(host string, port uint16) {
    n.mu.Lock()
    delete(n.listeners, addr(host, port))
    n.mu.Unlock()
}

// Connect implements transport.Connector.
func (n *Network) Connect(ctx context.Context, host string, port uint16) (transport.Channel, error) {
    if err := ctx.Err(); err != nil { return nil, err }
    a := addr(host, port)
    n.mu.Lock()
    r, ok := n.listeners[a]
    n.mu.Unlock()
    if !ok { return nil, fmt.Errorf("%w: %s", ErrConnectionRefused, a) }
    local, remote := Pipe("client->"+a, a)
    r.Serve(remote)
    return local, nil
}

var _ transport.Connector = (*Network)(nil)

func addr(host string, port uint16) string { return net.JoinHostPort(host, strconv.Itoa(int(port))) }

// Channel is one end of a Pipe.
type Channel struct {
    subs    transport.Subscriptions
    peer    *Channel
    remote  string
    inbox   chan wire.Message
    done    chan struct{}

    mu      sync.Mutex
    started bool
    stopped bool
    reason  error
}

// Pipe returns two connected channels; aAddr/bAddr are the addresses each
// end reports for its peer.
func Pipe(aAddr, bAddr string) (*Channel, *Channel) {
    a := &Channel{remote: bAddr, inbox: make(chan wire.Message, 64), done: make(chan struct{})}
    b := &Channel{remote: aAddr, inbox: make(chan wire.Message, 64), done: make(chan struct{})}
    a.peer, b.peer = b, a
    return a, b
}

func (c *Channel) Start() {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.started || c.stopped { return }
    c.started = true
    go c.read()
}

// read dispatches the inbox until Stop. Messages already queued when the
// channel stops are still delivered, ahead of the stop notification.
func (c *Channel) read() {
    for {
        select {
        case m := <-c.inbox:
            c.subs.Dispatch(m)
        case <-c.done:
            for {
                select {
                case m := <-c.inbox:
                    c.subs.Dispatch(m)
                default:
                    c.subs.Close(c.reason)
                    return
                }
            }
        }
    }
}

func (c *Channel) Send(ctx context.Context, msg wire.Message) error {
    select {
    case <-c.done:
        return c.reason
    case <-c.peer.done:
        return transport.ErrRemoteClosed
    default:
    }
    select {
    case <-c.done:
        return c.reason
    case <-c.peer.done:
        return transport.ErrRemoteClosed
    case <-ctx.Done():
        return ctx.Err()
    case c.peer.inbox <- msg:
        return nil
    }
}

func (c *Channel) Subscribe(command string, h transport.MessageHandler) { c.subs.Subscribe(command, h) }
func (c *Channel) SubscribeStop(h transport.StopHandler)                 { c.subs.SubscribeStop(h) }

// Stop closes this end and, asynchronously, the peer end.
func (c *Channel) Stop(reason error) {
    c.mu.Lock()
    if c.stopped {
        c.mu.Unlock()
        return
    }
    if reason == nil { reason = transport.ErrChannelStopped }
    c.stopped = true
    c.reason = reason
    close(c.done)
    reading := c.started
    c.mu.Unlock()

    if !reading { go c.subs.Close(reason) }
    go c.peer.Stop(transport.ErrRemoteClosed)
}

func (c *Channel) Address() string { return c.remote }

var _ transport.Channel = (*Channel)(nil)
