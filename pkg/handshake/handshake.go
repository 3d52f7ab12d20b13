package handshake

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

var (
    ErrSelfConnection   = errors.New("handshake: connected to self")
    ErrObsoleteProtocol = errors.New("handshake: peer protocol too old")
    ErrTimeout          = errors.New("handshake: timed out")
)

// Negotiator performs protocol negotiation on an established channel. The
// channel's read loop must be running (or started right after the
// negotiator subscribed) for the negotiation to progress.
type Negotiator interface {
    Negotiate(ctx context.Context, ch transport.Channel, relay bool) error
}

// Options configures the default version/verack handshake.
type Options struct {
    Protocol    uint32
    MinProtocol uint32
    Services    uint64
    UserAgent   string
    // Timeout bounds one negotiation; zero means 10s.
    Timeout time.Duration
    Logger  *log.Logger
}

// Handshake is the default Negotiator. One instance is shared by all
// outbound and inbound channels of a node so self-connections are detected.
type Handshake struct {
    opts   Options
    mu     sync.Mutex
    nonces map[string]struct{}
}

func New(opts Options) *Handshake {
    if opts.Protocol == 0 { opts.Protocol = wire.ProtocolVersion }
    if opts.MinProtocol == 0 { opts.MinProtocol = wire.MinProtocolVersion }
    if opts.Services == 0 { opts.Services = wire.ServiceNetwork }
    if opts.UserAgent == "" { opts.UserAgent = "/go-seeder:0.1/" }
    if opts.Timeout <= 0 { opts.Timeout = 10 * time.Second }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &Handshake{opts: opts, nonces: make(map[string]struct{})}
}

// Negotiate sends our version, answers the peer's version with verack and
// returns once the peer's version and verack were both received.
func (h *Handshake) Negotiate(ctx context.Context, ch transport.Channel, relay bool) error {
    ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
    defer cancel()

    // only the first of each kind is consumed
    versions := make(chan wire.Message, 1)
    veracks := make(chan struct{}, 1)
    failures := make(chan error, 1)
    ch.Subscribe(wire.CmdVersion, func(err error, m wire.Message) {
        if err != nil { offer(failures, err); return }
        offer(versions, m)
    })
    ch.Subscribe(wire.CmdVerack, func(err error, _ wire.Message) {
        if err != nil { offer(failures, err); return }
        offer(veracks, struct{}{})
    })

    nonce := h.register()
    defer h.release(nonce)

    if err := ch.Send(ctx, h.version(nonce, relay)); err != nil {
        return fmt.Errorf("handshake: send version: %w", err)
    }

    wantVersion, wantVerack := versions, veracks
    for wantVersion != nil || wantVerack != nil {
        select {
        case <-ctx.Done():
            if errors.Is(ctx.Err(), context.DeadlineExceeded) { return ErrTimeout }
            return ctx.Err()
        case err := <-failures:
            return err
        case m := <-wantVersion:
            wantVersion = nil
            if err := h.check(m); err != nil { return err }
            if err := ch.Send(ctx, wire.MustEncode(wire.CmdVerack, nil)); err != nil {
                return fmt.Errorf("handshake: send verack: %w", err)
            }
        case <-wantVerack:
            wantVerack = nil
        }
    }
    logutil.Debugf(h.opts.Logger, "handshake complete with [%s]", ch.Address())
    return nil
}

// Accept answers inbound handshakes: each peer version is validated and
// answered with our version followed by verack.
func (h *Handshake) Accept(ch transport.Channel) {
    nonce := uuid.NewString()
    var once sync.Once
    ch.Subscribe(wire.CmdVersion, func(err error, m wire.Message) {
        if err != nil { return }
        if cerr := h.check(m); cerr != nil {
            logutil.Debugf(h.opts.Logger, "rejecting handshake from [%s]: %v", ch.Address(), cerr)
            ch.Stop(cerr)
            return
        }
        once.Do(func() {
            ctx, cancel := context.WithTimeout(context.Background(), h.opts.Timeout)
            defer cancel()
            if err := ch.Send(ctx, h.version(nonce, false)); err != nil { ch.Stop(err); return }
            if err := ch.Send(ctx, wire.MustEncode(wire.CmdVerack, nil)); err != nil { ch.Stop(err) }
        })
    })
}

// offer hands v over without blocking the channel's read loop; extra
// values are dropped.
func offer[T any](c chan T, v T) {
    select {
    case c <- v:
    default:
    }
}

func (h *Handshake) version(nonce string, relay bool) wire.Message {
    return wire.MustEncode(wire.CmdVersion, wire.Version{
        Protocol:  h.opts.Protocol,
        Services:  h.opts.Services,
        Nonce:     nonce,
        Relay:     relay,
        UserAgent: h.opts.UserAgent,
        Timestamp: time.Now().UTC(),
    })
}

func (h *Handshake) check(m wire.Message) error {
    var v wire.Version
    if err := m.Decode(&v); err != nil { return err }
    if v.Protocol < h.opts.MinProtocol {
        return fmt.Errorf("%w: %d < %d", ErrObsoleteProtocol, v.Protocol, h.opts.MinProtocol)
    }
    h.mu.Lock()
    _, self := h.nonces[v.Nonce]
    h.mu.Unlock()
    if self { return ErrSelfConnection }
    return nil
}

func (h *Handshake) register() string {
    n := uuid.NewString()
    h.mu.Lock()
    h.nonces[n] = struct{}{}
    h.mu.Unlock()
    return n
}

func (h *Handshake) release(n string) {
    h.mu.Lock()
    delete(h.nonces, n)
    h.mu.Unlock()
}

var _ Negotiator = (*Handshake)(nil)
