// Package node runs a seeder as a long-lived service: it serves its own pool
// to other peers, exposes management endpoints and refills the pool from the
// configured seeds on start, on demand and periodically.
package node

import (
    "context"
    "encoding/json"
    "errors"
    "sync"
    "sync/atomic"
    "time"

    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/discovery/gossip"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    "github.com/amirimatin/go-seeder/pkg/observability/metrics"
    "github.com/amirimatin/go-seeder/pkg/observability/tracing"
    "github.com/amirimatin/go-seeder/pkg/seeder"
    "github.com/amirimatin/go-seeder/pkg/transport"
)

var (
    ErrNotWritable = errors.New("node: pool is read-only on this node")
    ErrStopped     = errors.New("node: stopped")
)

// Facade is the high-level API used by the CLI and embedding programs.
type Facade interface {
    Start(ctx context.Context) error
    Seed(ctx context.Context, seeds []endpoint.Endpoint) (RunInfo, error)
    Status(ctx context.Context) (*Status, error)
    Stop(ctx context.Context) error
}

// writable is implemented by pools that reject writes on some nodes, such
// as a replicated pool on a follower.
type writable interface{ Writable() bool }

// Node is the concrete Facade.
type Node struct {
    opts Options
    sd   *seeder.Seeder

    mu      sync.Mutex
    started bool
    closed  bool
    cancel  context.CancelFunc
    wg      sync.WaitGroup
    last    *RunInfo

    runMu   sync.Mutex
    running atomic.Bool
    runs    atomic.Uint64
}

// New builds a node from validated options. It performs no network activity.
func New(opts Options) (*Node, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    sd, err := seeder.New(seeder.Options{
        Connector:   opts.Connector,
        Negotiator:  opts.Negotiator,
        Pool:        opts.Pool,
        Logger:      opts.Logger,
        SeedTimeout: opts.SeedTimeout,
    })
    if err != nil { return nil, err }
    return &Node{opts: opts, sd: sd}, nil
}

// Start launches consensus, discovery, the peer and management servers and
// the background seeding loop. Everything stops when ctx is canceled or Stop
// is called.
func (n *Node) Start(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.closed { return ErrStopped }
    if n.started { return nil }
    metrics.Register()

    ctx, cancel := context.WithCancel(ctx)
    if n.opts.Consensus != nil {
        if err := n.opts.Consensus.Start(ctx); err != nil { cancel(); return err }
    }
    if n.opts.Gossip != nil {
        if err := n.opts.Gossip.Start(ctx); err != nil { cancel(); return err }
    }
    if n.opts.PeerServer != nil {
        var status transport.StatusFunc
        var seed transport.SeedFunc
        if n.opts.MgmtServer == n.opts.PeerServer { status, seed = n.statusJSON, n.handleSeed }
        if err := n.opts.PeerServer.Start(ctx, status, seed); err != nil { cancel(); return err }
        logutil.Infof(n.opts.Logger, "node %s: peer service listening at %s", n.opts.NodeID, n.opts.PeerServer.Addr())
    }
    if n.opts.MgmtServer != nil && n.opts.MgmtServer != n.opts.PeerServer {
        if err := n.opts.MgmtServer.Start(ctx, n.statusJSON, n.handleSeed); err != nil { cancel(); return err }
        logutil.Infof(n.opts.Logger, "node %s: management endpoint listening at %s (status/seed/metrics/healthz)", n.opts.NodeID, n.opts.MgmtServer.Addr())
    }
    n.started = true
    n.cancel = cancel

    n.wg.Add(1)
    go n.loop(ctx)
    return nil
}

// loop runs the initial pass, the refill ticker and gossip-triggered passes.
func (n *Node) loop(ctx context.Context) {
    defer n.wg.Done()
    if n.opts.SeedOnStart { n.background(ctx, "start") }

    var tick <-chan time.Time
    if n.opts.SeedInterval > 0 {
        t := time.NewTicker(n.opts.SeedInterval)
        defer t.Stop()
        tick = t.C
    }
    var joins <-chan gossip.Event
    if n.opts.Gossip != nil { joins = n.opts.Gossip.Events() }

    for {
        select {
        case <-ctx.Done():
            return
        case <-tick:
            metrics.HostPoolSize.Set(float64(n.opts.Pool.Size()))
            if n.opts.Pool.Size() < n.opts.MinHosts { n.background(ctx, "refill") }
        case ev, ok := <-joins:
            if !ok { joins = nil; continue }
            if ev.Type != gossip.EventJoin { continue }
            if _, peer := ev.Member.Peer(); !peer || ev.Member.ID == n.opts.NodeID { continue }
            if n.running.Load() { continue }
            n.background(ctx, "gossip join "+ev.Member.ID)
        }
    }
}

func (n *Node) background(ctx context.Context, why string) {
    info, err := n.Seed(ctx, nil)
    switch {
    case errors.Is(err, ErrNotWritable):
        logutil.Debugf(n.opts.Logger, "node %s: skipping %s seeding: %v", n.opts.NodeID, why, err)
    case err != nil:
        logutil.Warnf(n.opts.Logger, "node %s: %s seeding: %v", n.opts.NodeID, why, err)
    default:
        logutil.Infof(n.opts.Logger, "node %s: %s seeding %s (%d -> %d hosts)", n.opts.NodeID, why, info.Outcome, info.HostsFrom, info.HostsTo)
    }
}

// Seed runs one seeding pass and waits for it. A nil or empty seeds uses the
// discovery. Passes are serialized. A pass that completes without growing
// the pool returns seeder.ErrOperationFailed along with its RunInfo.
func (n *Node) Seed(ctx context.Context, seeds []endpoint.Endpoint) (RunInfo, error) {
    if w, ok := n.opts.Pool.(writable); ok && !w.Writable() { return RunInfo{}, ErrNotWritable }
    n.runMu.Lock()
    defer n.runMu.Unlock()
    n.running.Store(true)
    defer n.running.Store(false)

    if len(seeds) == 0 { seeds = n.opts.Discovery.Seeds() }
    ctx, end := tracing.StartSpan(ctx, "node.seed")
    defer end()

    info := RunInfo{Started: time.Now(), HostsFrom: n.opts.Pool.Size(), Seeds: len(seeds)}
    err := n.sd.Run(ctx, seeds)
    info.Duration = time.Since(info.Started)
    info.HostsTo = n.opts.Pool.Size()
    info.Outcome = seeder.Outcome(err)
    if err != nil { info.Error = err.Error() }
    metrics.HostPoolSize.Set(float64(info.HostsTo))

    n.mu.Lock()
    n.last = &info
    n.mu.Unlock()
    n.runs.Add(1)
    return info, err
}

func (n *Node) handleSeed(ctx context.Context, req transport.SeedRequest) (transport.SeedResponse, error) {
    var seeds []endpoint.Endpoint
    if len(req.Seeds) > 0 {
        seeds = discovery.Endpoints(req.Seeds, n.opts.Logger)
        if len(seeds) == 0 { return transport.SeedResponse{Error: "no valid seeds in request"}, nil }
    }
    info, err := n.Seed(ctx, seeds)
    resp := transport.SeedResponse{Success: err == nil, HostsFrom: info.HostsFrom, HostsTo: info.HostsTo}
    if err != nil { resp.Error = err.Error() }
    return resp, nil
}

// Status returns a snapshot of the node.
func (n *Node) Status(ctx context.Context) (*Status, error) {
    _, end := tracing.StartSpan(ctx, "node.status")
    defer end()
    st := &Status{
        NodeID:   n.opts.NodeID,
        Hosts:    n.opts.Pool.Size(),
        Seeds:    endpoint.Strings(n.opts.Discovery.Seeds()),
        Runs:     n.runs.Load(),
        Running:  n.running.Load(),
        Writable: true,
    }
    if w, ok := n.opts.Pool.(writable); ok { st.Writable = w.Writable() }
    n.mu.Lock()
    if n.last != nil {
        last := *n.last
        st.LastRun = &last
    }
    n.mu.Unlock()
    if n.opts.PeerServer != nil { st.PeerAddr = n.opts.PeerServer.Addr() }
    if n.opts.MgmtServer != nil { st.MgmtAddr = n.opts.MgmtServer.Addr() }
    if c := n.opts.Consensus; c != nil {
        st.Term = c.Term()
        if id, _, ok := c.Leader(); ok { st.Leader = id }
    }
    return st, nil
}

// Pool returns the host pool the node fills and serves.
func (n *Node) Pool() hostpool.Pool { return n.opts.Pool }

func (n *Node) statusJSON(ctx context.Context) ([]byte, error) {
    st, err := n.Status(ctx)
    if err != nil { return nil, err }
    return json.Marshal(st)
}

// Stop shuts every component down and waits for the seeding loop. A pass in
// flight is abandoned.
func (n *Node) Stop(ctx context.Context) error {
    n.mu.Lock()
    if n.closed { n.mu.Unlock(); return nil }
    n.closed = true
    started, cancel := n.started, n.cancel
    n.mu.Unlock()
    if !started { return errors.Join(n.release()...) }
    cancel()
    n.wg.Wait()

    var errs []error
    if n.opts.MgmtServer != nil && n.opts.MgmtServer != n.opts.PeerServer {
        if err := n.opts.MgmtServer.Stop(ctx); err != nil { errs = append(errs, err) }
    }
    if n.opts.PeerServer != nil {
        if err := n.opts.PeerServer.Stop(ctx); err != nil { errs = append(errs, err) }
    }
    if n.opts.Gossip != nil {
        _ = n.opts.Gossip.Leave()
        _ = n.opts.Gossip.Stop()
    }
    if n.opts.Consensus != nil {
        if err := n.opts.Consensus.Stop(); err != nil { errs = append(errs, err) }
    }
    errs = append(errs, n.release()...)
    logutil.Infof(n.opts.Logger, "node %s: stopped", n.opts.NodeID)
    return errors.Join(errs...)
}

// release closes the connector and the pool, which exist from New on.
func (n *Node) release() []error {
    var errs []error
    if c, ok := n.opts.Connector.(interface{ Close() }); ok { c.Close() }
    if c, ok := n.opts.Pool.(interface{ Close() error }); ok {
        if err := c.Close(); err != nil { errs = append(errs, err) }
    }
    return errs
}

var _ Facade = (*Node)(nil)
