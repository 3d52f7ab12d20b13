package raftcons

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strconv"
    "sync"
    "time"

    "github.com/hashicorp/raft"
    raftboltdb "github.com/hashicorp/raft-boltdb"

    c "github.com/amirimatin/go-seeder/pkg/consensus"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/observability/metrics"
)

var (
    ErrNoNodeID   = errors.New("raftcons: empty NodeID")
    ErrNotStarted = errors.New("raftcons: not started")
)

// Node implements consensus.Consensus using HashiCorp Raft. Committed
// commands are applied to Options.State on every replica.
type Node struct {
    opts Options
    log  *log.Logger
    st   State
    lch  chan c.LeaderInfo

    mu    sync.RWMutex
    r     *raft.Raft
    addr  raft.ServerAddress
    trans raft.Transport
    lb    raft.LoopbackTransport
    bolt  *raftboltdb.BoltStore
}

func New(opts Options) (*Node, error) {
    if opts.NodeID == "" { return nil, ErrNoNodeID }
    if opts.Logger == nil { opts.Logger = log.Default() }
    if opts.ApplyTimeout <= 0 { opts.ApplyTimeout = 5 * time.Second }
    st := opts.State
    if st == nil { st = hostpool.NewMemory(0) }
    return &Node{opts: opts, log: opts.Logger, st: st, lch: make(chan c.LeaderInfo, 16)}, nil
}

func (n *Node) Start(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.r != nil { return nil }

    cfg := raft.DefaultConfig()
    cfg.LocalID = raft.ServerID(n.opts.NodeID)
    cfg.LogOutput = n.log.Writer()
    if n.opts.HeartbeatTimeout > 0 {
        cfg.HeartbeatTimeout = n.opts.HeartbeatTimeout
        // lease must not exceed heartbeat
        if cfg.LeaderLeaseTimeout > cfg.HeartbeatTimeout {
            cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout / 2
            if cfg.LeaderLeaseTimeout == 0 { cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout }
        }
    }
    if n.opts.ElectionTimeout > 0 { cfg.ElectionTimeout = n.opts.ElectionTimeout }
    if n.opts.CommitTimeout > 0 { cfg.CommitTimeout = n.opts.CommitTimeout }

    var (
        logs   raft.LogStore
        stable raft.StableStore
        snaps  raft.SnapshotStore
        addr   raft.ServerAddress
        trans  raft.Transport
    )
    if n.opts.DataDir != "" {
        if n.opts.SnapshotsRetained == 0 { n.opts.SnapshotsRetained = 2 }
        if err := os.MkdirAll(n.opts.DataDir, 0o755); err != nil { return err }
        bstore, err := raftboltdb.NewBoltStore(filepath.Join(n.opts.DataDir, "raft.db"))
        if err != nil { return err }
        n.bolt = bstore
        logs, stable = bstore, bstore
        snaps, err = raft.NewFileSnapshotStore(n.opts.DataDir, n.opts.SnapshotsRetained, n.log.Writer())
        if err != nil { return err }
    } else {
        logs = raft.NewInmemStore()
        stable = raft.NewInmemStore()
        snaps = raft.NewInmemSnapshotStore()
    }

    if n.opts.BindAddr != "" {
        nt, err := raft.NewTCPTransport(n.opts.BindAddr, nil, 3, time.Second, n.log.Writer())
        if err != nil { return err }
        trans, addr = nt, nt.LocalAddr()
    } else {
        addr, trans = raft.NewInmemTransport(raft.ServerAddress(n.opts.NodeID))
    }

    r, err := raft.NewRaft(cfg, newPoolFSM(n.st), logs, stable, snaps, trans)
    if err != nil { return err }
    n.r, n.addr, n.trans = r, addr, trans
    if lb, ok := trans.(raft.LoopbackTransport); ok { n.lb = lb }

    obsCh := make(chan raft.Observation, 32)
    r.RegisterObserver(raft.NewObserver(obsCh, false, func(o *raft.Observation) bool {
        _, ok := o.Data.(raft.LeaderObservation)
        return ok
    }))
    go func() {
        for range obsCh { n.publishLeader() }
    }()
    go func() {
        time.Sleep(50 * time.Millisecond)
        n.publishLeader()
    }()

    if n.opts.Bootstrap {
        servers := raft.Configuration{Servers: []raft.Server{{ID: cfg.LocalID, Address: addr}}}
        if err := r.BootstrapCluster(servers).Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) { return err }
    }

    go func() {
        <-ctx.Done()
        _ = n.Stop()
    }()
    return nil
}

func (n *Node) current() *raft.Raft {
    n.mu.RLock()
    defer n.mu.RUnlock()
    return n.r
}

// Apply replicates cmd and waits for the local FSM to apply it. Errors
// returned by the FSM are returned as is.
func (n *Node) Apply(cmd c.Command, timeout time.Duration) error {
    r := n.current()
    if r == nil { return ErrNotStarted }
    if r.State() != raft.Leader {
        metrics.RaftApplies.WithLabelValues("not_leader").Inc()
        return c.ErrNotLeader
    }
    data, err := json.Marshal(cmd)
    if err != nil { return err }
    if timeout <= 0 { timeout = n.opts.ApplyTimeout }
    af := r.Apply(data, timeout)
    if err := af.Error(); err != nil {
        metrics.RaftApplies.WithLabelValues("error").Inc()
        if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) { return fmt.Errorf("%w: %v", c.ErrNotLeader, err) }
        return err
    }
    if e, ok := af.Response().(error); ok && e != nil {
        metrics.RaftApplies.WithLabelValues("rejected").Inc()
        return e
    }
    metrics.RaftApplies.WithLabelValues("ok").Inc()
    return nil
}

func (n *Node) IsLeader() bool {
    r := n.current()
    return r != nil && r.State() == raft.Leader
}

func (n *Node) Leader() (id string, addr string, ok bool) {
    r := n.current()
    if r == nil { return "", "", false }
    a, sid := r.LeaderWithID()
    if sid == "" { return "", "", false }
    return string(sid), string(a), true
}

func (n *Node) Term() uint64 {
    r := n.current()
    if r == nil { return 0 }
    if v := r.Stats()["current_term"]; v != "" {
        if u, err := strconv.ParseUint(v, 10, 64); err == nil { return u }
    }
    return 0
}

// Addr returns the raft transport address once started.
func (n *Node) Addr() string {
    n.mu.RLock()
    defer n.mu.RUnlock()
    return string(n.addr)
}

// State returns the local replica. Reads are eventually consistent on
// followers.
func (n *Node) State() State { return n.st }

func (n *Node) Stop() error {
    n.mu.Lock()
    r, bolt := n.r, n.bolt
    n.r, n.bolt = nil, nil
    n.mu.Unlock()
    if r == nil { return nil }
    err := r.Shutdown().Error()
    if bolt != nil { _ = bolt.Close() }
    metrics.IsLeader.Set(0)
    return err
}

var _ c.Consensus = (*Node)(nil)
var _ c.LeaderNotifier = (*Node)(nil)
var _ c.Reconfigurer = (*Node)(nil)

func (n *Node) LeaderCh() <-chan c.LeaderInfo { return n.lch }

func (n *Node) publishLeader() {
    if n.IsLeader() { metrics.IsLeader.Set(1) } else { metrics.IsLeader.Set(0) }
    id, addr, ok := n.Leader()
    if !ok { return }
    select {
    case n.lch <- c.LeaderInfo{ID: id, Addr: addr, Term: n.Term()}:
    default:
    }
}

// AddVoter adds a voting server if not already present with the same
// address.
func (n *Node) AddVoter(id, addr string, timeout time.Duration) error {
    r := n.current()
    if r == nil { return ErrNotStarted }
    cfg := r.GetConfiguration()
    if err := cfg.Error(); err == nil {
        for _, srv := range cfg.Configuration().Servers {
            if string(srv.ID) != id { continue }
            if string(srv.Address) == addr { return nil }
            if err := r.RemoveServer(srv.ID, 0, timeout).Error(); err != nil { return err }
            break
        }
    }
    return r.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, timeout).Error()
}

func (n *Node) RemoveServer(id string, timeout time.Duration) error {
    r := n.current()
    if r == nil { return ErrNotStarted }
    return r.RemoveServer(raft.ServerID(id), 0, timeout).Error()
}
