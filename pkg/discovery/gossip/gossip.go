// Package gossip discovers seeds through a memberlist cluster. Every node
// joins the gossip ring and advertises the address of its peer (seed)
// service in node metadata; Seeds returns the peer addresses of the other
// live members.
package gossip

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "net"
    "strconv"
    "sync"
    "time"

    "github.com/hashicorp/memberlist"

    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
)

// MetaPeer is the metadata key carrying a member's peer address.
const MetaPeer = "peer"

var (
    ErrNotStarted = errors.New("gossip: not started")
    ErrNoNodeID   = errors.New("gossip: empty NodeID")
    ErrNoBind     = errors.New("gossip: empty Bind address")
)

// Member describes a ring member as observed by memberlist.
type Member struct {
    ID   string
    Addr string
    Meta map[string]string
}

// Peer returns the advertised peer endpoint, if any.
func (m Member) Peer() (endpoint.Endpoint, bool) {
    p, ok := m.Meta[MetaPeer]
    if !ok { return endpoint.Endpoint{}, false }
    ep, err := endpoint.Parse(p)
    return ep, err == nil
}

type EventType string

const (
    EventJoin  EventType = "join"
    EventLeave EventType = "leave"
)

// Event is a membership change notification.
type Event struct {
    Type   EventType
    Member Member
    At     time.Time
}

// Options configures the gossip discovery.
type Options struct {
    // NodeID is the unique node identifier.
    NodeID string
    // Bind is the gossip bind address in host:port form (e.g. ":7946").
    Bind string
    // Advertise is the gossip address peers use to reach this node. If empty,
    // memberlist derives it from Bind.
    Advertise string
    // Peer is the local peer service address gossiped to other members.
    // Leave empty for a node that only consumes seeds.
    Peer string
    // Join lists gossip addresses contacted on Start.
    Join []string

    Logger *log.Logger

    // Tuning parameters (optional). Zero means memberlist defaults.
    ProbeInterval time.Duration
    ProbeTimeout  time.Duration
    SuspicionMult int
}

// Discovery is a memberlist-backed discovery.Discovery.
type Discovery struct {
    mu     sync.RWMutex
    opts   Options
    ml     *memberlist.Memberlist
    closed bool

    evMu     sync.Mutex
    evts     chan Event
    evClosed bool
}

// New validates opts; call Start to join the ring.
func New(opts Options) (*Discovery, error) {
    if opts.NodeID == "" { return nil, ErrNoNodeID }
    if opts.Bind == "" { return nil, ErrNoBind }
    if opts.Peer != "" {
        if _, err := endpoint.Parse(opts.Peer); err != nil { return nil, fmt.Errorf("gossip: peer address: %w", err) }
    }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &Discovery{opts: opts, evts: make(chan Event, 64)}, nil
}

// Start creates the memberlist instance and joins opts.Join (failures to
// join are logged, not fatal: other nodes may join us later). The ring is
// left when ctx is canceled.
func (d *Discovery) Start(ctx context.Context) error {
    d.mu.Lock()
    if d.ml != nil || d.closed { d.mu.Unlock(); return nil }

    cfg := memberlist.DefaultLANConfig()
    cfg.Name = d.opts.NodeID
    host, port, err := splitHostPort(d.opts.Bind)
    if err != nil { d.mu.Unlock(); return err }
    cfg.BindAddr, cfg.BindPort = host, port
    if d.opts.Advertise != "" {
        ahost, aport, err := splitHostPort(d.opts.Advertise)
        if err != nil { d.mu.Unlock(); return err }
        cfg.AdvertiseAddr, cfg.AdvertisePort = ahost, aport
    }
    if d.opts.ProbeInterval > 0 { cfg.ProbeInterval = d.opts.ProbeInterval }
    if d.opts.ProbeTimeout > 0 { cfg.ProbeTimeout = d.opts.ProbeTimeout }
    if d.opts.SuspicionMult > 0 { cfg.SuspicionMult = d.opts.SuspicionMult }
    cfg.LogOutput = d.opts.Logger.Writer()

    meta := map[string]string{}
    if d.opts.Peer != "" { meta[MetaPeer] = d.opts.Peer }
    metaBytes, _ := json.Marshal(meta)
    cfg.Delegate = &metaDelegate{meta: metaBytes}
    cfg.Events = &eventDelegate{emit: d.emit}

    ml, err := memberlist.Create(cfg)
    if err != nil { d.mu.Unlock(); return err }
    d.ml = ml
    d.mu.Unlock()

    if len(d.opts.Join) > 0 {
        if n, err := ml.Join(d.opts.Join); err != nil {
            logutil.Warnf(d.opts.Logger, "gossip: join %v: contacted %d: %v", d.opts.Join, n, err)
        }
    }
    go func() {
        <-ctx.Done()
        _ = d.Stop()
    }()
    return nil
}

// Join contacts additional gossip addresses.
func (d *Discovery) Join(addrs []string) error {
    d.mu.RLock()
    ml := d.ml
    d.mu.RUnlock()
    if ml == nil { return ErrNotStarted }
    if len(addrs) == 0 { return nil }
    _, err := ml.Join(addrs)
    return err
}

// LocalAddr returns the gossip address of this node.
func (d *Discovery) LocalAddr() string {
    d.mu.RLock()
    defer d.mu.RUnlock()
    if d.ml == nil { return "" }
    n := d.ml.LocalNode()
    return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// Members returns all live members, the local node included.
func (d *Discovery) Members() []Member {
    d.mu.RLock()
    defer d.mu.RUnlock()
    if d.ml == nil { return nil }
    nodes := d.ml.Members()
    out := make([]Member, 0, len(nodes))
    for _, n := range nodes { out = append(out, toMember(n)) }
    return out
}

// Seeds implements discovery.Discovery: peer endpoints of the other members.
func (d *Discovery) Seeds() []endpoint.Endpoint {
    var out []endpoint.Endpoint
    for _, m := range d.Members() {
        if m.ID == d.opts.NodeID { continue }
        if ep, ok := m.Peer(); ok { out = append(out, ep) }
    }
    return out
}

// Events delivers join/leave notifications; the channel is closed by Stop.
// Events are dropped when nobody drains the channel.
func (d *Discovery) Events() <-chan Event { return d.evts }

// HealthScore exposes memberlist's awareness score, -1 when not started.
func (d *Discovery) HealthScore() int {
    d.mu.RLock()
    defer d.mu.RUnlock()
    if d.ml == nil { return -1 }
    return d.ml.GetHealthScore()
}

// Leave broadcasts a graceful leave (best effort).
func (d *Discovery) Leave() error {
    d.mu.RLock()
    ml := d.ml
    d.mu.RUnlock()
    if ml == nil { return nil }
    return ml.Leave(time.Second)
}

// Stop shuts the memberlist instance down and closes Events.
func (d *Discovery) Stop() error {
    d.mu.Lock()
    if d.closed { d.mu.Unlock(); return nil }
    d.closed = true
    ml := d.ml
    d.ml = nil
    d.mu.Unlock()
    if ml != nil { _ = ml.Shutdown() }
    d.evMu.Lock()
    d.evClosed = true
    close(d.evts)
    d.evMu.Unlock()
    return nil
}

var _ discovery.Discovery = (*Discovery)(nil)

func (d *Discovery) emit(e Event) {
    d.evMu.Lock()
    defer d.evMu.Unlock()
    if d.evClosed { return }
    select {
    case d.evts <- e:
    default:
        logutil.Debugf(d.opts.Logger, "gossip: dropping %s event for %s", e.Type, e.Member.ID)
    }
}

func toMember(n *memberlist.Node) Member {
    meta := map[string]string{}
    if len(n.Meta) > 0 { _ = json.Unmarshal(n.Meta, &meta) }
    return Member{ID: n.Name, Addr: net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port))), Meta: meta}
}

func splitHostPort(s string) (string, int, error) {
    host, p, err := net.SplitHostPort(s)
    if err != nil { return "", 0, fmt.Errorf("gossip: invalid address %q: %w", s, err) }
    port, err := strconv.Atoi(p)
    if err != nil || port < 0 || port > 65535 { return "", 0, fmt.Errorf("gossip: invalid port %q", p) }
    return host, port, nil
}

type eventDelegate struct{ emit func(Event) }

func (e *eventDelegate) NotifyJoin(n *memberlist.Node) {
    e.emit(Event{Type: EventJoin, Member: toMember(n), At: time.Now()})
}

// NotifyLeave covers both graceful leaves and failures.
func (e *eventDelegate) NotifyLeave(n *memberlist.Node) {
    e.emit(Event{Type: EventLeave, Member: toMember(n), At: time.Now()})
}

// Metadata updates are treated as joins so a changed peer address is seen.
func (e *eventDelegate) NotifyUpdate(n *memberlist.Node) {
    e.emit(Event{Type: EventJoin, Member: toMember(n), At: time.Now()})
}

// metaDelegate publishes the node metadata; the remaining hooks are unused.
type metaDelegate struct{ meta []byte }

func (m *metaDelegate) NodeMeta(limit int) []byte {
    if len(m.meta) <= limit { return m.meta }
    return nil
}
func (m *metaDelegate) NotifyMsg([]byte)                {}
func (m *metaDelegate) GetBroadcasts(int, int) [][]byte { return nil }
func (m *metaDelegate) LocalState(bool) []byte          { return nil }
func (m *metaDelegate) MergeRemoteState([]byte, bool)   {}
