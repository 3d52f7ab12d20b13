package node

import (
    "errors"
    "log"
    "time"

    "github.com/amirimatin/go-seeder/pkg/consensus"
    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/discovery/gossip"
    "github.com/amirimatin/go-seeder/pkg/handshake"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/transport"
)

// Options carries the components assembled by bootstrap (or by hand when the
// node is embedded as a library).
type Options struct {
    // NodeID names this node in logs and status.
    NodeID string
    // Discovery provides the seed endpoints for each run.
    Discovery discovery.Discovery
    // Connector opens channels to seeds.
    Connector transport.Connector
    // Negotiator performs the version handshake on outbound channels.
    Negotiator handshake.Negotiator
    // Pool receives harvested addresses.
    Pool hostpool.Pool
    Logger *log.Logger

    // PeerServer answers version/getaddr so this node is itself a seed.
    // Optional.
    PeerServer transport.MgmtServer
    // MgmtServer exposes /status and /seed. Optional; may be the same
    // server as PeerServer.
    MgmtServer transport.MgmtServer
    // Consensus is started and stopped with the node when set.
    Consensus consensus.Consensus
    // Gossip is started and stopped with the node when set; members joining
    // the ring trigger a seeding pass. Include it in Discovery to seed from
    // the ring.
    Gossip *gossip.Discovery

    // SeedTimeout bounds each seed (zero means the seeder default).
    SeedTimeout time.Duration
    // SeedOnStart runs a pass right after Start.
    SeedOnStart bool
    // SeedInterval re-runs seeding periodically while the pool holds fewer
    // than MinHosts addresses. Zero disables the loop.
    SeedInterval time.Duration
    MinHosts     int
}

var (
    ErrNoNodeID    = errors.New("node: empty NodeID")
    ErrNoDiscovery = errors.New("node: nil Discovery")
    ErrNoLogger    = errors.New("node: nil Logger")
)

// Validate checks the node-level fields; the seeding components are checked
// by seeder.Options.Validate in New.
func (o Options) Validate() error {
    if o.NodeID == "" { return ErrNoNodeID }
    if o.Discovery == nil { return ErrNoDiscovery }
    if o.Logger == nil { return ErrNoLogger }
    if o.MinHosts < 0 { return errors.New("node: negative MinHosts") }
    return nil
}
