package bootstrap

import (
    "context"
    "crypto/tls"
    "errors"
    "fmt"
    "log"
    "path/filepath"
    "time"

    "github.com/amirimatin/go-seeder/pkg/consensus"
    raftcons "github.com/amirimatin/go-seeder/pkg/consensus/raft"
    "github.com/amirimatin/go-seeder/pkg/discovery"
    dDNS "github.com/amirimatin/go-seeder/pkg/discovery/dns"
    dFile "github.com/amirimatin/go-seeder/pkg/discovery/file"
    "github.com/amirimatin/go-seeder/pkg/discovery/gossip"
    "github.com/amirimatin/go-seeder/pkg/discovery/preset"
    dStatic "github.com/amirimatin/go-seeder/pkg/discovery/static"
    "github.com/amirimatin/go-seeder/pkg/handshake"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    boltpool "github.com/amirimatin/go-seeder/pkg/hostpool/bolt"
    "github.com/amirimatin/go-seeder/pkg/hostpool/replicated"
    "github.com/amirimatin/go-seeder/pkg/node"
    "github.com/amirimatin/go-seeder/pkg/responder"
    tlsx "github.com/amirimatin/go-seeder/pkg/security/tlsconfig"
    "github.com/amirimatin/go-seeder/pkg/transport"
    tgrpc "github.com/amirimatin/go-seeder/pkg/transport/grpc"
    "github.com/amirimatin/go-seeder/pkg/transport/httpjson"
)

var ErrUnknownKind = errors.New("bootstrap: unknown kind")

// Config defines high-level inputs to assemble a seeder node with sensible
// defaults. The CLI fills it from flags and an optional TOML file.
type Config struct {
    NodeID string `toml:"node_id"`

    // Peer service: answers version/getaddr so this node seeds others.
    PeerAddr string `toml:"peer_addr"` // gRPC bind host:port; empty disables it
    PeerAdv  string `toml:"peer_advertise"`

    // Management API (status/seed/metrics/healthz)
    MgmtAddr  string `toml:"mgmt_addr"`
    MgmtProto string `toml:"mgmt_proto"` // "http" (default) or "grpc"

    // Discovery
    DiscoveryKind string        `toml:"discovery"` // "static" (default), "dns", "file" or "preset"
    SeedsCSV      string        `toml:"seeds"`
    Preset        string        `toml:"preset"`
    DNSNamesCSV   string        `toml:"dns_names"`
    DNSPort       int           `toml:"dns_port"`
    DNSServer     string        `toml:"dns_server"`
    DiscRefresh   time.Duration `toml:"discovery_refresh"`
    FilePath      string        `toml:"seeds_file"`
    FileEnv       string        `toml:"seeds_env"`

    // Gossip ring (optional); members advertising a peer address become
    // seeds in addition to the discovery above.
    GossipBind    string `toml:"gossip_bind"`
    GossipAdv     string `toml:"gossip_advertise"`
    GossipJoinCSV string `toml:"gossip_join"`

    // Host pool
    PoolKind     string `toml:"pool"` // "memory" (default), "bolt" or "raft"
    PoolCapacity int    `toml:"pool_capacity"`
    DataDir      string `toml:"data_dir"`
    RaftAddr     string `toml:"raft_addr"`
    Bootstrap    bool   `toml:"bootstrap"`

    // Seeding
    SeedTimeout      time.Duration `toml:"seed_timeout"`
    DialTimeout      time.Duration `toml:"dial_timeout"`
    HandshakeTimeout time.Duration `toml:"handshake_timeout"`
    SeedOnStart      bool          `toml:"seed_on_start"`
    SeedInterval     time.Duration `toml:"seed_interval"`
    MinHosts         int           `toml:"min_hosts"`
    MaxAddresses     int           `toml:"max_addresses"`

    // TLS (optional) for the peer service and the management API
    TLSEnable     bool   `toml:"tls"`
    TLSCA         string `toml:"tls_ca"`
    TLSCert       string `toml:"tls_cert"`
    TLSKey        string `toml:"tls_key"`
    TLSServerName string `toml:"tls_server_name"`
    TLSSkipVerify bool   `toml:"tls_skip_verify"`

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger `toml:"-"`
}

// Discovery builds the configured seed source (without gossip).
func (cfg Config) Discovery() (discovery.Discovery, error) {
    switch cfg.DiscoveryKind {
    case "", "static":
        return dStatic.New(discovery.Endpoints(dStatic.Parse(cfg.SeedsCSV), cfg.Logger)...), nil
    case "dns":
        return dDNS.New(dDNS.Options{Names: dStatic.Parse(cfg.DNSNamesCSV), Port: cfg.DNSPort, Server: cfg.DNSServer, Refresh: cfg.DiscRefresh, Logger: cfg.Logger}), nil
    case "file":
        return dFile.New(dFile.Options{Path: cfg.FilePath, Env: cfg.FileEnv, Refresh: cfg.DiscRefresh, Logger: cfg.Logger}), nil
    case "preset":
        return preset.New(cfg.Preset)
    default:
        return nil, fmt.Errorf("%w: discovery %q", ErrUnknownKind, cfg.DiscoveryKind)
    }
}

// TLS returns the server and client configs, both nil when TLS is off.
func (cfg Config) TLS() (srv, cli *tls.Config, err error) {
    if !cfg.TLSEnable { return nil, nil, nil }
    topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
    if srv, err = topts.ServerHotReload(); err != nil { return nil, nil, err }
    if cli, err = topts.ClientHotReload(); err != nil { return nil, nil, err }
    return srv, cli, nil
}

// pool builds the host pool and, for "raft", the consensus engine.
func (cfg Config) pool() (hostpool.Pool, hostpool.Source, consensus.Consensus, error) {
    switch cfg.PoolKind {
    case "", "memory":
        p := hostpool.NewMemory(cfg.PoolCapacity)
        return p, p, nil, nil
    case "bolt":
        if cfg.DataDir == "" { return nil, nil, nil, errors.New("bootstrap: bolt pool requires data_dir") }
        p, err := boltpool.Open(boltpool.Options{Path: filepath.Join(cfg.DataDir, "hosts.db"), Logger: cfg.Logger})
        if err != nil { return nil, nil, nil, err }
        return p, p, nil, nil
    case "raft":
        local := hostpool.NewMemory(cfg.PoolCapacity)
        ropts := raftcons.Options{NodeID: cfg.NodeID, Logger: cfg.Logger, Bootstrap: cfg.Bootstrap, State: local, BindAddr: cfg.RaftAddr}
        if cfg.DataDir != "" { ropts.DataDir = filepath.Join(cfg.DataDir, "raft") }
        eng, err := raftcons.New(ropts)
        if err != nil { return nil, nil, nil, err }
        p := replicated.New(eng, local, 0)
        return p, p, eng, nil
    default:
        return nil, nil, nil, fmt.Errorf("%w: pool %q", ErrUnknownKind, cfg.PoolKind)
    }
}

// Build assembles a node.Node from Config without starting it.
func Build(cfg Config) (*node.Node, error) {
    if cfg.Logger == nil { cfg.Logger = log.Default() }
    if cfg.NodeID == "" { return nil, node.ErrNoNodeID }

    disc, err := cfg.Discovery()
    if err != nil { return nil, err }

    var gsp *gossip.Discovery
    if cfg.GossipBind != "" {
        peer := cfg.PeerAdv
        if peer == "" { peer = cfg.PeerAddr }
        gsp, err = gossip.New(gossip.Options{NodeID: cfg.NodeID, Bind: cfg.GossipBind, Advertise: cfg.GossipAdv, Peer: peer, Join: dStatic.Parse(cfg.GossipJoinCSV), Logger: cfg.Logger})
        if err != nil { return nil, err }
        disc = discovery.Merge(disc, gsp)
    }

    srvTLS, cliTLS, err := cfg.TLS()
    if err != nil { return nil, err }

    pool, source, cons, err := cfg.pool()
    if err != nil { return nil, err }

    hs := handshake.New(handshake.Options{Timeout: cfg.HandshakeTimeout, Logger: cfg.Logger})
    conn := tgrpc.NewConnector(cfg.DialTimeout)
    if cliTLS != nil { conn.UseTLS(cliTLS) }

    var peer *tgrpc.Server
    if cfg.PeerAddr != "" {
        r := responder.New(responder.Options{Acceptor: hs, Source: source, MaxAddresses: cfg.MaxAddresses, Logger: cfg.Logger})
        peer = tgrpc.NewServer(cfg.PeerAddr, r)
        if srvTLS != nil { peer.UseTLS(srvTLS) }
    }

    var mgmt transport.MgmtServer
    if cfg.MgmtAddr != "" {
        switch cfg.MgmtProto {
        case "", "http":
            s := httpjson.NewServer(cfg.MgmtAddr, cfg.Logger)
            if srvTLS != nil { s.UseTLS(srvTLS) }
            mgmt = s
        case "grpc":
            if peer != nil && cfg.MgmtAddr == cfg.PeerAddr {
                mgmt = peer
            } else {
                s := tgrpc.NewServer(cfg.MgmtAddr, nil)
                if srvTLS != nil { s.UseTLS(srvTLS) }
                mgmt = s
            }
        default:
            return nil, fmt.Errorf("%w: mgmt proto %q", ErrUnknownKind, cfg.MgmtProto)
        }
    }

    opts := node.Options{
        NodeID:       cfg.NodeID,
        Discovery:    disc,
        Connector:    conn,
        Negotiator:   hs,
        Pool:         pool,
        Logger:       cfg.Logger,
        MgmtServer:   mgmt,
        Consensus:    cons,
        Gossip:       gsp,
        SeedTimeout:  cfg.SeedTimeout,
        SeedOnStart:  cfg.SeedOnStart,
        SeedInterval: cfg.SeedInterval,
        MinHosts:     cfg.MinHosts,
    }
    if peer != nil { opts.PeerServer = peer }
    return node.New(opts)
}

// Run builds and starts the node. The caller stops it with Stop.
func Run(ctx context.Context, cfg Config) (*node.Node, error) {
    n, err := Build(cfg)
    if err != nil { return nil, err }
    if err := n.Start(ctx); err != nil { return nil, err }
    return n, nil
}

// MgmtClient returns a management client for proto ("http" or "grpc").
func MgmtClient(proto string, timeout time.Duration, tlsCfg *tls.Config) (transport.MgmtClient, error) {
    switch proto {
    case "", "http":
        c := httpjson.NewClient(timeout)
        if tlsCfg != nil { c.UseTLS(tlsCfg) }
        return c, nil
    case "grpc":
        c := tgrpc.NewMgmtClient(timeout)
        if tlsCfg != nil { c.UseTLS(tlsCfg) }
        return c, nil
    default:
        return nil, fmt.Errorf("%w: mgmt proto %q", ErrUnknownKind, proto)
    }
}
