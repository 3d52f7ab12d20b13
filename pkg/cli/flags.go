package cli

import (
    "time"

    "github.com/spf13/cobra"
    "github.com/spf13/pflag"

    "github.com/amirimatin/go-seeder/pkg/bootstrap"
)

// configFlags binds bootstrap.Config fields to flags. When --config is
// given, the file is the base and only flags set on the command line
// override it.
type configFlags struct {
    path string
    cfg  bootstrap.Config
    copy map[string]func(dst *bootstrap.Config)
}

func bind[T any](f *configFlags, name string, field func(*bootstrap.Config) *T, def T, usage string, reg func(p *T, name string, value T, usage string)) {
    reg(field(&f.cfg), name, def, usage)
    f.copy[name] = func(dst *bootstrap.Config) { *field(dst) = *field(&f.cfg) }
}

func newConfigFlags(cmd *cobra.Command, node bool) *configFlags {
    f := &configFlags{copy: make(map[string]func(*bootstrap.Config))}
    fs := cmd.Flags()
    fs.StringVar(&f.path, "config", "", "TOML config file; flags given on the command line override it")

    bind(f, "id", func(c *bootstrap.Config) *string { return &c.NodeID }, "", "node id", fs.StringVar)
    bind(f, "discovery", func(c *bootstrap.Config) *string { return &c.DiscoveryKind }, "static", "seed discovery: static|dns|file|preset", fs.StringVar)
    bind(f, "seeds", func(c *bootstrap.Config) *string { return &c.SeedsCSV }, "", "comma-separated seeds (host:port), discovery=static", fs.StringVar)
    bind(f, "preset", func(c *bootstrap.Config) *string { return &c.Preset }, "mainnet", "seed preset, discovery=preset", fs.StringVar)
    bind(f, "dns-names", func(c *bootstrap.Config) *string { return &c.DNSNamesCSV }, "", "comma-separated DNS names or SRV records, discovery=dns", fs.StringVar)
    bind(f, "dns-port", func(c *bootstrap.Config) *int { return &c.DNSPort }, 8333, "port used for A/AAAA answers", fs.IntVar)
    bind(f, "dns-server", func(c *bootstrap.Config) *string { return &c.DNSServer }, "", "query this nameserver (host:port) instead of the system resolver", fs.StringVar)
    bind(f, "disc-refresh", func(c *bootstrap.Config) *time.Duration { return &c.DiscRefresh }, 30*time.Second, "discovery refresh/cache duration", fs.DurationVar)
    bind(f, "file-path", func(c *bootstrap.Config) *string { return &c.FilePath }, "", "path or glob to a file with seeds, discovery=file", fs.StringVar)
    bind(f, "file-env", func(c *bootstrap.Config) *string { return &c.FileEnv }, "", "ENV var holding CSV seeds; overrides the file when set", fs.StringVar)
    bind(f, "pool", func(c *bootstrap.Config) *string { return &c.PoolKind }, "memory", "host pool: memory|bolt|raft", fs.StringVar)
    bind(f, "pool-capacity", func(c *bootstrap.Config) *int { return &c.PoolCapacity }, 1000, "maximum addresses kept in memory", fs.IntVar)
    bind(f, "data", func(c *bootstrap.Config) *string { return &c.DataDir }, "", "data dir for bolt/raft pools", fs.StringVar)
    bind(f, "seed-timeout", func(c *bootstrap.Config) *time.Duration { return &c.SeedTimeout }, time.Minute, "bound for one seed from connect to addr reply", fs.DurationVar)
    bind(f, "dial-timeout", func(c *bootstrap.Config) *time.Duration { return &c.DialTimeout }, 3*time.Second, "dial timeout per seed", fs.DurationVar)
    bind(f, "handshake-timeout", func(c *bootstrap.Config) *time.Duration { return &c.HandshakeTimeout }, 10*time.Second, "version handshake timeout", fs.DurationVar)
    bind(f, "tls-enable", func(c *bootstrap.Config) *bool { return &c.TLSEnable }, false, "enable mTLS for peer and management transports", fs.BoolVar)
    bind(f, "tls-ca", func(c *bootstrap.Config) *string { return &c.TLSCA }, "", "path to CA cert (PEM)", fs.StringVar)
    bind(f, "tls-cert", func(c *bootstrap.Config) *string { return &c.TLSCert }, "", "path to node certificate (PEM)", fs.StringVar)
    bind(f, "tls-key", func(c *bootstrap.Config) *string { return &c.TLSKey }, "", "path to node private key (PEM)", fs.StringVar)
    bind(f, "tls-server-name", func(c *bootstrap.Config) *string { return &c.TLSServerName }, "", "expected server name (for TLS validation)", fs.StringVar)
    bind(f, "tls-skip-verify", func(c *bootstrap.Config) *bool { return &c.TLSSkipVerify }, false, "skip server cert verification (DEV ONLY)", fs.BoolVar)
    if !node { return f }

    bind(f, "peer-addr", func(c *bootstrap.Config) *string { return &c.PeerAddr }, ":8333", "peer service bind addr (gRPC); empty disables serving", fs.StringVar)
    bind(f, "peer-adv", func(c *bootstrap.Config) *string { return &c.PeerAdv }, "", "peer address advertised over gossip", fs.StringVar)
    bind(f, "mgmt-addr", func(c *bootstrap.Config) *string { return &c.MgmtAddr }, ":17946", "management address (status/seed/metrics)", fs.StringVar)
    bind(f, "mgmt-proto", func(c *bootstrap.Config) *string { return &c.MgmtProto }, "http", "management protocol: http|grpc", fs.StringVar)
    bind(f, "gossip-bind", func(c *bootstrap.Config) *string { return &c.GossipBind }, "", "memberlist bind addr; enables gossip seed discovery", fs.StringVar)
    bind(f, "gossip-adv", func(c *bootstrap.Config) *string { return &c.GossipAdv }, "", "memberlist advertise addr", fs.StringVar)
    bind(f, "gossip-join", func(c *bootstrap.Config) *string { return &c.GossipJoinCSV }, "", "comma-separated memberlist addrs to join", fs.StringVar)
    bind(f, "raft-addr", func(c *bootstrap.Config) *string { return &c.RaftAddr }, "", "raft bind addr (tcp), pool=raft", fs.StringVar)
    bind(f, "bootstrap", func(c *bootstrap.Config) *bool { return &c.Bootstrap }, false, "bootstrap a single-node raft cluster, pool=raft", fs.BoolVar)
    bind(f, "seed-on-start", func(c *bootstrap.Config) *bool { return &c.SeedOnStart }, true, "run a seeding pass on start", fs.BoolVar)
    bind(f, "seed-interval", func(c *bootstrap.Config) *time.Duration { return &c.SeedInterval }, 5*time.Minute, "refill interval while below --min-hosts (0 disables)", fs.DurationVar)
    bind(f, "min-hosts", func(c *bootstrap.Config) *int { return &c.MinHosts }, 100, "pool size under which the node keeps seeding", fs.IntVar)
    bind(f, "max-addresses", func(c *bootstrap.Config) *int { return &c.MaxAddresses }, 1000, "maximum addresses returned per getaddr", fs.IntVar)
    return f
}

// resolve returns the effective config.
func (f *configFlags) resolve(cmd *cobra.Command) (bootstrap.Config, error) {
    if f.path == "" { return f.cfg, nil }
    cfg, err := bootstrap.LoadFile(f.path)
    if err != nil { return bootstrap.Config{}, err }
    cmd.Flags().Visit(func(fl *pflag.Flag) {
        if c := f.copy[fl.Name]; c != nil { c(&cfg) }
    })
    return cfg, nil
}
