package bootstrap

import (
    "context"
    "errors"
    "io"
    "log"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

var quiet = log.New(io.Discard, "", 0)

func TestLoadFile(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "seeder.toml")
    body := `
node_id = "n1"
peer_addr = "127.0.0.1:0"
discovery = "preset"
preset = "testnet"
pool = "bolt"
data_dir = "/var/lib/seeder"
seed_timeout = "45s"
seed_interval = "10m"
min_hosts = 50
`
    if err := os.WriteFile(path, []byte(body), 0o600); err != nil { t.Fatal(err) }
    cfg, err := LoadFile(path)
    if err != nil { t.Fatalf("load: %v", err) }
    if cfg.NodeID != "n1" || cfg.Preset != "testnet" || cfg.PoolKind != "bolt" || cfg.MinHosts != 50 { t.Fatalf("unexpected cfg %+v", cfg) }
    if cfg.SeedTimeout != 45*time.Second || cfg.SeedInterval != 10*time.Minute { t.Fatalf("durations %v %v", cfg.SeedTimeout, cfg.SeedInterval) }

    bad := filepath.Join(dir, "bad.toml")
    if err := os.WriteFile(bad, []byte("node_idd = \"x\"\n"), 0o600); err != nil { t.Fatal(err) }
    if _, err := LoadFile(bad); err == nil { t.Fatalf("expected unknown key error") }
}

func TestConfig_Discovery(t *testing.T) {
    d, err := Config{SeedsCSV: "b:2, a:1, junk", Logger: quiet}.Discovery()
    if err != nil { t.Fatalf("static: %v", err) }
    got := d.Seeds()
    if len(got) != 2 || got[0] != endpoint.MustNew("a", 1) { t.Fatalf("seeds %v", got) }

    d, err = Config{DiscoveryKind: "preset", Preset: "mainnet"}.Discovery()
    if err != nil || len(d.Seeds()) == 0 { t.Fatalf("preset: %v", err) }

    if _, err := (Config{DiscoveryKind: "preset", Preset: "nope"}).Discovery(); err == nil { t.Fatalf("expected unknown preset") }
    if _, err := (Config{DiscoveryKind: "carrier-pigeon"}).Discovery(); !errors.Is(err, ErrUnknownKind) { t.Fatalf("got %v", err) }
}

func TestBuild_Rejects(t *testing.T) {
    if _, err := Build(Config{Logger: quiet}); err == nil { t.Fatalf("expected missing node id") }
    if _, err := Build(Config{NodeID: "n", PoolKind: "tape", Logger: quiet}); !errors.Is(err, ErrUnknownKind) { t.Fatalf("got %v", err) }
    if _, err := Build(Config{NodeID: "n", PoolKind: "bolt", Logger: quiet}); err == nil { t.Fatalf("expected data_dir error") }
    if _, err := Build(Config{NodeID: "n", MgmtAddr: ":0", MgmtProto: "smtp", Logger: quiet}); !errors.Is(err, ErrUnknownKind) { t.Fatalf("got %v", err) }
    if _, err := Build(Config{NodeID: "n", TLSEnable: true, Logger: quiet}); err == nil { t.Fatalf("expected TLS key pair error") }
    if _, err := MgmtClient("smtp", time.Second, nil); !errors.Is(err, ErrUnknownKind) { t.Fatalf("got %v", err) }
}

// Two nodes over gRPC: B seeds from A's peer service.
func TestRun_SeedsFromPeerNode(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
    defer cancel()

    a, err := Run(ctx, Config{NodeID: "a", PeerAddr: "127.0.0.1:0", Logger: quiet})
    if err != nil { t.Fatalf("run a: %v", err) }
    defer a.Stop(context.Background())
    for i := 1; i <= 10; i++ { a.Pool().Store(wire.NetAddress{Host: "10.9.0.1", Port: uint16(i), Timestamp: time.Now()}, nil) }
    st, _ := a.Status(ctx)
    if st.PeerAddr == "" { t.Fatalf("peer addr not reported") }

    b, err := Run(ctx, Config{NodeID: "b", SeedsCSV: st.PeerAddr, PoolKind: "bolt", DataDir: t.TempDir(), MgmtAddr: "127.0.0.1:0", Logger: quiet, SeedTimeout: 5 * time.Second})
    if err != nil { t.Fatalf("run b: %v", err) }
    defer b.Stop(context.Background())

    info, err := b.Seed(ctx, nil)
    if err != nil { t.Fatalf("seed: %v", err) }
    if info.HostsTo != 10 { t.Fatalf("hosts = %d, want 10", info.HostsTo) }

    mc, _ := MgmtClient("http", 5*time.Second, nil)
    bst, _ := b.Status(ctx)
    raw, err := mc.GetStatus(ctx, bst.MgmtAddr)
    if err != nil || len(raw) == 0 { t.Fatalf("mgmt status: %v", err) }
}
