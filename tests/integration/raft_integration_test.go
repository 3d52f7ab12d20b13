//go:build integration

package integration

import (
    "context"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/bootstrap"
)

func TestRaftPool_PersistsAcrossRestart(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
    defer cancel()

    src, err := bootstrap.Run(ctx, bootstrap.Config{NodeID: "src", PeerAddr: "127.0.0.1:18733", Logger: quiet})
    if err != nil { t.Fatalf("src: %v", err) }
    defer src.Stop(context.Background())
    fill(src, "10.7.0.1", 6)

    dir := t.TempDir()
    cfg := bootstrap.Config{
        NodeID: "r1", PoolKind: "raft", DataDir: dir, RaftAddr: "127.0.0.1:19721", Bootstrap: true,
        MgmtAddr: "127.0.0.1:18747", SeedsCSV: "127.0.0.1:18733", SeedTimeout: 5 * time.Second, Logger: quiet,
    }
    r1, err := bootstrap.Run(ctx, cfg)
    if err != nil { t.Fatalf("r1: %v", err) }

    cli, _ := bootstrap.MgmtClient("http", 3*time.Second, nil)
    waitUntil(t, 15*time.Second, func() error {
        s, err := fetchStatus(ctx, cli, cfg.MgmtAddr)
        if err != nil { return err }
        if !s.Writable || s.Leader != "r1" { return errNotYet }
        return nil
    })
    info, err := r1.Seed(ctx, nil)
    if err != nil { t.Fatalf("seed: %v", err) }
    if info.HostsTo != 6 { t.Fatalf("hosts %d, want 6", info.HostsTo) }
    if err := r1.Stop(context.Background()); err != nil { t.Fatalf("stop: %v", err) }

    cfg.Bootstrap = false
    cfg.SeedsCSV = ""
    r2, err := bootstrap.Run(ctx, cfg)
    if err != nil { t.Fatalf("restart: %v", err) }
    defer r2.Stop(context.Background())
    waitUntil(t, 20*time.Second, func() error {
        s, err := fetchStatus(ctx, cli, cfg.MgmtAddr)
        if err != nil { return err }
        if s.Hosts != 6 { return errNotYet }
        return nil
    })
}
