//go:build integration

package integration

import (
    "context"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/bootstrap"
)

// A node with no configured seeds learns its seed from the gossip ring and
// seeds as soon as the peer-serving member joins.
func TestGossip_JoinTriggersSeeding(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
    defer cancel()

    a, err := bootstrap.Build(bootstrap.Config{
        NodeID: "a", PeerAddr: "127.0.0.1:18633", MgmtAddr: "127.0.0.1:18647",
        GossipBind: "127.0.0.1:17961", Logger: quiet,
    })
    if err != nil { t.Fatalf("a: %v", err) }
    defer a.Stop(context.Background())
    fill(a, "10.6.0.1", 12)
    if err := a.Start(ctx); err != nil { t.Fatalf("start a: %v", err) }

    b, err := bootstrap.Run(ctx, bootstrap.Config{
        NodeID: "b", MgmtAddr: "127.0.0.1:18648",
        GossipBind: "127.0.0.1:17962", GossipJoinCSV: "127.0.0.1:17961",
        SeedTimeout: 5 * time.Second, Logger: quiet,
    })
    if err != nil { t.Fatalf("b: %v", err) }
    defer b.Stop(context.Background())

    cli, _ := bootstrap.MgmtClient("http", 3*time.Second, nil)
    waitUntil(t, 20*time.Second, func() error {
        s, err := fetchStatus(ctx, cli, "127.0.0.1:18648")
        if err != nil { return err }
        if len(s.Seeds) != 1 || s.Seeds[0] != "127.0.0.1:18633" { return errNotYet }
        if s.Hosts != 12 { return errNotYet }
        return nil
    })

    // "a" serves peers but b has no peer service, so a sees no seeds
    s, err := fetchStatus(ctx, cli, "127.0.0.1:18647")
    if err != nil { t.Fatalf("status a: %v", err) }
    if len(s.Seeds) != 0 { t.Fatalf("a seeds %v", s.Seeds) }
}
