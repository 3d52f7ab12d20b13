package raftcons

import (
    "context"
    "testing"
    "time"

    c "github.com/amirimatin/go-seeder/pkg/consensus"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

// Three nodes over loopback transports: the bootstrapped node leads and
// stored addresses reach every replica.
func TestRaft_ThreeNodeReplication_Inmem(t *testing.T) {
    n1, _ := New(Options{NodeID: "n1", Bootstrap: true, Logger: quiet, ApplyTimeout: 2 * time.Second})
    n2, _ := New(Options{NodeID: "n2", Logger: quiet})
    n3, _ := New(Options{NodeID: "n3", Logger: quiet})

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    for _, n := range []*Node{n1, n2, n3} {
        if err := n.Start(ctx); err != nil { t.Fatalf("start %s: %v", n.opts.NodeID, err) }
        defer n.Stop()
    }

    connect := func(a, b *Node) {
        if a.lb == nil || b.lb == nil { t.Fatalf("loopback transport expected") }
        a.lb.Connect(b.addr, b.trans)
        b.lb.Connect(a.addr, a.trans)
    }
    connect(n1, n2)
    connect(n1, n3)
    connect(n2, n3)

    awaitLeader(t, n1, 3*time.Second)
    if err := n1.AddVoter("n2", n2.Addr(), 2*time.Second); err != nil { t.Fatalf("AddVoter n2: %v", err) }
    if err := n1.AddVoter("n3", n3.Addr(), 2*time.Second); err != nil { t.Fatalf("AddVoter n3: %v", err) }
    // idempotent for the same address
    if err := n1.AddVoter("n2", n2.Addr(), 2*time.Second); err != nil { t.Fatalf("AddVoter again: %v", err) }

    for i := 1; i <= 3; i++ {
        cmd, _ := c.StoreAddress(wire.NetAddress{Host: "10.1.0.1", Port: uint16(i)})
        if err := n1.Apply(cmd, 0); err != nil { t.Fatalf("apply %d: %v", i, err) }
    }
    for _, n := range []*Node{n1, n2, n3} { awaitSize(t, n, 3, 5*time.Second) }
}

func awaitSize(t *testing.T, n *Node, want int, timeout time.Duration) {
    t.Helper()
    deadline := time.Now().Add(timeout)
    for time.Now().Before(deadline) {
        if n.State().Size() == want { return }
        time.Sleep(50 * time.Millisecond)
    }
    t.Fatalf("%s state size = %d, want %d", n.opts.NodeID, n.State().Size(), want)
}
