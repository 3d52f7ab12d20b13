//go:build integration

package integration

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "log"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/node"
    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

var errNotYet = errors.New("not yet")

var quiet = log.New(io.Discard, "", 0)

func waitUntil(t *testing.T, d time.Duration, fn func() error) {
    t.Helper()
    deadline := time.Now().Add(d)
    var last error
    for time.Now().Before(deadline) {
        if last = fn(); last == nil { return }
        time.Sleep(100 * time.Millisecond)
    }
    t.Fatalf("condition not met within %s: %v", d, last)
}

func fetchStatus(ctx context.Context, cli transport.MgmtClient, addr string) (node.Status, error) {
    var s node.Status
    b, err := cli.GetStatus(ctx, addr)
    if err != nil { return s, err }
    if err := json.Unmarshal(b, &s); err != nil { return s, err }
    return s, nil
}

// fill stores n distinct addresses in the node's pool.
func fill(n *node.Node, host string, count int) {
    for i := 1; i <= count; i++ {
        n.Pool().Store(wire.NetAddress{Host: host, Port: uint16(i), Timestamp: time.Now()}, nil)
    }
}
