package grpc

import (
    "context"
    "sync"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/connectivity"

    obsmetrics "github.com/amirimatin/go-seeder/pkg/observability/metrics"
)

// ConnManager keeps one client connection per seed target. Concurrent
// callers for the same target share a single dial; connections that went
// into TransientFailure or Shutdown are replaced on the next Get, and idle
// ones are swept after ttl.
type ConnManager struct {
    ttl  time.Duration
    dial func(ctx context.Context, target string) (*grpc.ClientConn, error)

    mu      sync.Mutex
    conns   map[string]*seedConn
    dialing map[string]chan struct{}
    done    chan struct{}
    once    sync.Once
}

type seedConn struct {
    cc        *grpc.ClientConn
    users     int
    idleSince time.Time
}

func NewConnManager(ttl time.Duration, dial func(ctx context.Context, target string) (*grpc.ClientConn, error)) *ConnManager {
    if ttl <= 0 { ttl = 30 * time.Second }
    m := &ConnManager{
        ttl:     ttl,
        dial:    dial,
        conns:   make(map[string]*seedConn),
        dialing: make(map[string]chan struct{}),
        done:    make(chan struct{}),
    }
    go m.janitor()
    return m
}

// Get returns a connection to target and a release func for the caller.
func (m *ConnManager) Get(ctx context.Context, target string) (*grpc.ClientConn, func(), error) {
    for {
        m.mu.Lock()
        if sc := m.conns[target]; sc != nil {
            if healthy(sc.cc) {
                sc.users++
                m.mu.Unlock()
                obsmetrics.GRPCConnReuse.Inc()
                return sc.cc, m.releaser(target, sc), nil
            }
            m.dropLocked(target, sc)
        }
        wait, busy := m.dialing[target]
        if !busy {
            ch := make(chan struct{})
            m.dialing[target] = ch
            m.mu.Unlock()
            return m.dialAndStore(ctx, target, ch)
        }
        m.mu.Unlock()
        select {
        case <-wait:
        case <-ctx.Done():
            return nil, func() {}, ctx.Err()
        }
    }
}

func (m *ConnManager) dialAndStore(ctx context.Context, target string, ch chan struct{}) (*grpc.ClientConn, func(), error) {
    cc, err := m.dial(ctx, target)
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.dialing, target)
    close(ch)
    if err != nil { return nil, func() {}, err }
    sc := &seedConn{cc: cc, users: 1}
    m.conns[target] = sc
    obsmetrics.GRPCConnDials.Inc()
    obsmetrics.GRPCConnActive.Inc()
    return cc, m.releaser(target, sc), nil
}

func (m *ConnManager) releaser(target string, sc *seedConn) func() {
    var once sync.Once
    return func() {
        once.Do(func() {
            m.mu.Lock()
            if sc.users > 0 { sc.users-- }
            if sc.users == 0 { sc.idleSince = time.Now() }
            m.mu.Unlock()
        })
    }
}

func healthy(cc *grpc.ClientConn) bool {
    switch cc.GetState() {
    case connectivity.TransientFailure, connectivity.Shutdown:
        return false
    }
    return true
}

// dropLocked removes target if it still maps to sc and closes it.
func (m *ConnManager) dropLocked(target string, sc *seedConn) {
    if m.conns[target] != sc { return }
    delete(m.conns, target)
    _ = sc.cc.Close()
    obsmetrics.GRPCConnActive.Dec()
}

// Forget closes the cached connection to target, e.g. after a stream could
// not be opened on it.
func (m *ConnManager) Forget(target string) {
    m.mu.Lock()
    if sc := m.conns[target]; sc != nil { m.dropLocked(target, sc) }
    m.mu.Unlock()
}

// Len reports the number of cached connections.
func (m *ConnManager) Len() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return len(m.conns)
}

// sweep closes connections idle since before now-ttl and returns how many.
func (m *ConnManager) sweep(now time.Time) int {
    cutoff := now.Add(-m.ttl)
    m.mu.Lock()
    defer m.mu.Unlock()
    n := 0
    for target, sc := range m.conns {
        if sc.users > 0 || sc.idleSince.After(cutoff) { continue }
        m.dropLocked(target, sc)
        obsmetrics.GRPCConnEvictions.Inc()
        n++
    }
    return n
}

// Close closes every cached connection and stops the janitor. Idempotent.
func (m *ConnManager) Close() {
    m.once.Do(func() {
        close(m.done)
        m.mu.Lock()
        for target, sc := range m.conns { m.dropLocked(target, sc) }
        m.mu.Unlock()
    })
}

func (m *ConnManager) janitor() {
    t := time.NewTicker(m.ttl / 2)
    defer t.Stop()
    for {
        select {
        case <-m.done:
            return
        case now := <-t.C:
            m.sweep(now)
        }
    }
}
