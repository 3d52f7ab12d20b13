// Package replicated is a host pool whose writes go through consensus so
// every node of a small cluster serves the same addresses. Writes are
// accepted on the leader only; reads come from the local replica.
package replicated

import (
    "time"

    "github.com/amirimatin/go-seeder/pkg/consensus"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

// Engine is the consensus node backing the pool.
type Engine interface {
    Apply(cmd consensus.Command, timeout time.Duration) error
    IsLeader() bool
}

// Replica is the locally applied state.
type Replica interface {
    hostpool.Pool
    hostpool.Source
    hostpool.Snapshotter
}

// Pool implements hostpool.Pool and hostpool.Source.
type Pool struct {
    eng     Engine
    local   Replica
    timeout time.Duration
}

// New wraps eng; local must be the replica eng applies commands to.
// timeout bounds each Store (zero means the engine default).
func New(eng Engine, local Replica, timeout time.Duration) *Pool {
    return &Pool{eng: eng, local: local, timeout: timeout}
}

func (p *Pool) Size() int { return p.local.Size() }

// Store replicates addr and calls done once the local replica applied it.
// On a follower done receives consensus.ErrNotLeader.
func (p *Pool) Store(addr wire.NetAddress, done func(error)) {
    if err := hostpool.Validate(addr); err != nil { finish(done, err); return }
    cmd, err := consensus.StoreAddress(addr)
    if err != nil { finish(done, err); return }
    finish(done, p.eng.Apply(cmd, p.timeout))
}

func (p *Pool) Sample(max int) []wire.NetAddress { return p.local.Sample(max) }

func (p *Pool) Snapshot() ([]byte, error) { return p.local.Snapshot() }

// Writable reports whether Store can succeed on this node.
func (p *Pool) Writable() bool { return p.eng.IsLeader() }

func finish(done func(error), err error) {
    if done != nil { done(err) }
}

var (
    _ hostpool.Pool   = (*Pool)(nil)
    _ hostpool.Source = (*Pool)(nil)
)
