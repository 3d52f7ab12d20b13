package consensus

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

// OpStoreAddress records one peer address in the replicated host pool.
const OpStoreAddress = "StoreAddress"

var ErrNotLeader = errors.New("consensus: not leader")

// Command represents a log command. Payload is interpreted according to Op.
type Command struct {
    Op      string
    Payload []byte
}

// StoreAddress builds an OpStoreAddress command.
func StoreAddress(a wire.NetAddress) (Command, error) {
    b, err := json.Marshal(a)
    if err != nil { return Command{}, err }
    return Command{Op: OpStoreAddress, Payload: b}, nil
}

// Consensus is the minimal abstraction over a leader-based consensus engine.
// Only the leader accepts Apply.
type Consensus interface {
    Start(ctx context.Context) error
    Apply(cmd Command, timeout time.Duration) error
    IsLeader() bool
    Leader() (id string, addr string, ok bool)
    Term() uint64
    Stop() error
}

// LeaderInfo describes the current known leader.
type LeaderInfo struct {
    ID   string
    Addr string
    Term uint64
}

// LeaderNotifier is implemented by engines that publish leadership changes.
// Updates may be coalesced; the channel is never closed while running.
type LeaderNotifier interface {
    LeaderCh() <-chan LeaderInfo
}

// Reconfigurer allows adding and removing servers at runtime.
type Reconfigurer interface {
    AddVoter(id, addr string, timeout time.Duration) error
    RemoveServer(id string, timeout time.Duration) error
}
