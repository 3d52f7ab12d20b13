package raftcons

import (
    "encoding/json"
    "fmt"
    "io"

    "github.com/hashicorp/raft"

    c "github.com/amirimatin/go-seeder/pkg/consensus"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

// State is the local replica the FSM applies commands to.
type State interface {
    hostpool.Pool
    hostpool.Source
    hostpool.Snapshotter
}

// poolFSM bridges Raft Apply/Snapshot to a host pool replica.
type poolFSM struct {
    st State
}

func newPoolFSM(st State) *poolFSM { return &poolFSM{st: st} }

// Apply returns nil or an error; the error is handed to the applier.
func (f *poolFSM) Apply(l *raft.Log) interface{} {
    var cmd c.Command
    if err := json.Unmarshal(l.Data, &cmd); err != nil { return err }
    switch cmd.Op {
    case c.OpStoreAddress:
        var a wire.NetAddress
        if err := json.Unmarshal(cmd.Payload, &a); err != nil { return err }
        res := make(chan error, 1)
        f.st.Store(a, func(err error) { res <- err })
        return <-res
    default:
        return fmt.Errorf("raftcons: unknown op %q", cmd.Op)
    }
}

func (f *poolFSM) Snapshot() (raft.FSMSnapshot, error) {
    blob, err := f.st.Snapshot()
    if err != nil { return nil, err }
    return &snapshot{blob: blob}, nil
}

func (f *poolFSM) Restore(rc io.ReadCloser) error {
    defer rc.Close()
    data, err := io.ReadAll(rc)
    if err != nil { return err }
    return f.st.Restore(data)
}

type snapshot struct{ blob []byte }

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
    if _, err := sink.Write(s.blob); err != nil { _ = sink.Cancel(); return err }
    return sink.Close()
}

func (s *snapshot) Release() {}

var _ raft.FSM = (*poolFSM)(nil)
var _ State = (*hostpool.Memory)(nil)
