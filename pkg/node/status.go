package node

import "time"

// Status is the JSON document served at /status.
type Status struct {
    NodeID   string   `json:"nodeId"`
    Hosts    int      `json:"hosts"`
    Seeds    []string `json:"seeds"`
    Runs     uint64   `json:"runs"`
    Running  bool     `json:"running"`
    LastRun  *RunInfo `json:"lastRun,omitempty"`
    PeerAddr string   `json:"peerAddr,omitempty"`
    MgmtAddr string   `json:"mgmtAddr,omitempty"`
    // Leader and Term are set when the pool is replicated.
    Leader   string   `json:"leader,omitempty"`
    Term     uint64   `json:"term,omitempty"`
    Writable bool     `json:"writable"`
}

// RunInfo summarizes one seeding pass.
type RunInfo struct {
    Started   time.Time     `json:"started"`
    Duration  time.Duration `json:"duration"`
    Outcome   string        `json:"outcome"`
    HostsFrom int           `json:"hostsFrom"`
    HostsTo   int           `json:"hostsTo"`
    Seeds     int           `json:"seeds"`
    Error     string        `json:"error,omitempty"`
}
