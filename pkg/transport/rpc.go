package transport

import "context"

// StatusFunc returns a JSON-encoded status payload for management /status.
// Using []byte avoids import cycles on node types.
type StatusFunc func(ctx context.Context) ([]byte, error)

// SeedRequest asks a node to run one seeding pass. Seeds optionally
// overrides the configured seed list (host:port entries).
type SeedRequest struct {
    Seeds []string `json:"seeds,omitempty"`
}

// SeedResponse reports the aggregate outcome of one seeding pass.
type SeedResponse struct {
    Success   bool   `json:"success"`
    HostsFrom int    `json:"hostsFrom"`
    HostsTo   int    `json:"hostsTo"`
    Error     string `json:"error,omitempty"`
}

// SeedFunc runs a seeding pass on behalf of a management request.
type SeedFunc func(ctx context.Context, req SeedRequest) (SeedResponse, error)

// MgmtServer exposes management endpoints (status, seed, healthz, metrics).
type MgmtServer interface {
    Start(ctx context.Context, status StatusFunc, seed SeedFunc) error
    Addr() string
    Stop(ctx context.Context) error
}

// MgmtClient calls the management endpoints of a node.
type MgmtClient interface {
    GetStatus(ctx context.Context, addr string) ([]byte, error)
    PostSeed(ctx context.Context, addr string, req SeedRequest) (SeedResponse, error)
}
