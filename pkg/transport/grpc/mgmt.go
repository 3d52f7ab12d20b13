package grpc

import (
    "context"
    "crypto/tls"
    "errors"
    "time"

    "google.golang.org/grpc"

    "github.com/amirimatin/go-seeder/pkg/observability/tracing"
    "github.com/amirimatin/go-seeder/pkg/transport"
)

// internal request/response types used over gRPC JSON codec
type empty struct{}
type statusBlob struct{ Data []byte `json:"data"` }

type managementServer interface {
    GetStatus(ctx context.Context, in *empty) (*statusBlob, error)
    Seed(ctx context.Context, in *transport.SeedRequest) (*transport.SeedResponse, error)
}

type mgmtImpl struct {
    status transport.StatusFunc
    seed   transport.SeedFunc
}

func (m *mgmtImpl) GetStatus(ctx context.Context, _ *empty) (*statusBlob, error) {
    if m.status == nil { return nil, errors.New("status not supported") }
    ctx, end := tracing.StartSpan(ctx, "grpc.status")
    defer end()
    b, err := m.status(ctx)
    if err != nil { return nil, err }
    return &statusBlob{Data: b}, nil
}

func (m *mgmtImpl) Seed(ctx context.Context, in *transport.SeedRequest) (*transport.SeedResponse, error) {
    if in == nil { in = &transport.SeedRequest{} }
    if m.seed == nil { return &transport.SeedResponse{Error: "seed not supported"}, nil }
    ctx, end := tracing.StartSpan(ctx, "grpc.seed")
    defer end()
    out, err := m.seed(ctx, *in)
    if err != nil && out.Error == "" { out.Error = err.Error() }
    return &out, nil
}

// Service descriptor and handlers (hand-written, no codegen required)
var _Management_serviceDesc = grpc.ServiceDesc{
    ServiceName: "seeder.v1.Management",
    HandlerType: (*managementServer)(nil),
    Methods: []grpc.MethodDesc{
        { MethodName: "GetStatus", Handler: _Management_GetStatus_Handler },
        { MethodName: "Seed", Handler: _Management_Seed_Handler },
    },
}

func _Management_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
    in := new(empty)
    if err := dec(in); err != nil { return nil, err }
    if interceptor == nil { return srv.(managementServer).GetStatus(ctx, in) }
    info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/seeder.v1.Management/GetStatus"}
    handler := func(ctx context.Context, req interface{}) (interface{}, error) {
        return srv.(managementServer).GetStatus(ctx, req.(*empty))
    }
    return interceptor(ctx, in, info, handler)
}

func _Management_Seed_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
    in := new(transport.SeedRequest)
    if err := dec(in); err != nil { return nil, err }
    if interceptor == nil { return srv.(managementServer).Seed(ctx, in) }
    info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/seeder.v1.Management/Seed"}
    handler := func(ctx context.Context, req interface{}) (interface{}, error) {
        return srv.(managementServer).Seed(ctx, req.(*transport.SeedRequest))
    }
    return interceptor(ctx, in, info, handler)
}

// MgmtClient calls the Management service over cached connections.
type MgmtClient struct {
    timeout time.Duration
    conn    *Connector
}

// NewMgmtClient uses timeout for dialing and status calls (default 3s). Seed
// calls are bounded by the caller's context only, since a run can last as
// long as the seed timeout. A failed run is reported in the response, not as
// an error.
func NewMgmtClient(timeout time.Duration) *MgmtClient {
    if timeout <= 0 { timeout = 3 * time.Second }
    return &MgmtClient{timeout: timeout, conn: NewConnector(timeout)}
}

// UseTLS sets TLS config for the client.
func (c *MgmtClient) UseTLS(cfg *tls.Config) *MgmtClient { c.conn.UseTLS(cfg); return c }

func (c *MgmtClient) GetStatus(ctx context.Context, addr string) ([]byte, error) {
    cctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.conn.cm.Get(cctx, addr)
    if err != nil { return nil, err }
    defer rel()
    out := new(statusBlob)
    if err := cc.Invoke(cctx, "/seeder.v1.Management/GetStatus", &empty{}, out); err != nil { return nil, err }
    return out.Data, nil
}

func (c *MgmtClient) PostSeed(ctx context.Context, addr string, req transport.SeedRequest) (transport.SeedResponse, error) {
    var resp transport.SeedResponse
    dctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.conn.cm.Get(dctx, addr)
    if err != nil { return resp, err }
    defer rel()
    if err := cc.Invoke(ctx, "/seeder.v1.Management/Seed", &req, &resp); err != nil { return resp, err }
    return resp, nil
}

func (c *MgmtClient) Close() { c.conn.Close() }

var _ transport.MgmtClient = (*MgmtClient)(nil)
