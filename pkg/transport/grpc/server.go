package grpc

import (
    "context"
    "crypto/tls"
    "net"
    "sync"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/health"
    healthpb "google.golang.org/grpc/health/grpc_health_v1"
    "google.golang.org/grpc/keepalive"
    grpcpeer "google.golang.org/grpc/peer"

    "github.com/amirimatin/go-seeder/pkg/transport"
)

// Server hosts the Peer service (so this node can act as a seed) and,
// when Start is given management callbacks, the Management service.
type Server struct {
    bind      string
    responder transport.Responder
    tlsCfg    *tls.Config

    mu  sync.Mutex
    lis net.Listener
    srv *grpc.Server
}

// NewServer binds to the given TCP address; r serves every inbound peer
// channel.
func NewServer(bind string, r transport.Responder) *Server { return &Server{bind: bind, responder: r} }

// UseTLS enables TLS for the gRPC server using the provided config.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// peerServer is the handler type of the Peer service.
type peerServer interface {
    Exchange(stream grpc.ServerStream) error
}

type peerImpl struct{ responder transport.Responder }

func (p *peerImpl) Exchange(stream grpc.ServerStream) error {
    remote := "unknown"
    if pr, ok := grpcpeer.FromContext(stream.Context()); ok && pr.Addr != nil { remote = pr.Addr.String() }
    closed := make(chan struct{})
    ch := newStreamChannel(stream, remote, func() { close(closed) })
    p.responder.Serve(ch)
    select {
    case <-closed:
    case <-stream.Context().Done():
        ch.Stop(transport.ErrRemoteClosed)
    }
    return nil
}

var _Peer_serviceDesc = grpc.ServiceDesc{
    ServiceName: "seeder.v1.Peer",
    HandlerType: (*peerServer)(nil),
    Streams: []grpc.StreamDesc{{
        StreamName:    "Exchange",
        ServerStreams: true,
        ClientStreams: true,
        Handler:       _Peer_Exchange_Handler,
    }},
}

func _Peer_Exchange_Handler(srv interface{}, stream grpc.ServerStream) error {
    return srv.(peerServer).Exchange(stream)
}

// Start listens and serves until ctx is canceled or Stop is called. status
// and seed may be nil, in which case no Management service is exposed.
func (s *Server) Start(ctx context.Context, status transport.StatusFunc, seed transport.SeedFunc) error {
    lis, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    // Force JSON codec to avoid requiring protobuf types
    var opts []grpc.ServerOption
    opts = append(opts, grpc.ForceServerCodec(jsonCodec{}))
    opts = append(opts, grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: 5 * time.Second, PermitWithoutStream: true}))
    opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{Time: 30 * time.Second, Timeout: 10 * time.Second}))
    if s.tlsCfg != nil { opts = append(opts, grpc.Creds(credentials.NewTLS(s.tlsCfg))) }
    srv := grpc.NewServer(opts...)

    healthSrv := health.NewServer()
    healthpb.RegisterHealthServer(srv, healthSrv)
    if s.responder != nil {
        srv.RegisterService(&_Peer_serviceDesc, &peerImpl{responder: s.responder})
    }
    if status != nil || seed != nil {
        srv.RegisterService(&_Management_serviceDesc, &mgmtImpl{status: status, seed: seed})
    }

    s.mu.Lock()
    s.lis, s.srv = lis, srv
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() { _ = srv.Serve(lis) }()
    return nil
}

// Addr returns the bound address once started (useful with port 0).
func (s *Server) Addr() string {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.lis != nil { return s.lis.Addr().String() }
    return s.bind
}

func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv, lis := s.srv, s.lis
    s.srv, s.lis = nil, nil
    s.mu.Unlock()
    if srv == nil { return nil }
    ch := make(chan struct{})
    go func() { srv.GracefulStop(); close(ch) }()
    select {
    case <-ch:
    case <-ctx.Done():
        srv.Stop()
    case <-time.After(2 * time.Second):
        srv.Stop()
    }
    if lis != nil { _ = lis.Close() }
    return nil
}

var _ transport.MgmtServer = (*Server)(nil)
