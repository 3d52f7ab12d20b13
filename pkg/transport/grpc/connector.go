package grpc

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "strconv"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/backoff"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/credentials/insecure"
    "google.golang.org/grpc/keepalive"

    "github.com/amirimatin/go-seeder/pkg/transport"
)

const exchangeMethod = "/seeder.v1.Peer/Exchange"

var exchangeStreamDesc = grpc.StreamDesc{StreamName: "Exchange", ClientStreams: true, ServerStreams: true}

// Connector opens peer channels as Exchange streams over cached client
// connections.
type Connector struct {
    timeout time.Duration
    tlsCfg  *tls.Config
    cm      *ConnManager
}

// NewConnector bounds each dial by timeout (default 3s).
func NewConnector(timeout time.Duration) *Connector {
    if timeout <= 0 { timeout = 3 * time.Second }
    c := &Connector{timeout: timeout}
    c.cm = NewConnManager(30*time.Second, c.dialCtx)
    return c
}

// UseTLS sets TLS config for outgoing connections.
func (c *Connector) UseTLS(cfg *tls.Config) *Connector { c.tlsCfg = cfg; return c }

func (c *Connector) dialCtx(ctx context.Context, target string) (*grpc.ClientConn, error) {
    opts := []grpc.DialOption{
        grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
        grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig, MinConnectTimeout: 500 * time.Millisecond}),
        grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 20 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}),
        grpc.WithBlock(),
        grpc.FailOnNonTempDialError(true),
    }
    if c.tlsCfg != nil {
        opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(c.tlsCfg)))
    } else {
        opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
    }
    return grpc.DialContext(ctx, target, opts...)
}

// Connect implements transport.Connector. The stream outlives ctx and ends
// when the returned channel is stopped.
func (c *Connector) Connect(ctx context.Context, host string, port uint16) (transport.Channel, error) {
    target := net.JoinHostPort(host, strconv.Itoa(int(port)))
    dctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.cm.Get(dctx, target)
    if err != nil { return nil, fmt.Errorf("grpc: dial %s: %w", target, err) }

    sctx, scancel := context.WithCancel(context.WithoutCancel(ctx))
    cs, err := cc.NewStream(sctx, &exchangeStreamDesc, exchangeMethod)
    if err != nil {
        scancel()
        rel()
        c.cm.Forget(target)
        return nil, fmt.Errorf("grpc: open stream %s: %w", target, err)
    }
    return newStreamChannel(cs, target, func() {
        scancel()
        rel()
    }), nil
}

// Close releases all cached connections.
func (c *Connector) Close() { c.cm.Close() }

var _ transport.Connector = (*Connector)(nil)
