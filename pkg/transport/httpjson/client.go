package httpjson

import (
    "bytes"
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/amirimatin/go-seeder/pkg/transport"
)

const attempts = 3

// Client is a thin HTTP client for the management API. It supports optional
// TLS configuration and simple retry with backoff.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
}

// NewClient constructs a new Client with the given per-request timeout.
// Seeding can take a while, so callers of PostSeed usually pass a generous
// timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    tr := &http.Transport{}
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if c.transport != nil { c.transport.TLSClientConfig = cfg }
    c.isTLS = cfg != nil
    return c
}

func (c *Client) url(addr, path string) string {
    scheme := "http"
    if c.isTLS { scheme = "https" }
    return fmt.Sprintf("%s://%s%s", scheme, addr, path)
}

// GetStatus fetches the raw JSON status document.
func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
    var out []byte
    err := c.retry(ctx, func() (bool, error) {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(addr, "/status"), nil)
        if err != nil { return false, err }
        resp, err := c.httpc.Do(req)
        if err != nil { return true, err }
        defer resp.Body.Close()
        b, err := io.ReadAll(resp.Body)
        if err != nil { return true, err }
        if resp.StatusCode != http.StatusOK { return resp.StatusCode >= 500, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(b)) }
        out = b
        return false, nil
    })
    return out, err
}

// PostSeed triggers one seeding pass. A failed run is reported in the
// response (Success, Error), not as an error. Seed requests are not retried
// once the server has answered.
func (c *Client) PostSeed(ctx context.Context, addr string, sreq transport.SeedRequest) (transport.SeedResponse, error) {
    var out transport.SeedResponse
    body, err := json.Marshal(sreq)
    if err != nil { return out, err }
    err = c.retry(ctx, func() (bool, error) {
        req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(addr, "/seed"), bytes.NewReader(body))
        if err != nil { return false, err }
        req.Header.Set("Content-Type", "application/json")
        resp, err := c.httpc.Do(req)
        if err != nil { return true, err }
        defer resp.Body.Close()
        b, _ := io.ReadAll(resp.Body)
        _ = json.Unmarshal(b, &out)
        if resp.StatusCode == http.StatusOK { return false, nil }
        return false, fmt.Errorf("seed status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
    })
    return out, err
}

// retry runs fn up to attempts times while it asks for another try.
func (c *Client) retry(ctx context.Context, fn func() (again bool, err error)) error {
    var lastErr error
    for attempt := 0; attempt < attempts; attempt++ {
        again, err := fn()
        if err == nil { return nil }
        lastErr = err
        if !again || attempt == attempts-1 { break }
        select {
        case <-ctx.Done():
            return lastErr
        case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
        }
    }
    return lastErr
}

var _ transport.MgmtClient = (*Client)(nil)
