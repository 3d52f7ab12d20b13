package cli

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/go-seeder/pkg/bootstrap"
    "github.com/amirimatin/go-seeder/pkg/discovery/preset"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    tracing "github.com/amirimatin/go-seeder/pkg/observability/tracing"
    tlsx "github.com/amirimatin/go-seeder/pkg/security/tlsconfig"
    "github.com/amirimatin/go-seeder/pkg/transport"
)

// ErrRunFailed is returned by "seed" when the pass did not grow the pool.
var ErrRunFailed = errors.New("seeding failed")

// AddAll attaches the seeder subcommands (run/seed/status/presets) to root.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewSeedCmd())
    root.AddCommand(NewStatusCmd())
    root.AddCommand(NewPresetsCmd())
}

// NewSeederCommand returns a parent "seeder" command holding all
// subcommands, for embedding in a service's own CLI.
func NewSeederCommand() *cobra.Command {
    parent := &cobra.Command{Use: "seeder", Short: "peer seeding commands"}
    AddAll(parent)
    return parent
}

// NewRunCmd returns the "run" command starting a long-lived node.
func NewRunCmd() *cobra.Command {
    var traceEnable, debug bool
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Run a seeder node (serves its pool, refills it from seeds)",
    }
    flags := newConfigFlags(cmd, true)
    cmd.RunE = func(cmd *cobra.Command, args []string) error {
        cfg, err := flags.resolve(cmd)
        if err != nil { return err }
        if cfg.NodeID == "" { return fmt.Errorf("missing --id") }
        if debug { logutil.SetDebug(true) }
        ctx, cancel := signalContext()
        defer cancel()
        if traceEnable {
            shutdown, err := tracing.Setup(true)
            if err != nil {
                log.Printf("tracing setup error: %v", err)
            } else {
                defer func() { _ = shutdown(context.Background()) }()
            }
        }
        cfg.Logger = log.Default()
        n, err := bootstrap.Run(ctx, cfg)
        if err != nil { return err }
        defer n.Stop(context.Background())

        fmt.Fprintln(cmd.OutOrStdout(), "seeder running. Press Ctrl+C to exit.")
        <-ctx.Done()
        return nil
    }
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
    return cmd
}

// NewSeedCmd returns the "seed" command. With --addr it asks a running node
// to seed; otherwise it performs a one-shot pass in process and prints the
// result. Exits non-zero when the pass did not grow the pool.
func NewSeedCmd() *cobra.Command {
    var (
        addr, mgmtProto string
        timeout         time.Duration
    )
    cmd := &cobra.Command{
        Use:   "seed",
        Short: "Run one seeding pass and print the result as JSON",
    }
    flags := newConfigFlags(cmd, false)
    cmd.RunE = func(cmd *cobra.Command, args []string) error {
        cfg, err := flags.resolve(cmd)
        if err != nil { return err }
        ctx, cancel := signalContext()
        defer cancel()
        ctx, tcancel := context.WithTimeout(ctx, timeout)
        defer tcancel()
        out := json.NewEncoder(cmd.OutOrStdout())

        if addr != "" {
            _, cliTLS, err := cfg.TLS()
            if err != nil { return fmt.Errorf("tls client config: %w", err) }
            client, err := bootstrap.MgmtClient(mgmtProto, timeout, cliTLS)
            if err != nil { return err }
            if c, ok := client.(interface{ Close() }); ok { defer c.Close() }
            var req transport.SeedRequest
            if cfg.SeedsCSV != "" {
                eps, err := endpoint.ParseList(cfg.SeedsCSV)
                if err != nil { return err }
                req.Seeds = endpoint.Strings(eps)
            }
            resp, err := client.PostSeed(ctx, addr, req)
            if err != nil { return fmt.Errorf("seed error: %w", err) }
            if err := out.Encode(resp); err != nil { return err }
            if !resp.Success { return fmt.Errorf("%w: %s", ErrRunFailed, resp.Error) }
            return nil
        }

        if cfg.NodeID == "" { cfg.NodeID = "seedctl" }
        cfg.PeerAddr, cfg.MgmtAddr, cfg.GossipBind = "", "", ""
        cfg.Logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
        n, err := bootstrap.Build(cfg)
        if err != nil { return err }
        defer n.Stop(context.Background())
        info, runErr := n.Seed(ctx, nil)
        if err := out.Encode(info); err != nil { return err }
        if runErr != nil { return fmt.Errorf("%w: %v", ErrRunFailed, runErr) }
        return nil
    }
    cmd.Flags().StringVar(&addr, "addr", "", "management address of a running node; empty runs in process")
    cmd.Flags().StringVar(&mgmtProto, "mgmt-proto", "http", "management protocol: http|grpc")
    cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
    return cmd
}

// NewStatusCmd returns the "status" command.
func NewStatusCmd() *cobra.Command {
    var (
        addr, mgmtProto                       string
        timeout                               time.Duration
        tlsEnable, tlsSkip                    bool
        tlsCA, tlsCert, tlsKey, tlsServerName string
    )
    cmd := &cobra.Command{
        Use:   "status",
        Short: "Fetch node status as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            var cliTLS *tls.Config
            if tlsEnable {
                topts := tlsx.Options{Enable: true, CAFile: tlsCA, CertFile: tlsCert, KeyFile: tlsKey, InsecureSkipVerify: tlsSkip, ServerName: tlsServerName}
                var err error
                cliTLS, err = topts.Client()
                if err != nil { return fmt.Errorf("tls client config: %w", err) }
            }
            client, err := bootstrap.MgmtClient(mgmtProto, timeout, cliTLS)
            if err != nil { return err }
            if c, ok := client.(interface{ Close() }); ok { defer c.Close() }
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            data, err := client.GetStatus(ctx, addr)
            if err != nil { return fmt.Errorf("status error: %w", err) }
            return writeLine(cmd.OutOrStdout(), data)
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17946", "management address of a node (host:port)")
    cmd.Flags().StringVar(&mgmtProto, "mgmt-proto", "http", "management protocol: http|grpc")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for management transport")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to client certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to client private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    return cmd
}

// NewPresetsCmd lists the built-in seed presets.
func NewPresetsCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "presets [name]",
        Short: "List built-in seed presets, or the seeds of one preset",
        Args:  cobra.MaximumNArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            w := cmd.OutOrStdout()
            if len(args) == 0 {
                for _, n := range preset.Names() { fmt.Fprintln(w, n) }
                return nil
            }
            seeds, err := preset.Seeds(args[0])
            if err != nil { return err }
            for _, s := range seeds { fmt.Fprintln(w, s.String()) }
            return nil
        },
    }
}

func writeLine(w io.Writer, data []byte) error {
    if _, err := w.Write(data); err != nil { return err }
    if len(data) == 0 || data[len(data)-1] != '\n' {
        _, err := w.Write([]byte("\n"))
        return err
    }
    return nil
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        defer signal.Stop(ch)
        select {
        case <-ch:
            cancel()
        case <-ctx.Done():
        }
    }()
    return ctx, cancel
}
