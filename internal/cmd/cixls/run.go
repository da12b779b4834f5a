// Package cixls implements the cixls command: the Cicode language server.
package cixls

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/albertocavalcante/cix/internal/cixconfig"
	"github.com/albertocavalcante/cix/internal/cli"
	"github.com/albertocavalcante/cix/internal/lsp"
	"github.com/albertocavalcante/cix/internal/version"
)

// Run executes cixls with the given arguments.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		versionFlag bool
		verboseFlag bool
		configPath  string
		metricsAddr string
	)

	fs := flag.NewFlagSet("cixls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.StringVar(&configPath, "config", "", "config file (default: discover cix.star, cix.toml or cix.yaml)")
	fs.StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. :9464")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: cixls [flags]")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Cicode Language Server Protocol (LSP) implementation.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "The server communicates over stdio using JSON-RPC 2.0.")
		cli.Writeln(stderr, "Configure your editor to launch this binary as an LSP server.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Features:")
		cli.Writeln(stderr, "  - Hover documentation and signature help")
		cli.Writeln(stderr, "  - Go to definition and find references")
		cli.Writeln(stderr, "  - Rename across files")
		cli.Writeln(stderr, "  - Document and workspace symbols")
		cli.Writeln(stderr, "  - Completion")
		cli.Writeln(stderr, "  - Diagnostics (duplicate functions, argument counts)")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitOK
		}
		return cli.ExitError
	}

	if versionFlag {
		cli.Writef(stdout, "cixls %s\n", version.String())
		return cli.ExitOK
	}

	cli.SetupLogging(verboseFlag, stderr)

	cfg, err := cli.LoadConfig(configPath, "")
	if err != nil {
		cli.Writef(stderr, "cixls: %v\n", err)
		return cli.ExitError
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	if metricsAddr != "" {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		srv := serveMetrics(metricsAddr, reg)
		defer func() { _ = srv.Close() }()
	}

	server := lsp.NewServer(cancel, serverOptions(cfg, reg))

	rwc := &stdioConn{
		Reader: stdin,
		Writer: stdout,
	}
	conn := lsp.NewConn(rwc, server)
	server.SetConn(conn)

	log.Printf("cixls: starting server")

	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		cli.Writef(stderr, "cixls: %v\n", err)
		return cli.ExitError
	}

	log.Printf("cixls: server stopped")
	return cli.ExitOK
}

func serverOptions(cfg *cixconfig.Config, reg prometheus.Registerer) lsp.Options {
	return lsp.Options{
		Exclude:      cfg.Index.Exclude,
		Extensions:   cfg.Index.Extensions,
		Debounce:     cfg.Index.Debounce.Duration,
		Builtins:     cfg.BuiltinsProvider(),
		CheckDisable: cfg.Check.Disable,
		Registerer:   reg,
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("cixls: metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("cixls: metrics server: %v", err)
		}
	}()
	return srv
}

// stdioConn wraps stdin/stdout as an io.ReadWriteCloser.
type stdioConn struct {
	io.Reader
	io.Writer
}

func (s *stdioConn) Close() error {
	return nil
}
