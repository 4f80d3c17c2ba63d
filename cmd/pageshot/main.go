// CLAUDE:SUMMARY CLI entry point for pageshot: one-shot capture, HTTP API server, or MCP stdio server.
// Command pageshot takes full-page screenshots.
//
// Usage:
//
//	pageshot -url https://example.com -out page.png   # one capture, then exit
//	pageshot -config pageshot.yaml -serve             # HTTP API
//	pageshot -config pageshot.yaml -mcp               # MCP tools over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pageshot/kit"
	"github.com/hazyhaar/pageshot/pageshot"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to pageshot.yaml config file")
	singleURL := flag.String("url", "", "capture a single URL and exit")
	outPath := flag.String("out", "", "write the -url capture to this file (default: metadata on stdout)")
	format := flag.String("format", "", "override capture.format: png, jpeg or pdf")
	serve := flag.Bool("serve", false, "serve the HTTP API")
	addr := flag.String("addr", "", "override http.addr")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("pageshot: config", "error", err)
		os.Exit(1)
	}
	if *format != "" {
		cfg.Capture.Format = *format
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	switch {
	case *singleURL != "":
		err = runSingle(ctx, logger, cfg, *singleURL, *outPath)
	case *serve:
		err = runServe(ctx, logger, cfg)
	case *mcpStdio:
		err = runMCP(ctx, logger, cfg)
	default:
		fmt.Fprintln(os.Stderr, "usage: pageshot -url <url> [-out file] | -serve | -mcp  [-config file]")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("pageshot: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*pageshot.Config, error) {
	if path == "" {
		return pageshot.DefaultConfig(), nil
	}
	return pageshot.LoadConfigFile(path)
}

func start(ctx context.Context, logger *slog.Logger, cfg *pageshot.Config, opts ...pageshot.Option) (*pageshot.Service, error) {
	svc, err := pageshot.New(cfg, append([]pageshot.Option{pageshot.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func runSingle(ctx context.Context, logger *slog.Logger, cfg *pageshot.Config, url, out string) error {
	var opts []pageshot.Option
	if out == "" && len(cfg.Sinks) == 0 {
		opts = append(opts, pageshot.WithSinks(pageshot.NewStdoutSink(nil, false)))
	}
	svc, err := start(ctx, logger, cfg, opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Capture(kit.WithTransport(ctx, "cli"), url)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if out != "" {
		if err := os.WriteFile(out, res.Image, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		logger.Info("pageshot: written", "path", out, "bytes", len(res.Image))
	}
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *pageshot.Config) error {
	svc, err := start(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           svc.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Capture.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("pageshot: server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("pageshot: shutdown", "error", err)
	}
	logger.Info("pageshot: server stopped")
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *pageshot.Config) error {
	svc, err := start(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "pageshot", Version: version}, nil)
	svc.RegisterMCP(srv)
	logger.Info("pageshot: mcp stdio ready")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
