// Command rumwatch runs real-user-monitoring collection against a live page.
//
// Usage:
//
//	rumwatch -config rumwatch.yaml           # full configuration
//	rumwatch -url https://example.com/page   # quick run, stdout sink, forced sampling
//	rumwatch -config rumwatch.yaml -mcp      # also serve diagnostic tools over MCP stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/rumwatch/rum"
)

func main() {
	configPath := flag.String("config", "", "path to rumwatch.yaml config file")
	singleURL := flag.String("url", "", "instrument a single URL (stdout sink, sampling forced on)")
	serveMCP := flag.Bool("mcp", false, "serve rum_status/rum_recent over MCP stdio")
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

	if err := run(ctx, logger, *configPath, *singleURL, *serveMCP); err != nil {
		logger.Error("rumwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, singleURL string, serveMCP bool) error {
	var cfg *rum.Config
	switch {
	case singleURL != "":
		cfg = &rum.Config{}
		cfg.Page.URL = singleURL
		cfg.Browser.Headless = true
		cfg.Sampling.Force = "on"
		cfg.Sinks = []rum.SinkConfig{{Type: "stdout"}}
	case configPath != "":
		var err error
		cfg, err = rum.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: rumwatch -config <file> | -url <url>")
		os.Exit(1)
	}

	sinks, err := rum.BuildSinks(cfg.Sinks, logger)
	if err != nil {
		return fmt.Errorf("build sinks: %w", err)
	}

	agent := rum.New(cfg, logger, sinks)
	if err := agent.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if serveMCP {
		srv := mcp.NewServer(&mcp.Implementation{Name: "rumwatch", Version: "1.0.0"}, nil)
		agent.RegisterMCP(srv)
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("mcp serve", "error", err)
			}
		}()
	}

	<-ctx.Done()
	agent.Stop()
	return nil
}
