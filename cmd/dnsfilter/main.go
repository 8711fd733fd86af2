// Command dnsfilter is a filtering recursive-free DNS forwarder: it answers
// blocklisted names with a synthesised NXDOMAIN and relays everything else
// to a single configured upstream resolver.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blazskufca/dnsfilter/internal/blocklist"
	"github.com/blazskufca/dnsfilter/internal/config"
	"github.com/blazskufca/dnsfilter/internal/pipeline"
	"github.com/blazskufca/dnsfilter/internal/transport"
	"github.com/blazskufca/dnsfilter/internal/upstream"
)

// Exit codes, per the external-interfaces contract: 0 is clean shutdown,
// everything else names the stage that failed.
const (
	exitOK = iota
	exitBadArgs
	exitBlocklistFailure
	exitSocketFailure
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	trie := blocklist.New()
	result, err := blocklist.Load(logger, trie, cfg.Blocklist)
	if err != nil {
		logger.Error("failed to load blocklist", "path", cfg.Blocklist, "error", err)
		return exitBlocklistFailure
	}
	logger.Debug("blocklist loaded", "accepted", result.Accepted, "skipped", result.Skipped)

	addr := fmt.Sprintf(":%d", cfg.Port)
	conn, err := transport.Listen(ctx, addr)
	if err != nil {
		logger.Error("failed to bind client socket", "addr", addr, "error", err)
		return exitSocketFailure
	}
	defer conn.Close()

	logger.Debug("listening", "addr", conn.LocalAddr(), "upstream", cfg.Upstream)

	client := upstream.New(logger)
	p := pipeline.New(conn, cfg.Upstream, client, trie, logger)

	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline exited with error", "error", err)
	}

	stats := p.Stats()
	logger.Info("shutdown summary",
		"total", stats.Total,
		"blocked", stats.Blocked,
		"forwarded", stats.Forwarded,
		"errors", stats.Errors,
	)

	return exitOK
}
