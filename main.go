// billdiff shows a legislative amendment as a browser redline against
// the bill text it modifies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lundberg/billdiff/internal/browser"
	"github.com/lundberg/billdiff/internal/cli"
	"github.com/lundberg/billdiff/internal/config"
	"github.com/lundberg/billdiff/internal/fetch"
	"github.com/lundberg/billdiff/internal/redline"
	"github.com/lundberg/billdiff/internal/server"
	"github.com/lundberg/billdiff/internal/watch"
	"github.com/lundberg/billdiff/web"
)

func main() {
	if err := cli.NewCommand(run).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := newLogger(cfg.Verbose)
	fetcher := fetch.NewFetcher(cfg.Timeout, cfg.FetchRate)
	srv := server.New(cfg, fetcher, web.Assets, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := preload(ctx, cfg, fetcher, srv); err != nil {
		return err
	}

	if cfg.Watch {
		reload := func() {
			if err := loadFiles(cfg, srv); err != nil {
				log.Warn("reload failed", slog.String("error", err.Error()))
			}
		}
		watcher, err := watch.New([]string{cfg.Original, cfg.Amended}, reload, log)
		if err != nil {
			return fmt.Errorf("watching input files: %w", err)
		}
		go watcher.Run(ctx)
	}

	// Listen first to get the actual address (handles port=0 auto-select).
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	actualPort := ln.Addr().(*net.TCPAddr).Port
	cfg.Port = actualPort
	url := fmt.Sprintf("http://%s", net.JoinHostPort(cfg.Host, strconv.Itoa(actualPort)))

	fmt.Printf("Listening on %s\n", url)
	if cfg.Host != "localhost" && cfg.Host != "127.0.0.1" {
		fmt.Fprintln(os.Stderr, "WARNING: billdiff is not designed for public access. It serves whatever the local user compares, without authentication.")
	}
	fmt.Println("Press Ctrl+C to stop")

	if !cfg.NoOpen {
		if err := browser.Open(url); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open browser: %v\n", err)
		}
	}

	httpServer := &http.Server{Handler: srv.Handler()}

	// Graceful shutdown on Ctrl+C.
	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		_ = httpServer.Close()
	}()

	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// preload resolves positional inputs into a first comparison before the
// server starts, so the page has something to show on load.
func preload(ctx context.Context, cfg *config.Config, fetcher *fetch.Fetcher, srv *server.Server) error {
	switch cfg.Mode {
	case config.ModePaste:
		return nil

	case config.ModeFiles:
		return loadFiles(cfg, srv)

	case config.ModeURLs:
		original, err := fetcher.FromURL(ctx, cfg.Original)
		if err != nil {
			return fmt.Errorf("fetching original: %w", err)
		}
		amended, err := fetcher.FromURL(ctx, cfg.Amended)
		if err != nil {
			return fmt.Errorf("fetching amendment: %w", err)
		}
		c, err := srv.Compare(original, amended, redline.Granularity(cfg.Granularity))
		if err != nil {
			return err
		}
		srv.SetCurrent(c)
		return nil
	}
	return fmt.Errorf("unknown mode %q", cfg.Mode)
}

// loadFiles reads both input files and publishes a fresh comparison.
// Used at startup and by the file watcher.
func loadFiles(cfg *config.Config, srv *server.Server) error {
	original, err := fetch.FromFile(cfg.Original)
	if err != nil {
		return fmt.Errorf("reading original: %w", err)
	}
	amended, err := fetch.FromFile(cfg.Amended)
	if err != nil {
		return fmt.Errorf("reading amendment: %w", err)
	}
	c, err := srv.Compare(original, amended, redline.Granularity(cfg.Granularity))
	if err != nil {
		return err
	}
	srv.SetCurrent(c)
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
