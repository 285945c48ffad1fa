// cmd/jobwatch/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mbeck/jobwatch/internal/accept"
	"github.com/mbeck/jobwatch/internal/browser"
	"github.com/mbeck/jobwatch/internal/config"
	"github.com/mbeck/jobwatch/internal/keepalive"
	"github.com/mbeck/jobwatch/internal/listing"
	"github.com/mbeck/jobwatch/internal/session"
	"github.com/mbeck/jobwatch/internal/status"
	"github.com/mbeck/jobwatch/internal/watcher"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	// --------------------
	// Load + validate config (file, then env, then defaults)
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	config.ApplyEnv(cfg)
	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	w := cfg.Watcher
	logger := newLogger(w.LogLevel)

	// --------------------
	// Browser + session
	// --------------------

	eng, err := browser.New(context.Background(), browser.Config{Headless: *w.Browser.Headless})
	if err != nil {
		logger.Error("browser launch failed", "err", err)
		return 1
	}
	defer eng.Close()

	sess := session.New(session.Config{
		BaseURL:     w.Portal.BaseURL,
		Username:    w.Portal.Username,
		Password:    w.Portal.Password,
		StoragePath: w.Portal.StorageState,
	}, eng, logger)

	if _, err := sess.Restore(); err != nil {
		// A broken blob just means a fresh login below.
		logger.Warn("session restore failed", "err", err)
	}

	fetcher := listing.NewFetcher(eng, w.Portal.BaseURL, logger)

	// Initial navigation and authentication. Failures here are fatal;
	// everything after this point self-heals instead.
	if err := eng.Navigate(fetcher.ListingURL()); err != nil {
		logger.Error("initial navigation failed", "err", err)
		return 1
	}
	initCtx, cancelInit := context.WithTimeout(context.Background(), time.Minute)
	defer cancelInit()
	if err := sess.EnsureAuthenticated(initCtx); err != nil {
		logger.Error("initial authentication failed", "err", err)
		return 1
	}

	// --------------------
	// Stats + health endpoint
	// --------------------

	stats := status.NewStats()
	stats.SetReady(true)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", w.Health.Port),
		Handler: status.NewHandler(stats, sess.LoggedIn, w.Portal.StorageState),
	}
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe()
	}()

	// --------------------
	// Watcher loop + keep-alive
	// --------------------

	engine := accept.New(accept.NewPageSubmitter(eng), logger)
	loop := watcher.New(watcher.Config{
		ListingURL:   fetcher.ListingURL(),
		PollInterval: time.Duration(w.Poll.IntervalMs) * time.Millisecond,
		MaxPerTick:   w.Poll.MaxPerTick,
	}, eng, sess, fetcher, engine, stats, logger)
	loop.Start()

	ka := keepalive.New(keepalive.NewPageProber(eng, w.Portal.BaseURL), logger)
	ka.Start(w.KeepAlive.IntervalMin)

	logger.Info("jobwatch running",
		"listing", fetcher.ListingURL(),
		"poll_ms", w.Poll.IntervalMs,
		"max_per_tick", w.Poll.MaxPerTick,
		"port", w.Health.Port)

	// --------------------
	// Wait for signal (clean exit) or health server failure (fatal)
	// --------------------

	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	exit := 0
	select {
	case sig := <-sigc:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", "err", err)
			exit = 1
		}
	}

	// --------------------
	// Graceful drain
	// --------------------

	ka.Stop()
	loop.Stop()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = srv.Shutdown(shutCtx)

	return exit
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
