// internal/watcher/loop.go

// Package watcher drives the tick cycle: position on the listing page,
// fetch a snapshot, run the accept engine, fold the result into stats,
// sleep with jitter, repeat. No iteration failure is fatal.
package watcher

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mbeck/jobwatch/internal/accept"
	"github.com/mbeck/jobwatch/internal/listing"
	"github.com/mbeck/jobwatch/internal/status"
)

// maxJitter desynchronizes the poll cadence from any server-side rate
// windows. Uniform random, added to every sleep.
const maxJitter = 150 * time.Millisecond

// Fetcher supplies one listing snapshot per tick.
type Fetcher interface {
	FetchSnapshot() (listing.Snapshot, error)
}

// TickEngine runs the filter/dedupe/submit step.
type TickEngine interface {
	RunTick(ctx context.Context, snap listing.Snapshot, seen *accept.SeenSet, maxPerTick int) accept.TickResult
}

// Authenticator recovers the session when a tick detects expiry.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) error
	Invalidate()
}

// Navigator is the slice of the browser the loop needs to stay
// positioned on the listing page.
type Navigator interface {
	Navigate(url string) error
	CurrentURL() (string, error)
}

// Config is the loop's immutable configuration.
type Config struct {
	ListingURL   string
	PollInterval time.Duration
	MaxPerTick   int
}

// Loop is the single watcher task. All tick work runs sequentially on
// one goroutine; the browser's own lock serializes it against the
// keep-alive prober.
type Loop struct {
	cfg     Config
	nav     Navigator
	auth    Authenticator
	fetcher Fetcher
	engine  TickEngine
	stats   *status.Stats
	log     *slog.Logger

	// seen lives for the whole watcher session, constructed here and
	// passed explicitly into every tick.
	seen *accept.SeenSet

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

func New(cfg Config, nav Navigator, auth Authenticator, fetcher Fetcher, engine TickEngine, stats *status.Stats, log *slog.Logger) *Loop {
	return &Loop{
		cfg:     cfg,
		nav:     nav,
		auth:    auth,
		fetcher: fetcher,
		engine:  engine,
		stats:   stats,
		log:     log,
		seen:    accept.NewSeenSet(),
	}
}

// Start launches the loop. No-op when already running.
func (l *Loop) Start() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run()
}

// Stop requests a cooperative shutdown and waits for the in-flight
// iteration to finish. Bounded by the iteration's own operation
// timeouts, not by an extra deadline.
func (l *Loop) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	close(l.stop)
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	ctx := context.Background()
	for l.running.Load() {
		l.tick(ctx)
		l.stats.MarkTick(time.Now())

		select {
		case <-l.stop:
			return
		case <-time.After(l.cfg.PollInterval + jitter()):
		}
	}
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(maxJitter)))
}

// tick runs one iteration. Every failure path returns instead of
// raising; the loop always continues.
func (l *Loop) tick(ctx context.Context) {
	url, err := l.nav.CurrentURL()
	if err != nil || !strings.HasPrefix(url, l.cfg.ListingURL) {
		if err := l.nav.Navigate(l.cfg.ListingURL); err != nil {
			// Sleep-and-retry on the next tick.
			l.log.Warn("listing navigation failed, retrying next tick", "err", err)
			return
		}
	}

	snap, err := l.fetcher.FetchSnapshot()
	if err != nil {
		l.stats.RecordError(err)
		l.log.Warn("tick failed", "err", err)
		if err := l.auth.EnsureAuthenticated(ctx); err != nil {
			l.log.Warn("recovery login failed", "err", err)
		}
		return
	}

	res := l.engine.RunTick(ctx, snap, l.seen, l.cfg.MaxPerTick)
	if res.NeedLogin {
		// Expiry, not an error: counters stay untouched.
		l.log.Info("listing bounced to login page, re-authenticating")
		l.auth.Invalidate()
		if err := l.auth.EnsureAuthenticated(ctx); err != nil {
			l.stats.RecordError(err)
			l.log.Warn("re-authentication failed", "err", err)
		}
		return
	}

	l.stats.RecordTick(res.Accepted, res.Tried, res.Errors, res.LastAcceptKey)
	if res.Tried > 0 || res.Errors > 0 {
		l.log.Info("tick",
			"accepted", res.Accepted,
			"tried", res.Tried,
			"errors", res.Errors,
			"seen", l.seen.Len())
	}
}
