// internal/watcher/loop_test.go
package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mbeck/jobwatch/internal/accept"
	"github.com/mbeck/jobwatch/internal/listing"
	"github.com/mbeck/jobwatch/internal/status"
)

const listingURL = "https://portal.example-jobs.de/intern/meine-jobs"

// ---- fakes ----

type fakeNav struct {
	url       string
	navErr    error
	navigated []string
}

func (f *fakeNav) CurrentURL() (string, error) { return f.url, nil }

func (f *fakeNav) Navigate(url string) error {
	if f.navErr != nil {
		return f.navErr
	}
	f.navigated = append(f.navigated, url)
	f.url = url
	return nil
}

type fakeAuth struct {
	ensured     atomic.Int64
	invalidated atomic.Int64
	err         error
}

func (f *fakeAuth) EnsureAuthenticated(context.Context) error {
	f.ensured.Add(1)
	return f.err
}

func (f *fakeAuth) Invalidate() { f.invalidated.Add(1) }

type fakeFetcher struct {
	snap  listing.Snapshot
	err   error
	calls atomic.Int64
}

func (f *fakeFetcher) FetchSnapshot() (listing.Snapshot, error) {
	f.calls.Add(1)
	return f.snap, f.err
}

type fakeTickEngine struct {
	res   accept.TickResult
	calls int
}

func (f *fakeTickEngine) RunTick(_ context.Context, _ listing.Snapshot, _ *accept.SeenSet, _ int) accept.TickResult {
	f.calls++
	return f.res
}

type fakeSubmitter struct {
	submitted []string
}

func (f *fakeSubmitter) Submit(e listing.Entry) error {
	f.submitted = append(f.submitted, e.Key)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoop(nav *fakeNav, auth *fakeAuth, fetcher Fetcher, engine TickEngine, stats *status.Stats) *Loop {
	return New(Config{
		ListingURL:   listingURL,
		PollInterval: 5 * time.Millisecond,
		MaxPerTick:   3,
	}, nav, auth, fetcher, engine, stats, discardLogger())
}

// ---- tests ----

func TestTick_FoldsStats(t *testing.T) {
	stats := status.NewStats()
	eng := &fakeTickEngine{res: accept.TickResult{Accepted: 1, Tried: 2, Errors: 1, LastAcceptKey: "#5"}}
	l := newTestLoop(&fakeNav{url: listingURL}, &fakeAuth{}, &fakeFetcher{}, eng, stats)

	l.tick(context.Background())

	snap := stats.Snapshot()
	if snap.AcceptedTotal != 1 || snap.TriedTotal != 2 || snap.ErrorsTotal != 1 {
		t.Fatalf("totals = %d/%d/%d", snap.AcceptedTotal, snap.TriedTotal, snap.ErrorsTotal)
	}
	if snap.LastAcceptKey != "#5" {
		t.Fatalf("lastAcceptKey = %q", snap.LastAcceptKey)
	}
}

func TestTick_NeedLoginIsNotAnError(t *testing.T) {
	stats := status.NewStats()
	auth := &fakeAuth{}
	eng := &fakeTickEngine{res: accept.TickResult{NeedLogin: true}}
	l := newTestLoop(&fakeNav{url: listingURL}, auth, &fakeFetcher{}, eng, stats)

	l.tick(context.Background())

	if auth.invalidated.Load() != 1 || auth.ensured.Load() != 1 {
		t.Fatalf("re-auth not triggered: invalidated=%d ensured=%d", auth.invalidated.Load(), auth.ensured.Load())
	}
	snap := stats.Snapshot()
	if snap.ErrorsTotal != 0 || snap.AcceptedTotal != 0 || snap.TriedTotal != 0 {
		t.Fatalf("login bounce counted as work: %+v", snap)
	}
	if snap.LastError != "" {
		t.Fatalf("login bounce recorded as an error: %q", snap.LastError)
	}
}

func TestTick_FetchErrorRecovers(t *testing.T) {
	stats := status.NewStats()
	auth := &fakeAuth{}
	fetcher := &fakeFetcher{err: errors.New("listing fetch: connection reset")}
	l := newTestLoop(&fakeNav{url: listingURL}, auth, fetcher, &fakeTickEngine{}, stats)

	l.tick(context.Background())

	snap := stats.Snapshot()
	if snap.ErrorsTotal != 1 {
		t.Fatalf("errorsTotal = %d", snap.ErrorsTotal)
	}
	if snap.LastError == "" {
		t.Fatalf("lastError not recorded")
	}
	if auth.ensured.Load() != 1 {
		t.Fatalf("recovery re-auth not attempted")
	}
}

func TestTick_NavigatesWhenOffListing(t *testing.T) {
	nav := &fakeNav{url: "https://portal.example-jobs.de/login"}
	l := newTestLoop(nav, &fakeAuth{}, &fakeFetcher{}, &fakeTickEngine{}, status.NewStats())

	l.tick(context.Background())

	if len(nav.navigated) != 1 || nav.navigated[0] != listingURL {
		t.Fatalf("navigated = %v, want listing URL", nav.navigated)
	}
}

func TestTick_NavigationFailureIsRetryNotError(t *testing.T) {
	nav := &fakeNav{url: "about:blank", navErr: errors.New("timeout")}
	fetcher := &fakeFetcher{}
	stats := status.NewStats()
	l := newTestLoop(nav, &fakeAuth{}, fetcher, &fakeTickEngine{}, stats)

	l.tick(context.Background())

	if fetcher.calls.Load() != 0 {
		t.Fatalf("fetch attempted with no page")
	}
}

func TestLoop_StartStop(t *testing.T) {
	stats := status.NewStats()
	fetcher := &fakeFetcher{}
	l := newTestLoop(&fakeNav{url: listingURL}, &fakeAuth{}, fetcher, &fakeTickEngine{}, stats)

	l.Start()
	l.Start() // second Start is a no-op
	time.Sleep(40 * time.Millisecond)
	l.Stop()
	l.Stop() // second Stop must not panic or block

	n := fetcher.calls.Load()
	if n == 0 {
		t.Fatalf("loop never ticked")
	}
	if stats.Snapshot().LastTick.IsZero() {
		t.Fatalf("lastTick never stamped")
	}

	time.Sleep(20 * time.Millisecond)
	if fetcher.calls.Load() != n {
		t.Fatalf("loop ticked after Stop")
	}
}

func TestLoop_AtMostOnceAcrossTicks(t *testing.T) {
	entry := listing.Entry{
		Key:       "#1001",
		HasAccept: true,
		Form:      listing.Form{AcceptName: "annehmen", AcceptValue: "1", Fields: map[string]string{}},
	}
	fetcher := &fakeFetcher{snap: listing.Snapshot{Entries: []listing.Entry{entry}}}
	sub := &fakeSubmitter{}
	stats := status.NewStats()

	l := newTestLoop(&fakeNav{url: listingURL}, &fakeAuth{}, fetcher,
		accept.New(sub, discardLogger()), stats)

	// The same snapshot twice: the second tick must find nothing new.
	l.tick(context.Background())
	l.tick(context.Background())

	if len(sub.submitted) != 1 {
		t.Fatalf("submitted %d times, want exactly once", len(sub.submitted))
	}
	snap := stats.Snapshot()
	if snap.AcceptedTotal != 1 || snap.TriedTotal != 1 {
		t.Fatalf("totals = %d/%d, want 1/1", snap.AcceptedTotal, snap.TriedTotal)
	}
}

func TestJitter_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		j := jitter()
		if j < 0 || j >= maxJitter {
			t.Fatalf("jitter %v outside [0, %v)", j, maxJitter)
		}
	}
}
