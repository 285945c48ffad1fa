// internal/keepalive/scheduler.go

// Package keepalive issues a periodic low-cost authenticated request so
// the portal session does not idle out between polls. Strictly best
// effort: probe failures are logged and swallowed, never propagated.
package keepalive

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbeck/jobwatch/internal/config"
)

// Prober performs one keep-alive request.
type Prober interface {
	Probe() error
}

// Scheduler runs the prober on its own timer, independent of the poll
// cadence.
type Scheduler struct {
	prober Prober
	log    *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func New(prober Prober, log *slog.Logger) *Scheduler {
	return &Scheduler{prober: prober, log: log}
}

// Start begins probing every intervalMin minutes, floored at the
// configured minimum. No-op when already running.
func (s *Scheduler) Start(intervalMin int) {
	if intervalMin < config.MinKeepAliveMin {
		intervalMin = config.MinKeepAliveMin
	}
	s.startEvery(time.Duration(intervalMin) * time.Minute)
}

func (s *Scheduler) startEvery(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(interval, s.stop, s.done)
}

func (s *Scheduler) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.prober.Probe(); err != nil {
				s.log.Debug("keep-alive probe failed", "err", err)
			}
		}
	}
}

// Stop cancels the timer and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// ---- page prober ----

// Evaluator is the slice of the browser the prober needs.
type Evaluator interface {
	Evaluate(script string, out any) error
}

// probeScript issues a HEAD-style request with session cookies from the
// page context. The response body is never read.
const probeScript = `(async (url) => {
	const res = await fetch(url, { method: "HEAD", credentials: "include", cache: "no-store" });
	return res.status;
})(%q)`

// PageProber probes the profile page, the cheapest authenticated
// endpoint the portal has.
type PageProber struct {
	eng Evaluator
	url string
}

func NewPageProber(eng Evaluator, baseURL string) *PageProber {
	return &PageProber{eng: eng, url: baseURL + config.ProfilePath}
}

func (p *PageProber) Probe() error {
	var status int
	if err := p.eng.Evaluate(fmt.Sprintf(probeScript, p.url), &status); err != nil {
		return fmt.Errorf("keepalive probe: %w", err)
	}
	// Any response at all keeps the session warm; the status is not
	// interpreted here.
	return nil
}
