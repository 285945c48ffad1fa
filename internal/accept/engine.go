// internal/accept/engine.go
package accept

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mbeck/jobwatch/internal/listing"
)

// submitGap is the minimum spacing between two accept submissions.
// Submissions are strictly sequential; the limiter only paces them.
const submitGap = 750 * time.Millisecond

// TickResult aggregates one tick's outcome. Immutable once returned.
type TickResult struct {
	Accepted int
	Tried    int
	Errors   int

	// LastAcceptKey is the key of the most recent successful accept,
	// empty when this tick accepted nothing.
	LastAcceptKey string

	// NeedLogin is set when the snapshot was a login bounce; all
	// counters are zero in that case.
	NeedLogin bool
}

// Submitter posts one entry's accept form.
type Submitter interface {
	Submit(e listing.Entry) error
}

// Engine runs the filter/dedupe/submit step of each tick.
type Engine struct {
	sub     Submitter
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(sub Submitter, log *slog.Logger) *Engine {
	return &Engine{
		sub:     sub,
		limiter: rate.NewLimiter(rate.Every(submitGap), 1),
		log:     log,
	}
}

// RunTick processes one snapshot. Unseen entries are taken in snapshot
// order, at most maxPerTick of them, and submitted one at a time. Every
// key the engine evaluates is marked seen — including failed submissions
// (at most one accept attempt per key per process lifetime) and entries
// beyond the batch cut.
func (e *Engine) RunTick(ctx context.Context, snap listing.Snapshot, seen *SeenSet, maxPerTick int) TickResult {
	if snap.NeedLogin {
		return TickResult{NeedLogin: true}
	}

	var res TickResult

	var batch []listing.Entry
	for _, en := range snap.Entries {
		if en.Key == "" || seen.Has(en.Key) {
			continue
		}
		if len(batch) < maxPerTick {
			batch = append(batch, en)
		}
	}

	for _, en := range batch {
		// The fetcher already excludes cancel-bearing rows; this check is
		// the last line of defense and must stay.
		if en.HasCancel {
			seen.Add(en.Key)
			continue
		}
		if !en.HasAccept || en.Form.AcceptName == "" {
			res.Errors++
			seen.Add(en.Key)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			res.Errors++
			seen.Add(en.Key)
			continue
		}

		res.Tried++
		if err := e.sub.Submit(en); err != nil {
			res.Errors++
			e.log.Warn("accept submit failed", "key", en.Key, "err", err)
		} else {
			res.Accepted++
			res.LastAcceptKey = en.Key
			e.log.Info("accepted posting", "key", en.Key)
		}
		seen.Add(en.Key)
	}

	// Every scanned entry is marked seen, not just the attempted batch:
	// rows beyond the cut are dropped for good rather than retried next
	// tick. Deliberate rate-limit-then-drop policy; postings surfacing
	// after the cutoff are treated as evaluated.
	for _, en := range snap.Entries {
		seen.Add(en.Key)
	}

	return res
}
