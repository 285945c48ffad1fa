// internal/listing/fetcher.go
package listing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mbeck/jobwatch/internal/config"
)

// ErrBadStatus reports a non-2xx listing response.
var ErrBadStatus = errors.New("listing: bad status")

// PageEngine is the slice of the browser the fetcher needs.
type PageEngine interface {
	Evaluate(script string, out any) error
}

// fetchScript performs the no-cache listing request in the page context,
// so it carries the session cookies.
const fetchScript = `(async (url) => {
	const res = await fetch(url, { cache: "no-store", credentials: "include" });
	return { status: res.status, body: await res.text() };
})(%q)`

type fetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Fetcher retrieves and parses one listing snapshot per call.
type Fetcher struct {
	eng PageEngine
	url string
	log *slog.Logger
}

func NewFetcher(eng PageEngine, baseURL string, log *slog.Logger) *Fetcher {
	return &Fetcher{
		eng: eng,
		url: baseURL + config.ListingPath,
		log: log,
	}
}

// ListingURL is the absolute listing resource URL this fetcher targets.
func (f *Fetcher) ListingURL() string {
	return f.url
}

// FetchSnapshot fetches the listing and returns the actionable entries.
// A login bounce yields Snapshot{NeedLogin: true}, not an error.
func (f *Fetcher) FetchSnapshot() (Snapshot, error) {
	var res fetchResult
	script := fmt.Sprintf(fetchScript, f.url)
	if err := f.eng.Evaluate(script, &res); err != nil {
		return Snapshot{}, fmt.Errorf("listing fetch: %w", err)
	}
	if res.Status < 200 || res.Status >= 300 {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrBadStatus, res.Status)
	}

	if IsLoginPage(res.Body) {
		return Snapshot{NeedLogin: true}, nil
	}

	entries, err := Parse([]byte(res.Body))
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{}
	for _, e := range entries {
		// Hard safety invariant: rows with a cancel control never become
		// candidates, accept control or not.
		if e.HasCancel || !e.HasAccept || e.Key == "" {
			continue
		}
		snap.Entries = append(snap.Entries, e)
	}

	f.log.Debug("listing snapshot",
		"rows", len(entries),
		"actionable", len(snap.Entries))

	return snap, nil
}
