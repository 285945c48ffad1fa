// internal/listing/types.go

// Package listing turns the portal's job listing page into typed entries.
// Parsing is pure (markup in, entries out); fetching goes through the
// page engine so the request carries the live session's cookies.
package listing

// Form is the submission metadata of one entry's accept form.
type Form struct {
	// Action is the declared form action; empty means "current page URL".
	Action string

	// Method is the declared form method; empty means POST.
	Method string

	// Fields holds the form's non-submit input values (hidden tokens etc).
	Fields map[string]string

	// AcceptName/AcceptValue identify the accept control inside the form.
	// Both empty when the entry has no accept control.
	AcceptName  string
	AcceptValue string
}

// Entry is one job-posting row, reconstructed fresh every tick.
type Entry struct {
	// Key is the dedupe identity: the embedded numeric id when present,
	// else a location/date text fragment. Empty means not actionable.
	Key string

	RawText string

	HasAccept bool
	HasCancel bool

	Form Form
}

// Snapshot is the result of one listing fetch.
type Snapshot struct {
	// NeedLogin is set when the portal answered with its login page
	// instead of the listing. Entries is empty in that case.
	NeedLogin bool

	// Entries contains only actionable rows: an accept control present,
	// no cancel control, non-empty key. The cancel exclusion is a hard
	// safety invariant and is never relaxed.
	Entries []Entry
}
