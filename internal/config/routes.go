// internal/config/routes.go
package config

// Portal routes, relative to base_url. These are fixed by the portal and
// MUST NOT be configurable.
const (
	LoginPath = "/login"

	// ProfilePath is a low-cost authenticated page, used for keep-alive.
	ProfilePath = "/intern/meine-daten"

	// ListingPath serves the job listing (GET) and the accept-form
	// actions (POST).
	ListingPath = "/intern/meine-jobs"
)
