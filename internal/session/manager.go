// internal/session/manager.go

// Package session owns the authenticated portal session: the login flow,
// validity probing, and persistence of the session blob. Login state is
// an implied input of every other portal operation, so the manager is
// the only component allowed to mutate it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mbeck/jobwatch/internal/config"
)

var (
	// ErrMissingCredentials is fatal at startup; there is nothing to retry.
	ErrMissingCredentials = errors.New("session: username and password required")

	// ErrLoginFailed means the portal kept us on the login page past the
	// submit deadline. Fatal during startup, recoverable mid-run.
	ErrLoginFailed = errors.New("session: still on login page after submit")
)

// State tracks the login state machine. There is no terminal state; the
// manager can cycle LoggedIn -> LoggingIn indefinitely on expiry.
type State int

const (
	StateLoggedOut State = iota
	StateLoggingIn
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggingIn:
		return "logging-in"
	case StateLoggedIn:
		return "logged-in"
	default:
		return "logged-out"
	}
}

// Login page selectors and timing.
const (
	usernameSelector = `input[name="username"]`
	passwordSelector = `input[name="password"]`

	// consentSelector dismisses the cookie/consent overlay that covers
	// the login form on a fresh browser profile.
	consentSelector = `#cookie-accept`
	consentTimeout  = 1500 * time.Millisecond

	defaultLoginTimeout = 8 * time.Second
	defaultSettlePoll   = 250 * time.Millisecond
)

// submitFormScript submits the login form through its own native submit
// mechanism. No generic fallback: if the form is missing we fail rather
// than click around.
const submitFormScript = `(() => {
	const field = document.querySelector('input[name="password"]');
	const form = field && field.form;
	if (!form) return false;
	form.requestSubmit();
	return true;
})()`

const settledScript = `document.readyState === "complete"`

// PageEngine is the slice of the browser the manager needs.
type PageEngine interface {
	Navigate(url string) error
	CurrentURL() (string, error)
	Click(selector string, timeout time.Duration) error
	SendKeys(selector, value string) error
	Evaluate(script string, out any) error
	ElementCount(selector string) (int, error)
	SaveCookies(path string) error
	RestoreCookies(path string) error
}

// Config is the manager's immutable configuration.
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	StoragePath string
}

// Manager drives the login flow and tracks session validity.
type Manager struct {
	cfg Config
	eng PageEngine
	log *slog.Logger

	mu    sync.Mutex
	state State

	loginTimeout time.Duration
	settlePoll   time.Duration
}

func New(cfg Config, eng PageEngine, log *slog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		eng:          eng,
		log:          log,
		state:        StateLoggedOut,
		loginTimeout: defaultLoginTimeout,
		settlePoll:   defaultSettlePoll,
	}
}

// State returns the current login state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LoggedIn reports whether the session is currently considered valid.
func (m *Manager) LoggedIn() bool {
	return m.State() == StateLoggedIn
}

// Invalidate marks the session invalid, forcing the next
// EnsureAuthenticated call to run the login flow.
func (m *Manager) Invalidate() {
	m.setState(StateLoggedOut)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		m.log.Debug("session state", "from", prev.String(), "to", s.String())
	}
}

// Restore loads a persisted session blob when one exists. The session is
// then tentatively valid; the next EnsureAuthenticated probe decides
// whether it actually still is.
func (m *Manager) Restore() (bool, error) {
	if _, err := os.Stat(m.cfg.StoragePath); err != nil {
		return false, nil
	}
	if err := m.eng.RestoreCookies(m.cfg.StoragePath); err != nil {
		return false, fmt.Errorf("session restore: %w", err)
	}
	m.setState(StateLoggedIn)
	m.log.Info("session blob restored", "path", m.cfg.StoragePath)
	return true, nil
}

// EnsureAuthenticated makes the session valid, logging in when needed.
// Idempotent: with a valid session and no login page in sight it is a
// no-op.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	if m.State() == StateLoggedIn {
		needs, err := m.loginNeeded()
		if err != nil {
			m.log.Warn("session probe failed", "err", err)
			needs = true
		}
		if !needs {
			return nil
		}
		m.log.Info("session expired, re-authenticating")
	}
	return m.Login(ctx)
}

// loginNeeded probes current page state: being on the login path or a
// visible username field both mean the session bounced.
func (m *Manager) loginNeeded() (bool, error) {
	url, err := m.eng.CurrentURL()
	if err != nil {
		return true, err
	}
	if strings.Contains(url, config.LoginPath) {
		return true, nil
	}
	n, err := m.eng.ElementCount(usernameSelector)
	if err != nil {
		return true, err
	}
	return n > 0, nil
}

// Login runs the full login flow: navigate, clear the consent overlay,
// fill credentials, native form submit, then wait for navigation away
// from the login path. On success the session blob is persisted.
func (m *Manager) Login(ctx context.Context) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return ErrMissingCredentials
	}

	m.setState(StateLoggingIn)

	loginURL := m.cfg.BaseURL + config.LoginPath
	if err := m.eng.Navigate(loginURL); err != nil {
		m.setState(StateLoggedOut)
		return fmt.Errorf("session: open login page: %w", err)
	}

	// Consent overlay is best-effort: absent on warm profiles.
	if err := m.eng.Click(consentSelector, consentTimeout); err == nil {
		m.log.Debug("consent overlay dismissed")
	}

	if err := m.eng.SendKeys(usernameSelector, m.cfg.Username); err != nil {
		m.setState(StateLoggedOut)
		return fmt.Errorf("session: fill username: %w", err)
	}
	if err := m.eng.SendKeys(passwordSelector, m.cfg.Password); err != nil {
		m.setState(StateLoggedOut)
		return fmt.Errorf("session: fill password: %w", err)
	}

	var submitted bool
	if err := m.eng.Evaluate(submitFormScript, &submitted); err != nil {
		m.setState(StateLoggedOut)
		return fmt.Errorf("session: submit login form: %w", err)
	}
	if !submitted {
		m.setState(StateLoggedOut)
		return fmt.Errorf("%w: login form not found", ErrLoginFailed)
	}

	if err := m.waitLoggedIn(ctx); err != nil {
		m.setState(StateLoggedOut)
		return err
	}

	if err := m.eng.SaveCookies(m.cfg.StoragePath); err != nil {
		// Session works either way; only reuse across restarts is lost.
		m.log.Warn("session blob not persisted", "err", err)
	}

	m.setState(StateLoggedIn)
	m.log.Info("login succeeded")
	return nil
}

// waitLoggedIn polls for one of two success signals until the login
// deadline: the URL leaving the login path, or navigation settling with
// the login form gone.
func (m *Manager) waitLoggedIn(ctx context.Context) error {
	deadline := time.Now().Add(m.loginTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.settlePoll):
		}

		if url, err := m.eng.CurrentURL(); err == nil && !strings.Contains(url, config.LoginPath) {
			return nil
		}

		var settled bool
		if err := m.eng.Evaluate(settledScript, &settled); err != nil || !settled {
			continue
		}
		if n, err := m.eng.ElementCount(passwordSelector); err == nil && n == 0 {
			return nil
		}
	}
	return ErrLoginFailed
}
