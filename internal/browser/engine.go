// internal/browser/engine.go

// Package browser wraps a single headless Chrome tab behind a small,
// serialized API. Every caller goes through one mutex: the watcher loop
// and the keep-alive prober share this page, and interleaved navigation
// would corrupt page state.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const defaultOpTimeout = 30 * time.Second

// Engine owns the browser process and its single tab.
type Engine struct {
	mu sync.Mutex

	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Config is minimal launch config.
type Config struct {
	Headless bool
}

// New launches Chrome and opens one tab. The parent context bounds the
// browser lifetime.
func New(parent context.Context, cfg Config) (*Engine, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	e := &Engine{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	// Network domain is needed for cookie read/write.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		e.Close()
		return nil, fmt.Errorf("browser: enable network domain: %w", err)
	}

	return e, nil
}

// Close tears down the tab and the browser process.
func (e *Engine) Close() {
	if e.cancelTab != nil {
		e.cancelTab()
	}
	if e.cancelAlloc != nil {
		e.cancelAlloc()
	}
}

// run executes actions against the tab under the shared lock, bounded by
// timeout (defaultOpTimeout when zero).
func (e *Engine) run(timeout time.Duration, actions ...chromedp.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	ctx, cancel := context.WithTimeout(e.ctx, timeout)
	defer cancel()

	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the document body to be ready.
func (e *Engine) Navigate(url string) error {
	if err := e.run(0,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the tab's location.
func (e *Engine) CurrentURL() (string, error) {
	var url string
	if err := e.run(5*time.Second, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("browser: current url: %w", err)
	}
	return url, nil
}

// Evaluate runs script in the page and decodes the (awaited) result into
// out. Promise results are awaited before decoding.
func (e *Engine) Evaluate(script string, out any) error {
	err := e.run(0, chromedp.Evaluate(script, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return fmt.Errorf("browser: evaluate: %w", err)
	}
	return nil
}

// Click clicks the first element matching selector, bounded by timeout.
// A zero timeout uses the default.
func (e *Engine) Click(selector string, timeout time.Duration) error {
	if err := e.run(timeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// SendKeys focuses the element matching selector and types value.
func (e *Engine) SendKeys(selector, value string) error {
	if err := e.run(10*time.Second, chromedp.SendKeys(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: fill %s: %w", selector, err)
	}
	return nil
}

// ElementCount counts elements matching selector without waiting.
func (e *Engine) ElementCount(selector string) (int, error) {
	var n int
	script := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := e.run(5*time.Second, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("browser: count %s: %w", selector, err)
	}
	return n, nil
}
