// internal/browser/cookies.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// SaveCookies serializes the tab's cookie jar to path. The file is the
// opaque session blob; its mere presence signals a reusable session.
func (e *Engine) SaveCookies(path string) error {
	var cookies []*network.Cookie

	err := e.run(10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		cs, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = cs
		return nil
	}))
	if err != nil {
		return fmt.Errorf("browser: read cookies: %w", err)
	}

	raw, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("browser: encode cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("browser: storage dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("browser: write storage state: %w", err)
	}
	return nil
}

// RestoreCookies loads a previously saved blob into the tab's cookie jar.
func (e *Engine) RestoreCookies(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("browser: read storage state: %w", err)
	}
	var cookies []*network.Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return fmt.Errorf("browser: decode storage state: %w", err)
	}

	err = e.run(10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("browser: restore cookies: %w", err)
	}
	return nil
}
