// Package browser implements the rendered-page fetch capability on top of a
// headless Chrome session driven by chromedp.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"avalanche-scraper/utils"
)

// renderDelay gives the archive SPA time to draw the danger-rating table
// after navigation; the page populates from an API call after load.
const renderDelay = 3 * time.Second

// Fetcher owns one headless browser session. It is not safe for concurrent
// navigations: callers fetch one page at a time.
type Fetcher struct {
	logger      *utils.Logger
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelBrow  context.CancelFunc
}

// New launches the browser session. Close must be called to tear it down.
func New(chromeBin string, logger *utils.Logger) (*Fetcher, error) {
	bin := findChromeBinary(chromeBin)
	if bin == "" {
		return nil, fmt.Errorf("browser: no Chrome/Chromium binary found (set CHROME_BIN)")
	}
	logger.Info("[browser] Using browser binary: %s", bin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.ExecPath(bin),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrow := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Fetcher{
		logger:      logger,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelBrow:  cancelBrow,
	}, nil
}

// FetchRenderedPage navigates the session to url and returns the rendered
// document HTML. The supplied context bounds the whole navigation; callers
// pass a per-fetch timeout.
func (f *Fetcher) FetchRenderedPage(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	// Tie the tab's lifetime to the caller's deadline.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-done:
		}
	}()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(renderDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("browser: fetch %s: %w", url, err)
	}

	f.logger.Debug("[browser] Fetched %s (%d bytes)", url, len(html))
	return html, nil
}

// Close tears down the browser session.
func (f *Fetcher) Close() {
	f.cancelBrow()
	f.cancelAlloc()
}

// findChromeBinary locates a Chrome/Chromium binary, preferring an explicit
// configuration over PATH lookup over well-known install locations.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
