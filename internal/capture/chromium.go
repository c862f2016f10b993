package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"

	appLog "classgrid/internal/log"
)

// Default capture parameters. DefaultWidth lands on the desktop side of the
// default breakpoint.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 900
	DefaultTimeoutSec = 30
)

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// URL of the schedule page, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG screenshot will be written, e.g.
	// "./cache/preview.png".
	OutputPath string

	// Width is both the viewport width and the width passed to the page,
	// so it decides the layout. Height is the initial viewport height;
	// the screenshot always covers the full page.
	Width  int
	Height int

	// Expand opens every session's details before capturing.
	Expand bool

	// Timeout bounds the entire capture operation. If zero, a sane default
	// (DefaultTimeoutSec) is used.
	Timeout time.Duration
}

// PageURL appends the width (and expand flag) to base.
func PageURL(base string, width int, expand bool) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("capture: invalid URL: %w", err)
	}
	q := u.Query()
	q.Set("width", strconv.Itoa(width))
	if expand {
		q.Set("expand", "1")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CaptureSchedulePNG launches a headless Chromium instance via chromedp,
// navigates to the schedule page, waits for it to signal that rendering is
// complete, and then writes a full-page PNG screenshot.
//
// Rendering-complete condition:
//   - The page root exposes a data-ready attribute:
//     <main data-ready="true" data-layout="desktop">
//   - This function will wait until `[data-ready="true"]` is visible before
//     taking the screenshot.
func CaptureSchedulePNG(parentCtx context.Context, opts CaptureOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	target, err := PageURL(opts.URL, opts.Width, opts.Expand)
	if err != nil {
		return err
	}

	// Create a new chromedp context.
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	// Apply timeout to the entire capture sequence.
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	appLog.Info("capture start", "url", target, "width", opts.Width)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: failed to create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("capture done", "output", opts.OutputPath, "bytes", len(png))
	return nil
}
