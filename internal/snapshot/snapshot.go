package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"clinviz/internal/errors"
)

// Options controls headless-browser widget capture.
type Options struct {
	Width    int
	Height   int
	Timeout  time.Duration
	Headless bool
	// FullPage captures the whole scroll height instead of the viewport.
	FullPage bool
}

// DefaultOptions returns the standard capture settings.
func DefaultOptions() Options {
	return Options{
		Width:    1200,
		Height:   800,
		Timeout:  30 * time.Second,
		Headless: true,
	}
}

// Capture opens an HTML widget in headless Chrome and writes a PNG snapshot.
// htmlPath may be a local file or an http(s) URL.
func Capture(ctx context.Context, logger *slog.Logger, htmlPath, outPath string, opts Options) error {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.NewValidationError("snapshot dimensions must be positive")
	}

	target, err := targetURL(htmlPath)
	if err != nil {
		return err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	logger.InfoContext(ctx, "capturing widget snapshot",
		slog.String("widget", htmlPath),
		slog.String("out", outPath),
		slog.Int("width", opts.Width),
		slog.Int("height", opts.Height))

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
	}
	if opts.FullPage {
		tasks = append(tasks, chromedp.FullScreenshot(&buf, 100))
	} else {
		tasks = append(tasks, chromedp.CaptureScreenshot(&buf))
	}

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return errors.NewRenderError(fmt.Sprintf("snapshot of %s failed", htmlPath), err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return errors.NewStorageError("failed to create snapshot directory", err)
	}
	if err := os.WriteFile(outPath, buf, 0644); err != nil {
		return errors.NewStorageError("failed to write snapshot", err)
	}
	logger.InfoContext(ctx, "snapshot written",
		slog.String("out", outPath),
		slog.Int("bytes", len(buf)))
	return nil
}

// targetURL turns a local widget path into a file:// URL; http(s) URLs pass
// through unchanged.
func targetURL(htmlPath string) (string, error) {
	if u, err := url.Parse(htmlPath); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return htmlPath, nil
	}
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("invalid widget path %s", htmlPath))
	}
	if _, err := os.Stat(abs); err != nil {
		return "", errors.NewNotFoundError(fmt.Sprintf("widget %s", htmlPath))
	}
	return "file://" + filepath.ToSlash(abs), nil
}
