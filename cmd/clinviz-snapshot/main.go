package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"clinviz/internal/snapshot"
)

func main() {
	widget := flag.String("widget", "", "widget HTML file or URL to capture")
	out := flag.String("out", "", "output PNG path (defaults to widget name with .png)")
	width := flag.Int("width", 1200, "viewport width")
	height := flag.Int("height", 800, "viewport height")
	timeout := flag.Duration("timeout", 30*time.Second, "capture timeout")
	fullPage := flag.Bool("full", false, "capture the full page height")
	headless := flag.Bool("headless", true, "run the browser headless")
	flag.Parse()

	if *widget == "" {
		slog.Error("no widget to capture, use -widget")
		flag.Usage()
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = strings.TrimSuffix(*widget, ".html") + ".png"
	}

	opts := snapshot.Options{
		Width:    *width,
		Height:   *height,
		Timeout:  *timeout,
		Headless: *headless,
		FullPage: *fullPage,
	}

	if err := snapshot.Capture(context.Background(), slog.Default(), *widget, outPath, opts); err != nil {
		slog.Error("snapshot failed", "widget", *widget, "error", err)
		os.Exit(1)
	}
	slog.Info("snapshot complete", "out", outPath)
}
