package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved directory layout for a run. All paths are absolute
// once Resolve has been called.
type Paths struct {
	BaseDir   string
	DataDir   string
	SiteDir   string
	WidgetDir string
	ImageDir  string
	TablesDir string
	LogsDir   string
}

// ResolvePaths builds the directory layout rooted at the configured site and
// data directories, relative paths anchored at the current working directory.
func ResolvePaths(cfg *Config) (*Paths, error) {
	base, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	siteDir := abs(cfg.Paths.SiteDir)
	p := &Paths{
		BaseDir:   base,
		DataDir:   abs(cfg.Paths.DataDir),
		SiteDir:   siteDir,
		WidgetDir: filepath.Join(siteDir, "widgets"),
		ImageDir:  filepath.Join(siteDir, "img"),
		TablesDir: abs(cfg.Paths.TablesDir),
		LogsDir:   abs(cfg.Paths.LogsDir),
	}
	return p, nil
}

// EnsureDirectories creates all output directories that reports write into.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.SiteDir, p.WidgetDir, p.ImageDir, p.TablesDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
