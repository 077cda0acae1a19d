package world

import (
	"path"
	"path/filepath"
	"strings"

	"fixturelint/internal/config"
)

// ScannerConfig controls file discovery.
type ScannerConfig struct {
	// IgnorePatterns skips matching paths/dirs (relative to the scanned directory).
	// Supports simple dir names (e.g., ".venv") and glob patterns (e.g., "*.egg-info").
	IgnorePatterns []string
	// TestGlobs selects files by base name when expanding directories.
	TestGlobs []string
	// RootMarkers end the upward conftest.py search.
	RootMarkers []string
}

// NewScannerConfig adapts the user-facing world config.
func NewScannerConfig(c config.WorldConfig) ScannerConfig {
	return ScannerConfig{
		IgnorePatterns: c.IgnorePatterns,
		TestGlobs:      c.TestGlobs,
		RootMarkers:    c.RootMarkers,
	}
}

// DefaultScannerConfig returns the defaults from config.DefaultWorldConfig.
func DefaultScannerConfig() ScannerConfig {
	return NewScannerConfig(config.DefaultWorldConfig())
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isIgnoredRel reports whether a relative path should be ignored.
func isIgnoredRel(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		// Glob pattern
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			if ok, _ := path.Match(p, name); ok {
				return true
			}
			// Directory globs like "build/*"
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		if name == p {
			return true
		}
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// matchesTestGlob reports whether a file base name matches any test glob.
func matchesTestGlob(name string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}

// Ignored reports whether path, found while walking root, matches an
// ignore pattern.
func (c ScannerConfig) Ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return isIgnoredRel(rel, filepath.Base(path), c.IgnorePatterns)
}
