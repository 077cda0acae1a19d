package config

import "runtime"

// WorldConfig controls file discovery.
type WorldConfig struct {
	// MaxConcurrency caps concurrent parse workers (tree-sitter).
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency,omitempty"`
	// IgnorePatterns skips matching paths/dirs (relative to the scanned directory).
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns,omitempty"`
	// TestGlobs selects files when expanding directories.
	TestGlobs []string `yaml:"test_globs" json:"test_globs,omitempty"`
	// RootMarkers stop the upward conftest.py search.
	RootMarkers []string `yaml:"root_markers" json:"root_markers,omitempty"`
}

// DefaultWorldConfig returns defaults for file discovery.
func DefaultWorldConfig() WorldConfig {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 2 {
		workers = 2
	}
	return WorldConfig{
		MaxConcurrency: workers,
		IgnorePatterns: []string{
			".git",
			".fixturelint",
			".venv",
			"venv",
			"__pycache__",
			".mypy_cache",
			".pytest_cache",
			".tox",
			"node_modules",
			"build",
			"dist",
			"*.egg-info",
		},
		TestGlobs: []string{
			"test_*.py",
			"*_test.py",
			"conftest.py",
		},
		RootMarkers: []string{
			"pytest.ini",
			"pyproject.toml",
			"setup.cfg",
			"tox.ini",
			".git",
		},
	}
}
