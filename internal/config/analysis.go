package config

// KnownCodes lists every diagnostic code fixturelint can emit.
var KnownCodes = []string{"FX001", "FX002", "FX003", "FX004", "FX005"}

// IsKnownCode reports whether code is a diagnostic code.
func IsKnownCode(code string) bool {
	for _, c := range KnownCodes {
		if c == code {
			return true
		}
	}
	return false
}

// AnalysisConfig controls fixture/test detection and which diagnostics are reported.
type AnalysisConfig struct {
	// TestPrefix marks test functions (and methods of Test* classes).
	TestPrefix string `yaml:"test_prefix" json:"test_prefix,omitempty"`
	// FixtureModules are module names whose `.fixture` decorator declares a fixture.
	FixtureModules []string `yaml:"fixture_modules" json:"fixture_modules,omitempty"`
	// BuiltinFixtures exist without being declared. A non-empty value is the
	// expected annotation; empty means any annotation is accepted.
	BuiltinFixtures map[string]string `yaml:"builtin_fixtures" json:"builtin_fixtures,omitempty"`
	// Select restricts output to these codes (empty = all).
	Select []string `yaml:"select" json:"select,omitempty"`
	// Ignore drops these codes.
	Ignore []string `yaml:"ignore" json:"ignore,omitempty"`
	// Conftest enables fixture lookup in conftest.py files.
	Conftest bool `yaml:"conftest" json:"conftest"`
}

// DefaultAnalysisConfig returns pytest's defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		TestPrefix:     "test_",
		FixtureModules: []string{"pytest", "pytest_asyncio"},
		BuiltinFixtures: map[string]string{
			"cache":                     "",
			"capfd":                     "",
			"capfdbinary":               "",
			"caplog":                    "",
			"capsys":                    "",
			"capsysbinary":              "",
			"doctest_namespace":         "",
			"monkeypatch":               "",
			"pytestconfig":              "",
			"record_property":           "",
			"record_testsuite_property": "",
			"recwarn":                   "",
			"request":                   "",
			"testdir":                   "",
			"tmp_path":                  "",
			"tmp_path_factory":          "",
			"tmpdir":                    "",
			"tmpdir_factory":            "",
		},
		Conftest: true,
	}
}

// CodeEnabled reports whether diagnostics with code should be reported.
func (c *AnalysisConfig) CodeEnabled(code string) bool {
	for _, ignored := range c.Ignore {
		if ignored == code {
			return false
		}
	}
	if len(c.Select) == 0 {
		return true
	}
	for _, selected := range c.Select {
		if selected == code {
			return true
		}
	}
	return false
}

// CacheConfig configures the on-disk result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path,omitempty"`
}
