package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fixturelint/internal/analysis"
	"fixturelint/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conftestSrc = `import pytest


@pytest.fixture
def db() -> str:
    return "sqlite://"
`

const badTestSrc = `def test_db(db: int):
    pass


def test_missing(nothing):
    pass
`

const goodTestSrc = `def test_db(db: str):
    pass
`

// project lays out a small pytest project and returns its root.
func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"pytest.ini":             "[pytest]\n",
		"tests/conftest.py":      conftestSrc,
		"tests/test_bad.py":      badTestSrc,
		"tests/test_good.py":     goodTestSrc,
		"tests/.venv/test_x.py":  badTestSrc,
		"tests/helpers/utils.py": "def test_not_collected(x): pass\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCheck_ReportsProblems(t *testing.T) {
	root := project(t)
	bad := filepath.Join(root, "tests", "test_bad.py")

	code, out, _ := execute(t, "check", "--no-cache", bad)
	assert.Equal(t, exitProblems, code)
	assert.Contains(t, out, bad+`:1: FX002 argument "db" of "test_db" is annotated as "int" but fixture returns "str"`)
	assert.Contains(t, out, bad+`:5: FX003 argument "nothing" of "test_missing" is missing a type annotation`)
	assert.Contains(t, out, "Found 2 problems in 1 of 1 file")
}

func TestCheck_CleanFile(t *testing.T) {
	root := project(t)

	code, out, errOut := execute(t, "check", "--no-cache", filepath.Join(root, "tests", "test_good.py"))
	assert.Equal(t, exitClean, code, errOut)
	assert.Equal(t, "All types are correct!\n", out)
}

func TestRootCommandRunsCheck(t *testing.T) {
	root := project(t)

	bad := filepath.Join(root, "tests", "test_bad.py")
	good := filepath.Join(root, "tests", "test_good.py")

	code, out, errOut := execute(t, "--no-cache", bad, good)
	assert.Equal(t, exitProblems, code, errOut)
	assert.NotContains(t, errOut, "unknown command")
	assert.Contains(t, out, bad+":1: FX002")

	code, out, errOut = execute(t, "--no-cache", good)
	assert.Equal(t, exitClean, code, errOut)
	assert.Equal(t, "All types are correct!\n", out)

	code, out, _ = execute(t, "--no-cache", "-r", "--format", "json", root)
	assert.Equal(t, exitProblems, code)
	assert.Contains(t, out, `"code": "FX002"`)
}

func TestCheck_Recursive(t *testing.T) {
	root := project(t)

	code, out, _ := execute(t, "check", "--no-cache", "-r", "--format", "json", root)
	assert.Equal(t, exitProblems, code)

	var results []analysis.FileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))

	var names []string
	for _, r := range results {
		rel, err := filepath.Rel(root, r.Path)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"tests/conftest.py", "tests/test_bad.py", "tests/test_good.py"}, names)
}

func TestCheck_DirectoryWithoutRecursiveIsSkipped(t *testing.T) {
	root := project(t)

	code, out, errOut := execute(t, "check", "--no-cache", root)
	assert.Equal(t, exitClean, code)
	assert.Equal(t, "All types are correct!\n", out)
	assert.Contains(t, errOut, "skipping directory "+root+" (use --recursive)")
}

func TestCheck_SelectAndIgnore(t *testing.T) {
	root := project(t)
	bad := filepath.Join(root, "tests", "test_bad.py")

	code, out, _ := execute(t, "check", "--no-cache", "--select", "fx003", bad)
	assert.Equal(t, exitProblems, code)
	assert.Contains(t, out, "FX003")
	assert.NotContains(t, out, "FX002")

	code, out, _ = execute(t, "check", "--no-cache", "--ignore", "FX002,FX003", bad)
	assert.Equal(t, exitClean, code)
	assert.Equal(t, "All types are correct!\n", out)
}

func TestCheck_Errors(t *testing.T) {
	root := project(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"check", "--no-cache", filepath.Join(root, "nope.py")}, "does not exist"},
		{"unknown format", []string{"check", "--no-cache", "--format", "xml", root}, "unknown format"},
		{"unknown code", []string{"check", "--no-cache", "--select", "FX999", root}, "unknown diagnostic code"},
		{"missing config", []string{"check", "--config", filepath.Join(root, "absent.yaml"), root}, "absent.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := execute(t, tt.args...)
			assert.Equal(t, exitError, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestCheck_UsesCache(t *testing.T) {
	root := project(t)
	cachePath := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("FIXTURELINT_CACHE", cachePath)
	bad := filepath.Join(root, "tests", "test_bad.py")

	code, _, _ := execute(t, "check", bad)
	require.Equal(t, exitProblems, code)

	code, out, _ := execute(t, "check", bad)
	require.Equal(t, exitProblems, code)
	assert.Contains(t, out, "(1 cached)")

	code, out, _ = execute(t, "cache", "stats")
	require.Equal(t, exitClean, code)
	assert.Contains(t, out, "Entries: 1")
	assert.Contains(t, out, cachePath)

	code, out, _ = execute(t, "cache", "prune", "--older-than", "1h")
	require.Equal(t, exitClean, code)
	assert.Contains(t, out, "Pruned 0 entries")

	code, _, _ = execute(t, "cache", "clear")
	require.Equal(t, exitClean, code)

	_, out, _ = execute(t, "cache", "stats")
	assert.Contains(t, out, "Entries: 0")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixturelint.yaml")

	code, out, errOut := execute(t, "config", "init", "--config", path)
	require.Equal(t, exitClean, code, errOut)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Analysis.TestPrefix, cfg.Analysis.TestPrefix)

	code, _, errOut = execute(t, "config", "init", "--config", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "already exists")

	code, _, _ = execute(t, "config", "init", "--config", path, "--force")
	assert.Equal(t, exitClean, code)

	t.Setenv("FIXTURELINT_WORKERS", "3")
	code, out, _ = execute(t, "config", "show", "--config", path)
	require.Equal(t, exitClean, code)
	assert.Contains(t, out, "test_prefix: test_")
	assert.Contains(t, out, "max_concurrency: 3")
}

func TestConfigFileAppliesToCheck(t *testing.T) {
	root := project(t)
	path := filepath.Join(root, "fixturelint.yaml")

	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Analysis.Ignore = []string{"FX002"}
	require.NoError(t, cfg.Save(path))

	code, out, _ := execute(t, "check", "--config", path, filepath.Join(root, "tests", "test_bad.py"))
	assert.Equal(t, exitProblems, code)
	assert.NotContains(t, out, "FX002")
	assert.Contains(t, out, "FX003")
}

func TestVersion(t *testing.T) {
	code, out, _ := execute(t, "version")
	assert.Equal(t, exitClean, code)
	assert.True(t, strings.HasPrefix(out, "fixturelint "))
}
