package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"fixturelint/internal/config"
	"fixturelint/internal/world"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseModule(t *testing.T, src string) *world.Module {
	t.Helper()
	mod, err := world.NewPythonParser().Parse(context.Background(), "test_src.py", []byte(src))
	require.NoError(t, err)
	return mod
}

func checkSource(t *testing.T, cfg config.AnalysisConfig, src string) []Diagnostic {
	t.Helper()
	return NewChecker(cfg).CheckModule(parseModule(t, src), nil)
}

func codes(diags []Diagnostic) []Code {
	out := make([]Code, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestCheckFile_Examples(t *testing.T) {
	tests := []struct {
		file string
		want []Diagnostic
	}{
		{
			file: "test_sample.py",
			want: []Diagnostic{
				{Code: CodeMissingArgumentType, Line: 10, Function: "sample_string_2", Argument: "sample_string"},
				{Code: CodeFixtureMissingReturnType, Line: 15, Fixture: "sample_missing_return_type"},
				{Code: CodeIncorrectArgumentType, Line: 19, Function: "test_hello", Argument: "sample_string",
					Expected: "str", Provided: "int"},
				{Code: CodeMissingArgumentType, Line: 19, Function: "test_hello", Argument: "sample_string_2"},
			},
		},
		{
			file: "test_sample_complex.py",
			want: []Diagnostic{
				{Code: CodeIncorrectArgumentType, Line: 25, Function: "test_hello_5", Argument: "sample_nested_dict",
					Expected: "List[List[Dict[int, str]]]", Provided: "Dict"},
				{Code: CodeIncorrectArgumentType, Line: 29, Function: "test_hello_6", Argument: "sample_nested_list",
					Expected: "List[List[int]]", Provided: "List[List]"},
			},
		},
		{
			file: "folder/test_empty.py",
			want: []Diagnostic{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join("testdata", "python-examples", filepath.FromSlash(tt.file))
			runner := NewRunner(config.DefaultConfig())
			results, err := runner.Run(context.Background(), []string{path})
			require.NoError(t, err)
			require.Len(t, results, 1)

			if diff := cmp.Diff(tt.want, results[0].Diagnostics); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheck_FixtureDoesNotExist(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
def test_a(missing: int, also_missing):
    pass
`)
	require.Len(t, diags, 2)
	assert.Equal(t, CodeMissingArgumentType, diags[0].Code)
	assert.Equal(t, "also_missing", diags[0].Argument)
	assert.Equal(t, CodeFixtureDoesNotExist, diags[1].Code)
	assert.Equal(t, "missing", diags[1].Argument)
}

func TestCheck_SkippedParameters(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
import pytest


@pytest.fixture
def value() -> int:
    return 1


@pytest.mark.parametrize("a, b", [(1, 2)])
@pytest.mark.parametrize(argnames="c", argvalues=[3])
def test_params(a, b, c, value: int, tmp_path, request, flag=False, *args, **kwargs):
    pass


class TestThing:
    def test_method(self, value: int):
        pass


class Helper:
    def test_not_collected(self, value: str):
        pass
`)
	assert.Empty(t, diags)
}

func TestCheck_FixtureAliasAndOverride(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
import pytest
from pytest import fixture


@pytest.fixture(name="client")
def make_client() -> str:
    return "c"


@fixture
def number() -> int:
    return 1


def test_alias(client: bytes, number: int, make_client: str):
    pass
`)
	want := []Code{CodeIncorrectArgumentType, CodeFixtureDoesNotExist}
	if diff := cmp.Diff(want, codes(diags)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "client", diags[0].Argument)
	assert.Equal(t, "str", diags[0].Expected)
	assert.Equal(t, "bytes", diags[0].Provided)
	assert.Equal(t, "make_client", diags[1].Argument)
}

func TestCheck_ClassFixturesAreClassLocal(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
import pytest


class TestA:
    @pytest.fixture
    def local(self) -> int:
        return 1

    def test_ok(self, local: int):
        pass


def test_outside(local: int):
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, CodeFixtureDoesNotExist, diags[0].Code)
	assert.Equal(t, "test_outside", diags[0].Function)
}

func TestCheck_ClassParametrize(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
import pytest


@pytest.mark.parametrize("x", [1, 2])
class TestThing:
    def test_a(self, x: int):
        pass

    def test_b(self, y: int):
        pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, CodeFixtureDoesNotExist, diags[0].Code)
	assert.Equal(t, "y", diags[0].Argument)
}

func TestCheck_HelperClassesAreNotCollected(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
import pytest


class Helper:
    @pytest.fixture
    def thing(self):
        return 1

    def test_like(self, other):
        pass
`)
	assert.Empty(t, diags)
}

func TestCheck_BuiltinWithConfiguredType(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	cfg.BuiltinFixtures["tmp_path"] = "Path"

	diags := checkSource(t, cfg, `
def test_paths(tmp_path: str):
    pass


def test_paths_ok(tmp_path: Path):
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, CodeIncorrectArgumentType, diags[0].Code)
	assert.Equal(t, "Path", diags[0].Expected)
}

func TestCheck_SelectIgnoreAndNoqa(t *testing.T) {
	src := `
import pytest


@pytest.fixture
def untyped():
    return 1


def test_a(untyped, other: int):
    pass


def test_b(untyped):  # noqa: FX003
    pass


def test_c(  # noqa
    untyped,
):
    pass
`
	all := checkSource(t, config.DefaultAnalysisConfig(), src)
	want := []Code{CodeFixtureMissingReturnType, CodeMissingArgumentType, CodeFixtureDoesNotExist}
	if diff := cmp.Diff(want, codes(all)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}

	cfg := config.DefaultAnalysisConfig()
	cfg.Ignore = []string{"FX001"}
	ignored := checkSource(t, cfg, src)
	assert.Equal(t, []Code{CodeMissingArgumentType, CodeFixtureDoesNotExist}, codes(ignored))

	cfg = config.DefaultAnalysisConfig()
	cfg.Select = []string{"FX004"}
	selected := checkSource(t, cfg, src)
	assert.Equal(t, []Code{CodeFixtureDoesNotExist}, codes(selected))
}

func TestCheck_NoqaPlacement(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), `
def test_trailing(a):  # type: ignore  # noqa
    pass


def test_prefix_word(b):  # noqaxyz unrelated
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, CodeMissingArgumentType, diags[0].Code)
	assert.Equal(t, "b", diags[0].Argument)
}

func TestCheck_Unparsable(t *testing.T) {
	diags := checkSource(t, config.DefaultAnalysisConfig(), "def test_x(:\n    pass\n")
	require.Len(t, diags, 1)
	assert.Equal(t, CodeUnparsableFile, diags[0].Code)
	assert.Contains(t, diags[0].Message(), "could not be parsed")
}

func TestDiagnostic_Message(t *testing.T) {
	d := Diagnostic{
		Code:     CodeIncorrectArgumentType,
		Line:     3,
		Function: "test_hello",
		Argument: "sample_string",
		Expected: "str",
		Provided: "int",
	}
	assert.Equal(t, `3: FX002 argument "sample_string" of "test_hello" is annotated as "int" but fixture returns "str"`, d.String())
	assert.Equal(t, "IncorrectArgumentType", d.Code.Kind())
	assert.Equal(t, "test_hello", d.Subject())

	fx := Diagnostic{Code: CodeFixtureMissingReturnType, Fixture: "f"}
	assert.Equal(t, "f", fx.Subject())
}

func TestKnownCodesMatchConfig(t *testing.T) {
	ours := []Code{
		CodeFixtureMissingReturnType,
		CodeIncorrectArgumentType,
		CodeMissingArgumentType,
		CodeFixtureDoesNotExist,
		CodeUnparsableFile,
	}
	for _, c := range ours {
		assert.True(t, config.IsKnownCode(string(c)), "code %s unknown to config", c)
	}
	assert.Len(t, config.KnownCodes, len(ours))
}
