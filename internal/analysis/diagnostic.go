// Package analysis checks pytest files for fixture annotation problems:
// fixtures without return types, consuming parameters without annotations,
// annotations that differ from the fixture's return type, and annotated
// parameters that name no fixture.
package analysis

import (
	"fmt"
	"sort"
	"time"
)

// Code identifies a kind of diagnostic.
type Code string

const (
	CodeFixtureMissingReturnType Code = "FX001"
	CodeIncorrectArgumentType    Code = "FX002"
	CodeMissingArgumentType      Code = "FX003"
	CodeFixtureDoesNotExist      Code = "FX004"
	CodeUnparsableFile           Code = "FX005"
)

// Kind returns the descriptive name of the code.
func (c Code) Kind() string {
	switch c {
	case CodeFixtureMissingReturnType:
		return "FixtureMissingReturnType"
	case CodeIncorrectArgumentType:
		return "IncorrectArgumentType"
	case CodeMissingArgumentType:
		return "MissingArgumentType"
	case CodeFixtureDoesNotExist:
		return "FixtureDoesNotExist"
	case CodeUnparsableFile:
		return "UnparsableFile"
	}
	return string(c)
}

// Diagnostic is one problem found in a file.
type Diagnostic struct {
	Code     Code   `json:"code"`
	Line     int    `json:"line"`
	Function string `json:"function,omitempty"`
	Argument string `json:"argument,omitempty"`
	Fixture  string `json:"fixture,omitempty"`
	Expected string `json:"expected,omitempty"`
	Provided string `json:"provided,omitempty"`
}

// Message renders the diagnostic without location.
func (d Diagnostic) Message() string {
	switch d.Code {
	case CodeFixtureMissingReturnType:
		return fmt.Sprintf("fixture %q is missing a return type annotation", d.Fixture)
	case CodeIncorrectArgumentType:
		return fmt.Sprintf("argument %q of %q is annotated as %q but fixture returns %q",
			d.Argument, d.Function, d.Provided, d.Expected)
	case CodeMissingArgumentType:
		return fmt.Sprintf("argument %q of %q is missing a type annotation", d.Argument, d.Function)
	case CodeFixtureDoesNotExist:
		return fmt.Sprintf("argument %q of %q is annotated but fixture %q does not exist",
			d.Argument, d.Function, d.Argument)
	case CodeUnparsableFile:
		return fmt.Sprintf("file could not be parsed (syntax error near line %d)", d.Line)
	}
	return string(d.Code)
}

// Subject is the function (or fixture) the diagnostic belongs to.
func (d Diagnostic) Subject() string {
	if d.Function != "" {
		return d.Function
	}
	return d.Fixture
}

// String renders "line: CODE message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d: %s %s", d.Line, d.Code, d.Message())
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Argument < b.Argument
	})
}

// FileResult holds the diagnostics for one file.
type FileResult struct {
	Path        string       `json:"path"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Cached      bool         `json:"cached,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Files             int           `json:"files"`
	FilesWithProblems int           `json:"files_with_problems"`
	Diagnostics       int           `json:"diagnostics"`
	Cached            int           `json:"cached"`
	ByCode            map[Code]int  `json:"by_code,omitempty"`
	Duration          time.Duration `json:"duration_ns"`
}

// Summarize counts diagnostics across results.
func Summarize(results []FileResult, elapsed time.Duration) Summary {
	s := Summary{Files: len(results), ByCode: make(map[Code]int), Duration: elapsed}
	for _, r := range results {
		if len(r.Diagnostics) > 0 {
			s.FilesWithProblems++
		}
		if r.Cached {
			s.Cached++
		}
		s.Diagnostics += len(r.Diagnostics)
		for _, d := range r.Diagnostics {
			s.ByCode[d.Code]++
		}
	}
	return s
}

// Clean reports whether the summary has no diagnostics.
func (s Summary) Clean() bool {
	return s.Diagnostics == 0
}
