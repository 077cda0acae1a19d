package analysis

import (
	"fixturelint/internal/config"
	"fixturelint/internal/world"
)

// Checker applies the fixture annotation rules to parsed modules.
type Checker struct {
	cfg      config.AnalysisConfig
	detector *Detector
}

// NewChecker creates a Checker.
func NewChecker(cfg config.AnalysisConfig) *Checker {
	return &Checker{cfg: cfg, detector: NewDetector(cfg)}
}

// Detector returns the fixture detector used by the checker.
func (c *Checker) Detector() *Detector {
	return c.detector
}

// CheckModule returns the diagnostics for mod. outer holds the fixtures from
// conftest.py files, nearest first.
func (c *Checker) CheckModule(mod *world.Module, outer []Scope) []Diagnostic {
	var diags []Diagnostic
	if mod.Unparsable {
		diags = append(diags, Diagnostic{Code: CodeUnparsableFile, Line: mod.ErrorLine})
		return c.filter(mod, diags, nil)
	}

	module := c.detector.ModuleScope(mod)
	classes := c.detector.classScopes(mod)
	funcLines := make(map[int]int)

	for _, fn := range mod.Functions {
		isFixture := c.detector.IsFixture(fn)
		if !isFixture && !c.detector.IsTest(fn) {
			continue
		}

		scopes := make([]Scope, 0, len(outer)+2)
		if fn.Class != "" {
			if cs, ok := classes[fn.Class]; ok {
				scopes = append(scopes, cs)
			}
		}
		scopes = append(scopes, module)
		scopes = append(scopes, outer...)

		var found []Diagnostic
		if isFixture && fn.Returns == nil {
			found = append(found, Diagnostic{
				Code:    CodeFixtureMissingReturnType,
				Line:    fn.Line,
				Fixture: c.detector.FixtureName(fn),
			})
		}
		found = append(found, c.checkArguments(mod.Path, fn, isFixture, scopes)...)
		for _, d := range found {
			funcLines[len(diags)] = fn.Line
			diags = append(diags, d)
		}
	}

	return c.filter(mod, diags, funcLines)
}

func (c *Checker) checkArguments(path string, fn world.Function, isFixture bool, scopes []Scope) []Diagnostic {
	var diags []Diagnostic
	parametrized := c.detector.ParametrizedNames(fn)

	for i, p := range fn.Params {
		if skipParam(fn, i, p) || parametrized[p.Name] {
			continue
		}

		fixture, ok := resolve(p.Name, scopes, path, fn, isFixture)
		if !ok {
			if builtinType, builtin := c.detector.IsBuiltin(p.Name); builtin {
				if p.Annotation != nil && builtinType != "" && builtinType != p.Annotation.Text {
					diags = append(diags, Diagnostic{
						Code:     CodeIncorrectArgumentType,
						Line:     p.Annotation.Line,
						Function: fn.Name,
						Argument: p.Name,
						Expected: builtinType,
						Provided: p.Annotation.Text,
					})
				}
				continue
			}
		}

		if p.Annotation == nil {
			diags = append(diags, Diagnostic{
				Code:     CodeMissingArgumentType,
				Line:     p.Line,
				Function: fn.Name,
				Argument: p.Name,
			})
			continue
		}

		if !ok {
			diags = append(diags, Diagnostic{
				Code:     CodeFixtureDoesNotExist,
				Line:     p.Annotation.Line,
				Function: fn.Name,
				Argument: p.Name,
			})
			continue
		}

		// A fixture without a return type is already reported as FX001.
		if fixture.Function.Returns == nil {
			continue
		}
		if expected := fixture.Function.Returns.Text; expected != p.Annotation.Text {
			diags = append(diags, Diagnostic{
				Code:     CodeIncorrectArgumentType,
				Line:     p.Annotation.Line,
				Function: fn.Name,
				Argument: p.Name,
				Expected: expected,
				Provided: p.Annotation.Text,
			})
		}
	}
	return diags
}

// skipParam excludes parameters pytest never fills from fixtures.
func skipParam(fn world.Function, idx int, p world.Param) bool {
	if p.Kind == world.ParamVarArgs || p.Kind == world.ParamVarKwargs {
		return true
	}
	if p.HasDefault {
		return true
	}
	if fn.Class != "" && idx == 0 && (p.Name == "self" || p.Name == "cls") {
		return true
	}
	return false
}

// filter drops disabled codes and noqa-suppressed diagnostics, then sorts.
// funcLines maps a diagnostic index to the line of its function, whose
// noqa comment also applies.
func (c *Checker) filter(mod *world.Module, diags []Diagnostic, funcLines map[int]int) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for i, d := range diags {
		if !c.cfg.CodeEnabled(string(d.Code)) {
			continue
		}
		if mod.Suppressed(d.Line, string(d.Code)) {
			continue
		}
		if fl, ok := funcLines[i]; ok && fl != d.Line && mod.Suppressed(fl, string(d.Code)) {
			continue
		}
		out = append(out, d)
	}
	sortDiagnostics(out)
	return out
}
