package analysis

import (
	"strings"

	"fixturelint/internal/config"
	"fixturelint/internal/world"
)

// Fixture is a fixture definition visible to some test.
type Fixture struct {
	Name     string
	Path     string
	Function world.Function
}

// same reports whether f is the definition of fn in path.
func (f Fixture) same(path string, fn world.Function) bool {
	return f.Path == path && f.Function.Line == fn.Line && f.Function.Name == fn.Name
}

// Scope is one layer of fixture definitions: a class body, a module or a conftest.
type Scope map[string]Fixture

// Detector recognises fixtures, tests and parametrized parameters.
type Detector struct {
	cfg config.AnalysisConfig
}

// NewDetector creates a Detector for the given analysis settings.
func NewDetector(cfg config.AnalysisConfig) *Detector {
	return &Detector{cfg: cfg}
}

// IsFixture reports whether fn is decorated with a fixture decorator:
// `fixture`, `fixture(...)`, or `<module>.fixture[(...)]` for a configured module.
func (d *Detector) IsFixture(fn world.Function) bool {
	for _, dec := range fn.Decorators {
		if d.isFixtureDecorator(dec) {
			return true
		}
	}
	return false
}

func (d *Detector) isFixtureDecorator(dec world.Decorator) bool {
	if dec.Name == "fixture" {
		return true
	}
	for _, m := range d.cfg.FixtureModules {
		if dec.Name == m+".fixture" {
			return true
		}
	}
	return false
}

// FixtureName returns the name tests use to request fn, honouring name="...".
func (d *Detector) FixtureName(fn world.Function) string {
	for _, dec := range fn.Decorators {
		if d.isFixtureDecorator(dec) {
			if alias := dec.Keywords["name"]; alias != "" {
				return alias
			}
		}
	}
	return fn.Name
}

// IsTest reports whether fn is a test function: not a fixture, named with the
// test prefix, and either module-level or inside a Test* class.
func (d *Detector) IsTest(fn world.Function) bool {
	if d.IsFixture(fn) || !strings.HasPrefix(fn.Name, d.cfg.TestPrefix) {
		return false
	}
	return fn.Class == "" || strings.HasPrefix(fn.Class, world.TestClassPrefix)
}

// IsBuiltin reports whether name is a fixture pytest provides, and the
// annotation it expects (empty when any annotation is accepted).
func (d *Detector) IsBuiltin(name string) (string, bool) {
	typ, ok := d.cfg.BuiltinFixtures[name]
	return typ, ok
}

// ParametrizedNames returns the parameters supplied by @pytest.mark.parametrize
// on the function or on its class.
func (d *Detector) ParametrizedNames(fn world.Function) map[string]bool {
	names := make(map[string]bool)
	decorators := make([]world.Decorator, 0, len(fn.Decorators)+len(fn.ClassDecorators))
	decorators = append(decorators, fn.Decorators...)
	decorators = append(decorators, fn.ClassDecorators...)
	for _, dec := range decorators {
		if dec.Name != "parametrize" && !strings.HasSuffix(dec.Name, ".parametrize") {
			continue
		}
		values := dec.FirstArg
		if argnames, ok := dec.Keywords["argnames"]; ok {
			values = []string{argnames}
		}
		for _, v := range values {
			for _, name := range strings.Split(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names[name] = true
				}
			}
		}
	}
	return names
}

// ModuleScope collects the module-level fixtures of mod.
func (d *Detector) ModuleScope(mod *world.Module) Scope {
	scope := make(Scope)
	for _, fn := range mod.Functions {
		if fn.Class == "" && d.IsFixture(fn) {
			name := d.FixtureName(fn)
			scope[name] = Fixture{Name: name, Path: mod.Path, Function: fn}
		}
	}
	return scope
}

// classScopes collects fixtures defined as methods, per class.
func (d *Detector) classScopes(mod *world.Module) map[string]Scope {
	scopes := make(map[string]Scope)
	for _, fn := range mod.Functions {
		if fn.Class == "" || !d.IsFixture(fn) {
			continue
		}
		if scopes[fn.Class] == nil {
			scopes[fn.Class] = make(Scope)
		}
		name := d.FixtureName(fn)
		scopes[fn.Class][name] = Fixture{Name: name, Path: mod.Path, Function: fn}
	}
	return scopes
}

// resolve finds the fixture named name in scopes (nearest first). The
// definition of self is skipped, so a fixture requesting its own name gets
// the overridden outer fixture, as pytest does.
func resolve(name string, scopes []Scope, selfPath string, self world.Function, selfIsFixture bool) (Fixture, bool) {
	for _, scope := range scopes {
		f, ok := scope[name]
		if !ok {
			continue
		}
		if selfIsFixture && f.same(selfPath, self) {
			continue
		}
		return f, true
	}
	return Fixture{}, false
}
