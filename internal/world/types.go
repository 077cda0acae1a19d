package world

// ParamKind distinguishes how a parameter receives its value.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamKeywordOnly
	ParamVarArgs   // *args
	ParamVarKwargs // **kwargs
)

// Annotation is a type annotation in canonical text form.
type Annotation struct {
	Text string
	Line int
}

// Param is one function parameter.
type Param struct {
	Name       string
	Line       int
	Kind       ParamKind
	HasDefault bool
	Annotation *Annotation // nil when unannotated
}

// Decorator is a decorator applied to a function.
type Decorator struct {
	// Name is the dotted callee, e.g. "pytest.fixture" or "pytest.mark.parametrize".
	Name   string
	Line   int
	Called bool
	// FirstArg holds the string values of the first positional argument when
	// it is a string literal or a list/tuple of string literals.
	FirstArg []string
	// Keywords holds keyword arguments whose value is a string literal.
	Keywords map[string]string
}

// Function is a top-level function or a method of a top-level Test* class.
type Function struct {
	Name       string
	Line       int
	Class      string // enclosing class, empty for module-level functions
	Async      bool
	Decorators []Decorator
	Params     []Param
	Returns    *Annotation // nil when unannotated

	// ClassDecorators are the decorators of the enclosing class.
	ClassDecorators []Decorator
}

// Module is the parsed view of one Python file.
type Module struct {
	Path      string
	Functions []Function

	// Unparsable is set when the syntax tree contains errors.
	Unparsable bool
	ErrorLine  int

	// Noqa maps a line to the codes suppressed there. An empty slice
	// suppresses everything on that line.
	Noqa map[int][]string
}

// Suppressed reports whether a diagnostic with code on line is silenced by a noqa comment.
func (m *Module) Suppressed(line int, code string) bool {
	codes, ok := m.Noqa[line]
	if !ok {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
