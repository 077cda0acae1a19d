package world

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fixturelint/internal/logging"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser extracts functions, decorators and annotations from Python
// source using Tree-sitter. It is safe for concurrent use; every Parse call
// gets its own tree-sitter parser.
type PythonParser struct{}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// SupportedExtensions returns [".py"].
func (p *PythonParser) SupportedExtensions() []string {
	return []string{".py"}
}

// Parse builds a Module from Python source. Syntax errors are not returned
// as errors: the module is marked Unparsable instead.
func (p *PythonParser) Parse(ctx context.Context, path string, content []byte) (*Module, error) {
	start := time.Now()
	logging.ParserDebug("PythonParser: parsing file: %s (%d bytes)", filepath.Base(path), len(content))

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		logging.Get(logging.CategoryParser).Error("PythonParser: parse failed: %s - %v", path, err)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	mod := &Module{Path: path, Noqa: make(map[int][]string)}

	if root.HasError() {
		mod.Unparsable = true
		mod.ErrorLine = firstErrorLine(root)
		logging.ParserDebug("PythonParser: %s has syntax errors near line %d", filepath.Base(path), mod.ErrorLine)
		return mod, nil
	}

	collectNoqa(root, content, mod.Noqa)

	for _, child := range namedChildren(root) {
		switch child.Type() {
		case "function_definition":
			mod.Functions = append(mod.Functions, parseFunction(child, nil, "", content))
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def == nil {
				continue
			}
			decorators := parseDecorators(child, content)
			switch def.Type() {
			case "function_definition":
				mod.Functions = append(mod.Functions, parseFunction(def, decorators, "", content))
			case "class_definition":
				mod.Functions = append(mod.Functions, parseClass(def, decorators, content)...)
			}
		case "class_definition":
			mod.Functions = append(mod.Functions, parseClass(child, nil, content)...)
		}
	}

	logging.ParserDebug("PythonParser: parsed %s - %d functions in %v",
		filepath.Base(path), len(mod.Functions), time.Since(start))
	return mod, nil
}

// TestClassPrefix selects the classes pytest collects methods from.
const TestClassPrefix = "Test"

// parseClass returns the methods of a Test* class body. Decorators on the
// class are recorded on every method.
func parseClass(node *sitter.Node, decorators []Decorator, content []byte) []Function {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	className := nameNode.Content(content)
	if !strings.HasPrefix(className, TestClassPrefix) {
		logging.ParserDebug("PythonParser: skipping class %s", className)
		return nil
	}

	var methods []Function
	for _, child := range namedChildren(body) {
		var fn Function
		switch child.Type() {
		case "function_definition":
			fn = parseFunction(child, nil, className, content)
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def == nil || def.Type() != "function_definition" {
				continue
			}
			fn = parseFunction(def, parseDecorators(child, content), className, content)
		default:
			continue
		}
		fn.ClassDecorators = decorators
		methods = append(methods, fn)
	}
	return methods
}

func parseFunction(node *sitter.Node, decorators []Decorator, className string, content []byte) Function {
	fn := Function{
		Line:       line(node),
		Class:      className,
		Async:      strings.HasPrefix(node.Content(content), "async"),
		Decorators: decorators,
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		fn.Name = nameNode.Content(content)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.Returns = &Annotation{Text: renderAnnotation(ret, content), Line: line(ret)}
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Params = parseParams(params, content)
	}
	return fn
}

func parseParams(node *sitter.Node, content []byte) []Param {
	var params []Param
	kind := ParamPositional

	for _, child := range namedChildren(node) {
		p := Param{Line: line(child), Kind: kind}

		switch child.Type() {
		case "identifier":
			p.Name = child.Content(content)

		case "typed_parameter":
			inner := namedChildren(child)
			if len(inner) == 0 {
				continue
			}
			p.Name, p.Kind = paramName(inner[0], content, kind)
			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Annotation = &Annotation{Text: renderAnnotation(typ, content), Line: line(typ)}
			}

		case "default_parameter", "typed_default_parameter":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			p.Name = nameNode.Content(content)
			p.HasDefault = true
			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Annotation = &Annotation{Text: renderAnnotation(typ, content), Line: line(typ)}
			}

		case "list_splat_pattern", "dictionary_splat_pattern":
			p.Name, p.Kind = paramName(child, content, kind)

		case "keyword_separator":
			kind = ParamKeywordOnly
			continue

		default:
			continue
		}

		if p.Kind == ParamVarArgs {
			kind = ParamKeywordOnly
		}
		params = append(params, p)
	}
	return params
}

// paramName unwraps *args / **kwargs patterns.
func paramName(n *sitter.Node, content []byte, kind ParamKind) (string, ParamKind) {
	switch n.Type() {
	case "list_splat_pattern":
		return strings.TrimLeft(n.Content(content), "*"), ParamVarArgs
	case "dictionary_splat_pattern":
		return strings.TrimLeft(n.Content(content), "*"), ParamVarKwargs
	}
	return n.Content(content), kind
}

func parseDecorators(node *sitter.Node, content []byte) []Decorator {
	var decorators []Decorator
	for _, child := range namedChildren(node) {
		if child.Type() != "decorator" {
			continue
		}
		inner := namedChildren(child)
		if len(inner) == 0 {
			continue
		}
		expr := inner[0]
		dec := Decorator{Line: line(child)}

		if expr.Type() == "call" {
			dec.Called = true
			dec.Name = dottedName(expr.ChildByFieldName("function"), content)
			if args := expr.ChildByFieldName("arguments"); args != nil {
				parseDecoratorArgs(args, content, &dec)
			}
		} else {
			dec.Name = dottedName(expr, content)
		}
		decorators = append(decorators, dec)
	}
	return decorators
}

func parseDecoratorArgs(args *sitter.Node, content []byte, dec *Decorator) {
	positional := 0
	for _, arg := range namedChildren(args) {
		if arg.Type() == "keyword_argument" {
			name := arg.ChildByFieldName("name")
			value := arg.ChildByFieldName("value")
			if name == nil || value == nil || value.Type() != "string" {
				continue
			}
			if s, ok := stringLiteral(value.Content(content)); ok {
				if dec.Keywords == nil {
					dec.Keywords = make(map[string]string)
				}
				dec.Keywords[name.Content(content)] = s
			}
			continue
		}
		if positional == 0 {
			dec.FirstArg = stringValues(arg, content)
		}
		positional++
	}
}

// stringValues returns the string literal(s) held by n.
func stringValues(n *sitter.Node, content []byte) []string {
	switch n.Type() {
	case "string":
		if s, ok := stringLiteral(n.Content(content)); ok {
			return []string{s}
		}
	case "list", "tuple":
		var out []string
		for _, el := range namedChildren(n) {
			if el.Type() != "string" {
				return nil
			}
			s, ok := stringLiteral(el.Content(content))
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}

// dottedName renders identifier/attribute chains such as pytest.mark.parametrize.
func dottedName(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return n.Content(content)
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj != nil && attr != nil {
			return dottedName(obj, content) + "." + attr.Content(content)
		}
	}
	return collapseSpace(n.Content(content))
}

// collectNoqa records `# noqa` and `# noqa: FX001,FX002` comments by line.
func collectNoqa(n *sitter.Node, content []byte, out map[int][]string) {
	if n.Type() == "comment" {
		if codes, ok := parseNoqa(n.Content(content)); ok {
			out[line(n)] = codes
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectNoqa(n.Child(i), content, out)
	}
}

// noqaPattern finds "# noqa" or "# noqa: FX001,FX002" anywhere in a comment,
// so it also works after another marker such as "# type: ignore".
var noqaPattern = regexp.MustCompile(`(?i)#\s*noqa\b(?::\s*([a-z]+[0-9]+(?:[\s,]+[a-z]+[0-9]+)*))?`)

func parseNoqa(comment string) ([]string, bool) {
	m := noqaPattern.FindStringSubmatch(comment)
	if m == nil {
		return nil, false
	}
	if m[1] == "" {
		return []string{}, true
	}
	var codes []string
	for _, c := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		codes = append(codes, strings.ToUpper(c))
	}
	return codes, true
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return line(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstErrorLine(child)
		}
	}
	return line(n)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}
