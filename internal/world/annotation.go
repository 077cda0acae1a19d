package world

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// renderAnnotation turns a type expression into its canonical form:
// dotted names, X[A, B] subscripts with ", " separators, unquoted forward
// references and "A | B" unions. Anything else is its source text with
// whitespace collapsed.
func renderAnnotation(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	text := func(n *sitter.Node) string { return n.Content(content) }

	switch n.Type() {
	case "type", "parenthesized_expression":
		if inner := namedChildren(n); len(inner) == 1 {
			return renderAnnotation(inner[0], content)
		}
	case "identifier":
		return text(n)
	case "none":
		return "None"
	case "ellipsis":
		return "..."
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj != nil && attr != nil {
			return renderAnnotation(obj, content) + "." + text(attr)
		}
	case "member_type":
		parts := namedChildren(n)
		if len(parts) == 2 {
			return renderAnnotation(parts[0], content) + "." + text(parts[1])
		}
	case "subscript":
		parts := namedChildren(n)
		if len(parts) >= 2 {
			return renderAnnotation(parts[0], content) + "[" + joinRendered(parts[1:], content) + "]"
		}
	case "generic_type":
		parts := namedChildren(n)
		if len(parts) == 2 {
			return renderAnnotation(parts[0], content) + "[" + renderAnnotation(parts[1], content) + "]"
		}
	case "type_parameter", "tuple", "expression_list":
		return joinRendered(namedChildren(n), content)
	case "list":
		return "[" + joinRendered(namedChildren(n), content) + "]"
	case "union_type":
		parts := namedChildren(n)
		if len(parts) == 2 {
			return renderAnnotation(parts[0], content) + " | " + renderAnnotation(parts[1], content)
		}
	case "binary_operator":
		left := n.ChildByFieldName("left")
		op := n.ChildByFieldName("operator")
		right := n.ChildByFieldName("right")
		if left != nil && right != nil && op != nil && text(op) == "|" {
			return renderAnnotation(left, content) + " | " + renderAnnotation(right, content)
		}
	case "string":
		if s, ok := stringLiteral(text(n)); ok {
			return collapseSpace(s)
		}
	}
	return collapseSpace(text(n))
}

func joinRendered(nodes []*sitter.Node, content []byte) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, renderAnnotation(n, content))
	}
	return strings.Join(parts, ", ")
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// collapseSpace normalises whitespace so that formatting differences do not
// produce mismatches: spaces around brackets and dots go away, a comma is
// followed by exactly one space.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	joined := strings.Join(fields, " ")
	var b strings.Builder
	b.Grow(len(joined))
	for i := 0; i < len(joined); i++ {
		c := joined[i]
		if c == ' ' {
			prev := joined[i-1]
			next := joined[i+1]
			if prev == '[' || prev == '(' || prev == '.' ||
				next == ']' || next == ')' || next == '[' || next == '.' || next == ',' {
				continue
			}
		}
		b.WriteByte(c)
		if c == ',' && i+1 < len(joined) && joined[i+1] != ' ' && joined[i+1] != ']' && joined[i+1] != ')' {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// stringLiteral strips prefixes and quotes from a Python string literal.
func stringLiteral(raw string) (string, bool) {
	s := strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)], true
		}
	}
	return "", false
}
