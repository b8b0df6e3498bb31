package formula

import "strings"

// Render rebuilds the source of e with every bound variable replaced by its
// raw value from vars. Unbound variables, function names and constants keep
// their text, and the spacing between tokens is copied verbatim. Render
// never evaluates and never fails.
func Render(e *Expression, vars map[string]string) string {
	if e == nil {
		return ""
	}

	substitutable := make(map[int]string)
	Walk(e.Root, func(n Node) {
		if v, ok := n.(*Variable); ok && !IsReserved(v.Name) {
			substitutable[v.Offset] = v.Name
		}
	})

	var b strings.Builder
	b.Grow(len(e.Source))
	prev := 0
	for _, tok := range e.tokens {
		if tok.Kind == TokenEOF {
			break
		}
		b.WriteString(e.Source[prev:tok.Offset])
		if name, ok := substitutable[tok.Offset]; ok {
			if value, bound := vars[name]; bound {
				b.WriteString(value)
			} else {
				b.WriteString(tok.Literal)
			}
		} else {
			b.WriteString(tok.Literal)
		}
		prev = tok.End()
	}
	b.WriteString(e.Source[prev:])
	return b.String()
}

// Preview is Render bound to e.
func (e *Expression) Preview(vars map[string]string) string {
	return Render(e, vars)
}
