package formula

// Expression is a parsed formula. It keeps the source and tokens next to the
// AST so previews can be rebuilt token for token.
type Expression struct {
	Source string
	Root   Node
	tokens []Token
}

// Parse tokenizes and parses source.
func Parse(source string) (*Expression, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	root, err := ParseTokens(tokens)
	if err != nil {
		return nil, err
	}
	return &Expression{Source: source, Root: root, tokens: tokens}, nil
}

// Evaluate evaluates the expression against env.
func (e *Expression) Evaluate(env Env) (float64, error) {
	return Eval(e.Root, env)
}

// Variables returns the distinct variable names the expression references,
// in order of first appearance. Built-in constants are not included.
func (e *Expression) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	Walk(e.Root, func(n Node) {
		v, ok := n.(*Variable)
		if !ok || seen[v.Name] || IsReserved(v.Name) {
			return
		}
		seen[v.Name] = true
		names = append(names, v.Name)
	})
	return names
}

// Tokens returns a copy of the token stream, EOF included.
func (e *Expression) Tokens() []Token {
	out := make([]Token, len(e.tokens))
	copy(out, e.tokens)
	return out
}

func (e *Expression) String() string {
	return e.Source
}
