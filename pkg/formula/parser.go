package formula

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Parser handles formula parsing and evaluation with a read-through AST
// cache keyed by the exact expression string. Entries are only added, and
// failed parses are not cached.
type Parser struct {
	cache sync.Map // string -> *Expression
	group singleflight.Group
}

// NewParser creates a new formula parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the cached expression for source, parsing it on a miss.
// Concurrent misses for the same source share one parse.
func (p *Parser) Parse(source string) (*Expression, error) {
	if cached, ok := p.cache.Load(source); ok {
		return cached.(*Expression), nil
	}

	v, err, _ := p.group.Do(source, func() (interface{}, error) {
		if cached, ok := p.cache.Load(source); ok {
			return cached, nil
		}
		expr, err := Parse(source)
		if err != nil {
			return nil, err
		}
		p.cache.Store(source, expr)
		return expr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Expression), nil
}

// Evaluate evaluates a formula with given parameters
func (p *Parser) Evaluate(expression string, env Env) (float64, error) {
	expr, err := p.Parse(expression)
	if err != nil {
		return 0, fmt.Errorf("failed to parse expression %q: %w", expression, err)
	}
	return expr.Evaluate(env)
}

// ValidateExpression checks that expression parses.
func (p *Parser) ValidateExpression(expression string) error {
	_, err := p.Parse(expression)
	return err
}

// Preview parses expression and renders it with vars substituted.
func (p *Parser) Preview(expression string, vars map[string]string) (string, error) {
	expr, err := p.Parse(expression)
	if err != nil {
		return "", err
	}
	return expr.Preview(vars), nil
}

// Len returns the number of cached expressions.
func (p *Parser) Len() int {
	n := 0
	p.cache.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// DefaultParser is the global parser instance
var DefaultParser = NewParser()

// Evaluate is a convenience function using the default parser
func Evaluate(expression string, env Env) (float64, error) {
	return DefaultParser.Evaluate(expression, env)
}
