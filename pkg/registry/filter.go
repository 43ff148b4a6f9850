package registry

import (
	"fmt"
	"strings"

	errs "github.com/vnykmshr/liveflow/pkg/common/errors"
)

// Filter selects entries by their properties using an LDAP-style
// expression:
//
//	(type=cache)                 equality
//	(region=eu-*)                wildcard match
//	(endpoint=*)                 presence
//	(&(type=cache)(region=eu))   conjunction
//	(|(a=1)(b=2))                disjunction
//	(!(stale=true))              negation
//
// The zero Filter matches nothing.
type Filter struct {
	expr string
	node filterNode
}

// ParseFilter parses an expression into a Filter. A malformed expression is
// a configuration error: it wraps errs.ErrInvalidFilter and is never worth
// retrying.
func ParseFilter(expr string) (Filter, error) {
	p := &filterParser{input: strings.TrimSpace(expr)}
	node, err := p.parseNode()
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %s: %v", errs.ErrInvalidFilter, expr, err)
	}
	if p.pos != len(p.input) {
		return Filter{}, fmt.Errorf("%w: %s: trailing input at offset %d", errs.ErrInvalidFilter, expr, p.pos)
	}
	return Filter{expr: expr, node: node}, nil
}

// MustFilter parses an expression and panics on a malformed one. Use it
// when the expression is a compile-time constant of the program.
func MustFilter(expr string) Filter {
	f, err := ParseFilter(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// Matches reports whether the filter selects an entry with these
// properties.
func (f Filter) Matches(props map[string]string) bool {
	return f.node != nil && f.node.matches(props)
}

// String returns the original expression.
func (f Filter) String() string {
	return f.expr
}

type filterNode interface {
	matches(props map[string]string) bool
}

type andNode []filterNode

func (n andNode) matches(props map[string]string) bool {
	for _, c := range n {
		if !c.matches(props) {
			return false
		}
	}
	return true
}

type orNode []filterNode

func (n orNode) matches(props map[string]string) bool {
	for _, c := range n {
		if c.matches(props) {
			return true
		}
	}
	return false
}

type notNode struct {
	child filterNode
}

func (n notNode) matches(props map[string]string) bool {
	return !n.child.matches(props)
}

// cmpNode matches one property against a pattern. parts holds the literal
// segments between '*' wildcards; a single segment means exact equality and
// an empty pattern ("*") means presence.
type cmpNode struct {
	key   string
	parts []string
}

func (n cmpNode) matches(props map[string]string) bool {
	v, ok := props[n.key]
	if !ok {
		return false
	}
	if len(n.parts) == 1 {
		return v == n.parts[0]
	}
	return matchWildcard(v, n.parts)
}

func matchWildcard(v string, parts []string) bool {
	if !strings.HasPrefix(v, parts[0]) {
		return false
	}
	v = v[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(v, mid)
		if i < 0 {
			return false
		}
		v = v[i+len(mid):]
	}
	return strings.HasSuffix(v, last)
}

type filterParser struct {
	input string
	pos   int
}

func (p *filterParser) parseNode() (filterNode, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of input")
	}

	var node filterNode
	var err error
	switch p.input[p.pos] {
	case '&':
		p.pos++
		node, err = p.parseList(func(children []filterNode) filterNode { return andNode(children) })
	case '|':
		p.pos++
		node, err = p.parseList(func(children []filterNode) filterNode { return orNode(children) })
	case '!':
		p.pos++
		var child filterNode
		child, err = p.parseNode()
		node = notNode{child: child}
	default:
		node, err = p.parseComparison()
	}
	if err != nil {
		return nil, err
	}

	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *filterParser) parseList(build func([]filterNode) filterNode) (filterNode, error) {
	var children []filterNode
	for p.pos < len(p.input) && p.input[p.pos] == '(' {
		child, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("empty composite at offset %d", p.pos)
	}
	return build(children), nil
}

func (p *filterParser) parseComparison() (filterNode, error) {
	eq := strings.IndexByte(p.input[p.pos:], '=')
	if eq <= 0 {
		return nil, fmt.Errorf("expected key=value at offset %d", p.pos)
	}
	key := p.input[p.pos : p.pos+eq]
	if strings.ContainsAny(key, "()") {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	p.pos += eq + 1

	end := strings.IndexByte(p.input[p.pos:], ')')
	if end < 0 {
		return nil, fmt.Errorf("unterminated comparison at offset %d", p.pos)
	}
	value := p.input[p.pos : p.pos+end]
	p.pos += end

	if value == "*" {
		// Presence: any value matches.
		return cmpNode{key: key, parts: []string{"", ""}}, nil
	}
	return cmpNode{key: key, parts: strings.Split(value, "*")}, nil
}

func (p *filterParser) expect(c byte) error {
	if p.pos >= len(p.input) || p.input[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", string(c), p.pos)
	}
	p.pos++
	return nil
}
