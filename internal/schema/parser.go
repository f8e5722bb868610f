package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse parses a textual operator signature.
func Parse(src string) (*Schema, error) {
	p := &parser{src: src}
	s, err := p.parseSchema()
	if err != nil {
		return nil, fmt.Errorf("parsing schema %q: %w", src, err)
	}
	return s, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) parseSchema() (*Schema, error) {
	s := &Schema{}

	name, err := p.ident()
	if err != nil {
		return nil, fmt.Errorf("expected operator name: %w", err)
	}
	s.Name = name

	if p.consume('.') {
		overload, err := p.ident()
		if err != nil {
			return nil, fmt.Errorf("expected overload name after '.': %w", err)
		}
		s.Overload = overload
	}

	if !p.consume('(') {
		return nil, p.errHere("expected '('")
	}

	kwargOnly := false
	p.skipSpace()
	for !p.consume(')') {
		if len(s.Args) > 0 || kwargOnly {
			if !p.consume(',') {
				return nil, p.errHere("expected ',' or ')'")
			}
		}
		p.skipSpace()
		if p.consume('*') {
			if kwargOnly {
				return nil, p.errHere("duplicate '*' marker")
			}
			kwargOnly = true
			continue
		}

		arg, err := p.parseArgument(kwargOnly)
		if err != nil {
			return nil, err
		}
		s.Args = append(s.Args, arg)
		p.skipSpace()
	}

	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], "->") {
		return nil, p.errHere("expected '->'")
	}
	p.pos += 2

	returns, err := p.parseReturns()
	if err != nil {
		return nil, err
	}
	s.Returns = returns

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errHere("unexpected trailing input")
	}
	return s, nil
}

func (p *parser) parseArgument(kwargOnly bool) (Argument, error) {
	typ, alias, err := p.parseType()
	if err != nil {
		return Argument{}, err
	}

	name, err := p.ident()
	if err != nil {
		return Argument{}, fmt.Errorf("expected argument name: %w", err)
	}

	arg := Argument{Name: name, Type: typ, Alias: alias, KwargOnly: kwargOnly}
	if p.consume('=') {
		arg.Default = p.token(func(r rune) bool {
			return r != ',' && r != ')' && !unicode.IsSpace(r)
		})
		if arg.Default == "" {
			return Argument{}, p.errHere("expected default value after '='")
		}
	}
	return arg, nil
}

func (p *parser) parseReturns() ([]Return, error) {
	p.skipSpace()
	if !p.consume('(') {
		typ, alias, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return []Return{{Type: typ, Alias: alias}}, nil
	}

	var returns []Return
	p.skipSpace()
	for !p.consume(')') {
		if len(returns) > 0 {
			if !p.consume(',') {
				return nil, p.errHere("expected ',' or ')'")
			}
		}
		typ, alias, err := p.parseType()
		if err != nil {
			return nil, err
		}
		returns = append(returns, Return{Type: typ, Alias: alias})
		p.skipSpace()
	}
	return returns, nil
}

func (p *parser) parseType() (Type, *Alias, error) {
	word, err := p.ident()
	if err != nil {
		return 0, nil, fmt.Errorf("expected type: %w", err)
	}

	var typ Type
	switch word {
	case "Tensor":
		typ = TypeTensor
	case "int":
		typ = TypeInt
	case "float":
		typ = TypeFloat
	case "bool":
		typ = TypeBool
	default:
		return 0, nil, fmt.Errorf("unsupported type %q", word)
	}

	var alias *Alias
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		if typ != TypeTensor {
			return 0, nil, fmt.Errorf("alias annotation on non-Tensor type %q", word)
		}
		p.pos++
		set, err := p.ident()
		if err != nil {
			return 0, nil, fmt.Errorf("expected alias set name: %w", err)
		}
		alias = &Alias{Set: set}
		if p.consume('!') {
			alias.IsWrite = true
		}
		if !p.consume(')') {
			return 0, nil, p.errHere("expected ')' closing alias annotation")
		}
	}
	return typ, alias, nil
}

// ident consumes an identifier: letter or underscore, then letters,
// digits or underscores.
func (p *parser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r == '_' || unicode.IsLetter(r) || (p.pos > start && unicode.IsDigit(r)) {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errHere("expected identifier")
	}
	return p.src[start:p.pos], nil
}

// token consumes the longest run of runes satisfying keep.
func (p *parser) token(keep func(rune) bool) string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && keep(rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// consume advances past c if it is the next non-space byte.
func (p *parser) consume(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) errHere(msg string) error {
	return fmt.Errorf("%s at offset %d", msg, p.pos)
}
