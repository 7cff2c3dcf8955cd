// SPDX-License-Identifier: GPL-3.0-or-later
//
// Recursive-descent parser over the token stream lexer.go produces.
// Grammar (informal):
//
//	expr   := string | int | bool | ident | lambda | call
//	call   := ident ('{' opts '}')? '(' (expr (',' expr)*)? ')'
//	opts   := (ident ':' expr (',' ident ':' expr)*)?
//	lambda := '|' (ident (',' ident)*)? '|' ('=>')? expr
//
// A bare ident with no following '(' or '{' is a variable reference.

package scenario

import "fmt"

type parser struct {
	toks []token
	pos  int
}

// Parse reads one scenario-text expression, spec.md §4.3 ("parse the
// scenario text"). No teacher/pack equivalent; grounded on
// original_source/src/scenario_executor's call-tree-over-Dynamic model.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return Node{}, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return Node{}, err
	}
	if p.peek().kind != tokEOF {
		return Node{}, fmt.Errorf("scenario: trailing input after expression")
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return token{}, fmt.Errorf("scenario: expected %s, got %q", what, t.text)
	}
	return t, nil
}

func (p *parser) parseExpr() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return Node{Kind: KindString, Str: t.text}, nil
	case tokInt:
		p.next()
		var v int64
		fmt.Sscanf(t.text, "%d", &v)
		return Node{Kind: KindInt, Int: v}, nil
	case tokBool:
		p.next()
		return Node{Kind: KindBool, Bool: t.text == "true"}, nil
	case tokPipe:
		return p.parseLambda()
	case tokIdent:
		return p.parseIdentOrCall()
	default:
		return Node{}, fmt.Errorf("scenario: unexpected token %q", t.text)
	}
}

func (p *parser) parseLambda() (Node, error) {
	if _, err := p.expect(tokPipe, "'|'"); err != nil {
		return Node{}, err
	}
	var params []string
	for p.peek().kind == tokIdent {
		params = append(params, p.next().text)
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	if _, err := p.expect(tokPipe, "'|'"); err != nil {
		return Node{}, err
	}
	if p.peek().kind == tokArrow {
		p.next()
	}
	body, err := p.parseExpr()
	if err != nil {
		return Node{}, err
	}
	return Node{Kind: KindLambda, LambdaParams: params, LambdaBody: &body}, nil
}

func (p *parser) parseIdentOrCall() (Node, error) {
	name := p.next().text
	if p.peek().kind != tokLParen && p.peek().kind != tokLBrace {
		return Node{Kind: KindIdent, Ident: name}, nil
	}

	var opts map[string]Node
	if p.peek().kind == tokLBrace {
		p.next()
		opts = map[string]Node{}
		for p.peek().kind != tokRBrace {
			key, err := p.expect(tokIdent, "option name")
			if err != nil {
				return Node{}, err
			}
			if _, err := p.expect(tokColon, "':'"); err != nil {
				return Node{}, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return Node{}, err
			}
			opts[key.text] = v
			if p.peek().kind == tokComma {
				p.next()
			}
		}
		p.next() // consume '}'
	}

	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return Node{}, err
	}
	var args []Node
	for p.peek().kind != tokRParen {
		a, err := p.parseExpr()
		if err != nil {
			return Node{}, err
		}
		args = append(args, a)
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	p.next() // consume ')'

	return Node{Kind: KindCall, Call: name, Args: args, Opts: opts}, nil
}
