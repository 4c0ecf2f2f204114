package frontend

import "github.com/th3f0rk/betterpython/internal/ast"

// binOp maps a binary operator token to its BP source spelling (the string
// internal/check switches on) and its precedence. Lower binds looser,
// mirroring the teacher's precedence table in parser.go.
type binOp struct {
	op   string
	prec int
}

var binOps = map[Kind]binOp{
	TOr:    {"or", 1},
	TAnd:   {"and", 2},
	TEq:    {"==", 3},
	TNeq:   {"!=", 3},
	TLt:    {"<", 4},
	TLte:   {"<=", 4},
	TGt:    {">", 4},
	TGte:   {">=", 4},
	TPipe:  {"|", 5},
	TCaret: {"^", 6},
	TAmp:   {"&", 7},
	TShl:   {"<<", 8},
	TShr:   {">>", 8},
	TPlus:  {"+", 9},
	TMinus: {"-", 9},
	TStar:  {"*", 10},
	TSlash: {"/", 10},
	TPercent: {"%", 10},
}

func (p *Parser) parseExpr() *ast.Expr { return p.parseBinary(1) }

func (p *Parser) parseBinary(minPrec int) *ast.Expr {
	left := p.parseUnary()
	for {
		info, ok := binOps[p.peek().Kind]
		if !ok || info.prec < minPrec {
			return left
		}
		line := p.advance().Line
		right := p.parseBinary(info.prec + 1)
		left = &ast.Expr{Kind: ast.EBinary, Line: line, Op: info.op, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() *ast.Expr {
	switch p.peek().Kind {
	case TMinus:
		line := p.advance().Line
		return &ast.Expr{Kind: ast.EUnary, Line: line, Op: "-", X: p.parseUnary()}
	case TNot:
		line := p.advance().Line
		return &ast.Expr{Kind: ast.EUnary, Line: line, Op: "not", X: p.parseUnary()}
	case TTilde:
		line := p.advance().Line
		return &ast.Expr{Kind: ast.EUnary, Line: line, Op: "~", X: p.parseUnary()}
	}
	return p.parsePostfix()
}

// parsePostfix handles call/index/field/method chains applied to a primary
// expression: `a(b)`, `a[b]`, `a.b`, `a.b(c)`.
func (p *Parser) parsePostfix() *ast.Expr {
	e := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case TLParen:
			if e.Kind != ast.EVar {
				return e
			}
			line := p.advance().Line
			args := p.parseArgs()
			p.expect(TRParen)
			e = &ast.Expr{Kind: ast.ECall, Line: line, Name: e.Name, Args: args}
		case TLBrack:
			line := p.advance().Line
			idx := p.parseExpr()
			p.expect(TRBrack)
			e = &ast.Expr{Kind: ast.EIndex, Line: line, Collection: e, IndexExpr: idx}
		case TDot:
			p.advance()
			member := p.expect(TIdent)
			if p.at(TLParen) {
				line := p.advance().Line
				args := p.parseArgs()
				p.expect(TRParen)
				e = &ast.Expr{Kind: ast.EMethodCall, Line: line, Base: e, Name: member.Val, Args: args}
				continue
			}
			if e.Kind == ast.EVar && p.enumNames[e.Name] {
				e = &ast.Expr{Kind: ast.EEnumMember, Line: member.Line, Name: e.Name, Member: member.Val}
				continue
			}
			e = &ast.Expr{Kind: ast.EField, Line: member.Line, Base: e, Name: member.Val}
		default:
			return e
		}
	}
}

func (p *Parser) parseArgs() []*ast.Expr {
	var args []*ast.Expr
	for !p.at(TRParen) && !p.at(TEOF) {
		args = append(args, p.parseExpr())
		if p.at(TComma) {
			p.advance()
		}
	}
	return args
}

func (p *Parser) parsePrimary() *ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case TInt:
		p.advance()
		return &ast.Expr{Kind: ast.EIntLit, Line: tok.Line, Int: parseIntLit(tok.Val)}
	case TFloat:
		p.advance()
		return &ast.Expr{Kind: ast.EFloatLit, Line: tok.Line, Float: parseFloatLit(tok.Val)}
	case TString:
		p.advance()
		return &ast.Expr{Kind: ast.EStrLit, Line: tok.Line, Name: tok.Val}
	case TFString:
		p.advance()
		return p.parseFString(tok)
	case TTrue:
		p.advance()
		return &ast.Expr{Kind: ast.EBoolLit, Line: tok.Line, Bool: true}
	case TFalse:
		p.advance()
		return &ast.Expr{Kind: ast.EBoolLit, Line: tok.Line, Bool: false}
	case TNull:
		p.advance()
		return &ast.Expr{Kind: ast.ENullLit, Line: tok.Line}
	case TIdent:
		p.advance()
		if p.at(TLBrace) && !p.noStructLit {
			return p.parseStructLit(tok)
		}
		return &ast.Expr{Kind: ast.EVar, Line: tok.Line, Name: tok.Val}
	case TNew:
		p.advance()
		name := p.expect(TIdent)
		p.expect(TLParen)
		args := p.parseArgs()
		p.expect(TRParen)
		return &ast.Expr{Kind: ast.ENew, Line: tok.Line, Name: name.Val, Args: args}
	case TSuper:
		p.advance()
		p.expect(TDot)
		name := p.expect(TIdent)
		p.expect(TLParen)
		args := p.parseArgs()
		p.expect(TRParen)
		return &ast.Expr{Kind: ast.ESuperCall, Line: tok.Line, Name: name.Val, Args: args}
	case TLambda:
		return p.parseLambda()
	case TLParen:
		p.advance()
		first := p.parseExpr()
		if p.at(TComma) {
			elems := []*ast.Expr{first}
			for p.at(TComma) {
				p.advance()
				elems = append(elems, p.parseExpr())
			}
			p.expect(TRParen)
			return &ast.Expr{Kind: ast.ETuple, Line: tok.Line, Elems: elems}
		}
		p.expect(TRParen)
		return first
	case TLBrack:
		p.advance()
		var elems []*ast.Expr
		for !p.at(TRBrack) && !p.at(TEOF) {
			elems = append(elems, p.parseExpr())
			if p.at(TComma) {
				p.advance()
			}
		}
		p.expect(TRBrack)
		return &ast.Expr{Kind: ast.EArrayLit, Line: tok.Line, Elems: elems}
	case TLBrace:
		return p.parseMapLit()
	}
	p.errorf(tok.Line, "unexpected token %q in expression", tok.Val)
	p.advance()
	return &ast.Expr{Kind: ast.ENullLit, Line: tok.Line}
}

func (p *Parser) parseMapLit() *ast.Expr {
	line := p.expect(TLBrace).Line
	var keys, vals []*ast.Expr
	for !p.at(TRBrace) && !p.at(TEOF) {
		k := p.parseExpr()
		p.expect(TColon)
		v := p.parseExpr()
		keys = append(keys, k)
		vals = append(vals, v)
		if p.at(TComma) {
			p.advance()
		}
	}
	p.expect(TRBrace)
	return &ast.Expr{Kind: ast.EMapLit, Line: line, Keys: keys, Values: vals}
}

// parseStructLit parses `Name{field: val, ...}`. parsePrimary calls it
// whenever an identifier is immediately followed by `{`, except inside an
// if/while/for/match header.
func (p *Parser) parseStructLit(name Token) *ast.Expr {
	p.expect(TLBrace)
	var names []string
	var vals []*ast.Expr
	for !p.at(TRBrace) && !p.at(TEOF) {
		fname := p.expect(TIdent)
		p.expect(TColon)
		val := p.parseExpr()
		names = append(names, fname.Val)
		vals = append(vals, val)
		if p.at(TComma) {
			p.advance()
		}
	}
	p.expect(TRBrace)
	return &ast.Expr{Kind: ast.EStructLit, Line: name.Line, Name: name.Val, FieldNames: names, FieldVals: vals}
}

func (p *Parser) parseLambda() *ast.Expr {
	line := p.expect(TLambda).Line
	params := p.parseParamList()
	retType := ast.Void
	if p.at(TArrow) {
		p.advance()
		retType = p.parseType()
	}
	body := p.parseBlock()
	return &ast.Expr{Kind: ast.ELambda, Line: line, Params: params, RetType: retType, Body: body}
}

// parseFString splits an f-string's raw body (escapes already resolved by
// the lexer) on its `{...}` spans into alternating literal parts and
// embedded expressions, per ast.Expr's EFString contract. Every `{` opens an
// expression; there is no escape for a literal brace.
func (p *Parser) parseFString(tok Token) *ast.Expr {
	raw := tok.Val
	var parts []string
	var exprParts []*ast.Expr
	var lit []byte
	i := 0
	for i < len(raw) {
		if raw[i] == '{' {
			parts = append(parts, string(lit))
			lit = nil
			j := i + 1
			depth := 1
			for j < len(raw) && depth > 0 {
				if raw[j] == '{' {
					depth++
				} else if raw[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			sub := raw[i+1 : j]
			toks, _ := newLexer([]byte(sub)).Tokenize()
			sp := &Parser{tokens: toks, enumNames: p.enumNames}
			exprParts = append(exprParts, sp.parseExpr())
			p.errors = append(p.errors, sp.errors...)
			i = j + 1
			continue
		}
		lit = append(lit, raw[i])
		i++
	}
	parts = append(parts, string(lit))
	return &ast.Expr{Kind: ast.EFString, Line: tok.Line, Parts: parts, ExprParts: exprParts}
}

func parseFloatLit(s string) float64 {
	var whole float64
	i := 0
	for i < len(s) && s[i] != '.' {
		whole = whole*10 + float64(s[i]-'0')
		i++
	}
	if i >= len(s) {
		return whole
	}
	i++ // skip '.'
	frac := 0.0
	div := 1.0
	for i < len(s) {
		frac = frac*10 + float64(s[i]-'0')
		div *= 10
		i++
	}
	return whole + frac/div
}
