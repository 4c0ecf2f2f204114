package frontend

import "github.com/th3f0rk/betterpython/internal/ast"

func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(TLBrace)
	var stmts []ast.Stmt
	for !p.at(TRBrace) && !p.at(TEOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(TRBrace)
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peek().Kind {
	case TLet:
		return p.parseLetStmt()
	case TIf:
		return p.parseIfStmt()
	case TWhile:
		return p.parseWhileStmt()
	case TFor:
		return p.parseForStmt()
	case TBreak:
		line := p.advance().Line
		p.skipSemi()
		return ast.Stmt{Kind: ast.SBreak, Line: line}
	case TContinue:
		line := p.advance().Line
		p.skipSemi()
		return ast.Stmt{Kind: ast.SContinue, Line: line}
	case TReturn:
		return p.parseReturnStmt()
	case TTry:
		return p.parseTryStmt()
	case TThrow:
		line := p.advance().Line
		val := p.parseExpr()
		p.skipSemi()
		return ast.Stmt{Kind: ast.SThrow, Line: line, ThrowVal: val}
	case TMatch:
		return p.parseMatchStmt()
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) skipSemi() {
	if p.at(TSemicolon) {
		p.advance()
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	line := p.expect(TLet).Line
	name := p.expect(TIdent)
	var declType *ast.Type
	if p.at(TColon) {
		p.advance()
		declType = p.parseType()
	}
	p.expect(TAssign)
	val := p.parseExpr()
	p.skipSemi()
	return ast.Stmt{Kind: ast.SLet, Line: line, Name: name.Val, DeclType: declType, Value: val}
}

func (p *Parser) parseCondExpr() *ast.Expr {
	p.noStructLit = true
	e := p.parseExpr()
	p.noStructLit = false
	return e
}

func (p *Parser) parseIfStmt() ast.Stmt {
	line := p.advance().Line // `if`, or `elif` for a chained branch
	cond := p.parseCondExpr()
	then := p.parseBlock()
	var els []ast.Stmt
	switch p.peek().Kind {
	case TElif:
		// Desugar `elif` into a single-statement else-block holding a
		// nested if, so the checker's uniform SIf recursion handles chains.
		els = []ast.Stmt{p.parseIfStmt()}
	case TElse:
		p.advance()
		els = p.parseBlock()
	}
	return ast.Stmt{Kind: ast.SIf, Line: line, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	line := p.expect(TWhile).Line
	cond := p.parseCondExpr()
	body := p.parseBlock()
	return ast.Stmt{Kind: ast.SWhile, Line: line, Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() ast.Stmt {
	line := p.expect(TFor).Line
	name := p.expect(TIdent)
	p.expect(TIn)
	if p.at(TRange) {
		p.advance()
		p.expect(TLParen)
		lo := p.parseExpr()
		p.expect(TComma)
		hi := p.parseExpr()
		p.expect(TRParen)
		body := p.parseBlock()
		return ast.Stmt{Kind: ast.SRangeFor, Line: line, Var: name.Val, Lo: lo, Hi: hi, Body: body}
	}
	coll := p.parseCondExpr()
	body := p.parseBlock()
	return ast.Stmt{Kind: ast.SCollectionFor, Line: line, Var: name.Val, Coll: coll, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	line := p.expect(TReturn).Line
	var val *ast.Expr
	if !p.at(TSemicolon) && !p.at(TRBrace) {
		val = p.parseExpr()
	}
	p.skipSemi()
	return ast.Stmt{Kind: ast.SReturn, Line: line, RetVal: val}
}

func (p *Parser) parseTryStmt() ast.Stmt {
	line := p.expect(TTry).Line
	tryBody := p.parseBlock()
	var catch *ast.CatchClause
	if p.at(TCatch) {
		p.advance()
		bind := p.expect(TIdent)
		body := p.parseBlock()
		catch = &ast.CatchClause{BindName: bind.Val, Body: body}
	}
	var finally []ast.Stmt
	if p.at(TFinally) {
		p.advance()
		finally = p.parseBlock()
	}
	return ast.Stmt{Kind: ast.STry, Line: line, TryBody: tryBody, Catch: catch, Finally: finally}
}

func (p *Parser) parseMatchStmt() ast.Stmt {
	line := p.expect(TMatch).Line
	subject := p.parseCondExpr()
	p.expect(TLBrace)
	var cases []ast.MatchCase
	for !p.at(TRBrace) && !p.at(TEOF) {
		var val *ast.Expr
		if p.at(TDefault) {
			p.advance()
		} else {
			p.expect(TCase)
			val = p.parseExpr()
		}
		p.expect(TColon)
		var body []ast.Stmt
		for !p.at(TCase) && !p.at(TDefault) && !p.at(TRBrace) && !p.at(TEOF) {
			body = append(body, p.parseStmt())
		}
		cases = append(cases, ast.MatchCase{Value: val, Body: body})
	}
	p.expect(TRBrace)
	return ast.Stmt{Kind: ast.SMatch, Line: line, Subject: subject, Cases: cases}
}

// parseSimpleStmt parses an expression statement or one of the three
// assignment forms, disambiguated by the parsed lvalue's Expr kind (spec.md
// §3's SAssign/SIndexedAssign/SFieldAssign split).
func (p *Parser) parseSimpleStmt() ast.Stmt {
	line := p.peek().Line
	lhs := p.parseExpr()
	if p.at(TAssign) {
		p.advance()
		rhs := p.parseExpr()
		p.skipSemi()
		switch lhs.Kind {
		case ast.EVar:
			return ast.Stmt{Kind: ast.SAssign, Line: line, Target: lhs, Value: rhs}
		case ast.EIndex:
			return ast.Stmt{Kind: ast.SIndexedAssign, Line: line, Target: lhs.Collection, Index: lhs.IndexExpr, Value: rhs}
		case ast.EField:
			return ast.Stmt{Kind: ast.SFieldAssign, Line: line, Target: lhs.Base, Field: lhs.Name, Value: rhs}
		default:
			p.errorf(line, "invalid assignment target")
			return ast.Stmt{Kind: ast.SExpr, Line: line, Expr: lhs}
		}
	}
	p.skipSemi()
	return ast.Stmt{Kind: ast.SExpr, Line: line, Expr: lhs}
}
