package frontend

import (
	"fmt"

	"github.com/th3f0rk/betterpython/internal/ast"
)

// ParseError is a syntactic error, fatal at compile time (spec.md §7
// "ParseError — syntactic; fatal at compile time; external collaborator").
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.Msg) }

// Parser turns a BP token stream into an *ast.Module. Grounded in the
// teacher's own Parser (std/compiler/parser.go): a flat token slice, a
// cursor, and peek/advance/at/expect helpers, generalized from the
// teacher's Go-subset grammar to BP's def/let/class surface syntax.
type Parser struct {
	tokens []Token
	pos    int
	errors []*ParseError

	// enumNames is collected in a pre-pass so postfix `.` parsing can tell
	// `EnumName.Member` (EEnumMember) from `expr.field` (EField) without
	// type information, per the resolved Open Question on AST shape.
	enumNames map[string]bool

	// noStructLit suppresses `Name{...}` struct-literal parsing while
	// reading an if/while/for/match header, so the `{` that opens the
	// clause's body isn't swallowed as literal fields — the same ambiguity
	// Go itself forbids in control-clause conditions.
	noStructLit bool
}

// Parse lexes and parses a complete BP source file into a Module. Parsing
// continues past a malformed declaration where possible so callers can
// report every syntax error in one pass, mirroring the teacher's
// accumulate-and-continue error strategy.
func Parse(src []byte) (*ast.Module, []*ParseError) {
	toks, err := newLexer(src).Tokenize()
	if err != nil {
		return nil, []*ParseError{{Line: 0, Msg: err.Error()}}
	}
	p := &Parser{tokens: toks, enumNames: map[string]bool{}}
	p.collectEnumNames()
	mod := p.parseModule()
	return mod, p.errors
}

func (p *Parser) collectEnumNames() {
	for i := 0; i+1 < len(p.tokens); i++ {
		if p.tokens[i].Kind == TEnum && p.tokens[i+1].Kind == TIdent {
			p.enumNames[p.tokens[i+1].Val] = true
		}
	}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(off int) Token {
	i := p.pos + off
	if i >= len(p.tokens) {
		return Token{Kind: TEOF}
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) at(k Kind) bool { return p.peek().Kind == k }

func (p *Parser) expect(k Kind) Token {
	tok := p.advance()
	if tok.Kind != k {
		p.errorf(tok.Line, "unexpected token %q", tok.Val)
	}
	return tok
}

func (p *Parser) errorf(line int, format string, args ...interface{}) {
	p.errors = append(p.errors, &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)})
}

// synchronize skips tokens until a likely declaration or statement boundary,
// so one bad token doesn't cascade into hundreds of spurious errors.
func (p *Parser) synchronize(stop ...Kind) {
	for !p.at(TEOF) {
		for _, k := range stop {
			if p.at(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseModule() *ast.Module {
	mod := &ast.Module{}
	for !p.at(TEOF) {
		switch p.peek().Kind {
		case TImport:
			p.advance()
			tok := p.expect(TString)
			mod.Imports = append(mod.Imports, tok.Val)
			if p.at(TSemicolon) {
				p.advance()
			}
		case TDef:
			mod.Funcs = append(mod.Funcs, p.parseFuncDecl())
		case TStruct:
			mod.Structs = append(mod.Structs, p.parseStructDecl())
		case TEnum:
			mod.Enums = append(mod.Enums, p.parseEnumDecl())
		case TClass:
			mod.Classes = append(mod.Classes, p.parseClassDecl())
		case TExtern:
			mod.Externs = append(mod.Externs, p.parseExternDecl())
		case TLet:
			mod.Globals = append(mod.Globals, p.parseGlobalDecl())
		default:
			tok := p.advance()
			p.errorf(tok.Line, "expected a top-level declaration, got %q", tok.Val)
			p.synchronize(TDef, TStruct, TEnum, TClass, TExtern, TLet, TImport)
		}
	}
	return mod
}

func (p *Parser) parseType() *ast.Type {
	tok := p.advance()
	switch tok.Kind {
	case TLBrack:
		elem := p.parseType()
		p.expect(TRBrack)
		return ast.Array(elem)
	case TIdent:
		switch tok.Val {
		case "int":
			return ast.Int
		case "float":
			return ast.Float
		case "bool":
			return ast.Bool
		case "str":
			return ast.Str
		case "void":
			return ast.Void
		case "i8":
			return ast.I8
		case "i16":
			return ast.I16
		case "i32":
			return ast.I32
		case "i64":
			return ast.I64
		case "u8":
			return ast.U8
		case "u16":
			return ast.U16
		case "u32":
			return ast.U32
		case "u64":
			return ast.U64
		case "map":
			p.expect(TLBrack)
			key := p.parseType()
			p.expect(TRBrack)
			val := p.parseType()
			return ast.Map(key, val)
		case "fn":
			p.expect(TLParen)
			var params []*ast.Type
			for !p.at(TRParen) && !p.at(TEOF) {
				params = append(params, p.parseType())
				if p.at(TComma) {
					p.advance()
				}
			}
			p.expect(TRParen)
			p.expect(TArrow)
			return ast.Func(params, p.parseType())
		default:
			if p.enumNames[tok.Val] {
				return ast.Enum(tok.Val)
			}
			return ast.Struct(tok.Val) // any other name is a struct type; the checker does not retype class names
		}
	}
	p.errorf(tok.Line, "expected a type, got %q", tok.Val)
	return ast.Void
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	p.expect(TLParen)
	for !p.at(TRParen) && !p.at(TEOF) {
		name := p.expect(TIdent)
		p.expect(TColon)
		ty := p.parseType()
		params = append(params, ast.Param{Name: name.Val, Type: ty})
		if p.at(TComma) {
			p.advance()
		}
	}
	p.expect(TRParen)
	return params
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	line := p.expect(TDef).Line
	name := p.expect(TIdent)
	params := p.parseParamList()
	retType := ast.Void
	if p.at(TArrow) {
		p.advance()
		retType = p.parseType()
	}
	body := p.parseBlock()
	return &ast.FuncDecl{Name: name.Val, Params: params, RetType: retType, Body: body, Line: line}
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	line := p.expect(TStruct).Line
	name := p.expect(TIdent)
	p.expect(TLBrace)
	var fields []ast.Param
	for !p.at(TRBrace) && !p.at(TEOF) {
		fname := p.expect(TIdent)
		p.expect(TColon)
		ty := p.parseType()
		fields = append(fields, ast.Param{Name: fname.Val, Type: ty})
		if p.at(TComma) || p.at(TSemicolon) {
			p.advance()
		}
	}
	p.expect(TRBrace)
	return &ast.StructDecl{Name: name.Val, Fields: fields, Line: line}
}

func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	line := p.expect(TEnum).Line
	name := p.expect(TIdent)
	p.expect(TLBrace)
	var members []ast.EnumMember
	next := int64(0)
	for !p.at(TRBrace) && !p.at(TEOF) {
		mname := p.expect(TIdent)
		val := next
		if p.at(TAssign) {
			p.advance()
			tok := p.expect(TInt)
			val = parseIntLit(tok.Val)
		}
		members = append(members, ast.EnumMember{Name: mname.Val, Value: val})
		next = val + 1
		if p.at(TComma) {
			p.advance()
		}
	}
	p.expect(TRBrace)
	return &ast.EnumDecl{Name: name.Val, Members: members, Line: line}
}

func (p *Parser) parseClassDecl() *ast.ClassDecl {
	line := p.expect(TClass).Line
	name := p.expect(TIdent)
	parent := ""
	if p.at(TLParen) {
		p.advance()
		parent = p.expect(TIdent).Val
		p.expect(TRParen)
	}
	p.expect(TLBrace)
	cls := &ast.ClassDecl{Name: name.Val, Parent: parent, Line: line}
	for !p.at(TRBrace) && !p.at(TEOF) {
		if p.at(TDef) {
			mline := p.expect(TDef).Line
			mname := p.expect(TIdent)
			params := p.parseParamList()
			retType := ast.Void
			if p.at(TArrow) {
				p.advance()
				retType = p.parseType()
			}
			body := p.parseBlock()
			cls.Methods = append(cls.Methods, ast.MethodDecl{Name: mname.Val, Params: params, RetType: retType, Body: body, Line: mline})
			continue
		}
		fname := p.expect(TIdent)
		p.expect(TColon)
		ty := p.parseType()
		cls.Fields = append(cls.Fields, ast.Param{Name: fname.Val, Type: ty})
		if p.at(TComma) || p.at(TSemicolon) {
			p.advance()
		}
	}
	p.expect(TRBrace)
	return cls
}

// parseExternDecl reads `extern name(T, T) -> T = "c_name", "libpath";`
// (a trailing `variadic` in the parameter list marks a variadic extern) and
// maps BP-surface type names to the FFI type codes spec.md §6 names.
func (p *Parser) parseExternDecl() *ast.ExternDecl {
	line := p.expect(TExtern).Line
	name := p.expect(TIdent)
	p.expect(TLParen)
	var params []string
	variadic := false
	for !p.at(TRParen) && !p.at(TEOF) {
		if p.at(TIdent) && p.peek().Val == "variadic" {
			p.advance()
			variadic = true
			break
		}
		t := p.expect(TIdent)
		params = append(params, ffiTypeCode(t.Val))
		if p.at(TComma) {
			p.advance()
		}
	}
	p.expect(TRParen)
	ret := "VOID"
	if p.at(TArrow) {
		p.advance()
		ret = ffiTypeCode(p.expect(TIdent).Val)
	}
	p.expect(TAssign)
	cname := p.expect(TString).Val
	libPath := ""
	if p.at(TComma) {
		p.advance()
		libPath = p.expect(TString).Val
	}
	if p.at(TSemicolon) {
		p.advance()
	}
	return &ast.ExternDecl{
		BPName: name.Val, CName: cname, LibraryPath: libPath,
		ParamTypes: params, RetType: ret, Variadic: variadic, Line: line,
	}
}

func ffiTypeCode(name string) string {
	switch name {
	case "int":
		return "INT"
	case "float":
		return "FLOAT"
	case "str":
		return "STR"
	case "ptr":
		return "PTR"
	default:
		return "VOID"
	}
}

func (p *Parser) parseGlobalDecl() *ast.GlobalDecl {
	line := p.expect(TLet).Line
	name := p.expect(TIdent)
	var declType *ast.Type
	if p.at(TColon) {
		p.advance()
		declType = p.parseType()
	}
	p.expect(TAssign)
	val := p.parseExpr()
	if p.at(TSemicolon) {
		p.advance()
	}
	return &ast.GlobalDecl{Name: name.Val, DeclType: declType, Value: val, Line: line}
}

func parseIntLit(s string) int64 {
	var v int64
	for i := 0; i < len(s); i++ {
		v = v*10 + int64(s[i]-'0')
	}
	return v
}
