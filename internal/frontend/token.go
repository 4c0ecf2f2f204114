// Package frontend is BP's lexer and parser: the external collaborator
// spec.md §1 names ("produce the AST described in §3; error reporting is
// line-keyed") and specifies only by interface. Grounded in the teacher's
// own hand-rolled Go lexer/parser (std/compiler/parser.go), generalized from
// Go's grammar to BP's brace-and-keyword surface syntax.
package frontend

// Kind tags a lexical token.
type Kind int

const (
	TEOF Kind = iota
	TIdent
	TInt
	TFloat
	TString
	TFString // raw f-string body (escapes resolved, {expr} spans left intact)

	// Keywords
	TDef
	TLet
	TIf
	TElif
	TElse
	TWhile
	TFor
	TIn
	TRange
	TBreak
	TContinue
	TReturn
	TTry
	TCatch
	TFinally
	TThrow
	TMatch
	TCase
	TDefault
	TStruct
	TEnum
	TClass
	TExtern
	TImport
	TNew
	TSuper
	TLambda
	TTrue
	TFalse
	TNull
	TAnd
	TOr
	TNot

	// Operators and punctuation
	TPlus
	TMinus
	TStar
	TSlash
	TPercent
	TAmp
	TPipe
	TCaret
	TTilde
	TShl
	TShr
	TEq
	TNeq
	TLt
	TLte
	TGt
	TGte
	TAssign
	TArrow // ->
	TLParen
	TRParen
	TLBrace
	TRBrace
	TLBrack
	TRBrack
	TComma
	TDot
	TColon
	TSemicolon
)

var keywords = map[string]Kind{
	"def": TDef, "let": TLet, "if": TIf, "elif": TElif, "else": TElse,
	"while": TWhile, "for": TFor, "in": TIn, "range": TRange,
	"break": TBreak, "continue": TContinue, "return": TReturn,
	"try": TTry, "catch": TCatch, "finally": TFinally, "throw": TThrow,
	"match": TMatch, "case": TCase, "default": TDefault,
	"struct": TStruct, "enum": TEnum, "class": TClass, "extern": TExtern,
	"import": TImport, "new": TNew, "super": TSuper, "lambda": TLambda,
	"true": TTrue, "false": TFalse, "null": TNull,
	"and": TAnd, "or": TOr, "not": TNot,
}

// Token is one lexical unit with its source line for error reporting
// (spec.md §7: "every diagnostic is line-tagged in its source form").
type Token struct {
	Kind Kind
	Val  string
	Line int
}

func (t Token) is(k Kind) bool { return t.Kind == k }
