package check

import (
	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/builtins"
)

// checkExpr validates e's operands and sets e.Inferred (spec.md §4.1
// "Contract per expression").
func (c *Context) checkExpr(e *ast.Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.EIntLit:
		e.Inferred = ast.Int
	case ast.EFloatLit:
		e.Inferred = ast.Float
	case ast.EBoolLit:
		e.Inferred = ast.Bool
	case ast.EStrLit:
		e.Inferred = ast.Str
	case ast.ENullLit:
		e.Inferred = ast.Void
	case ast.EVar:
		c.checkVar(e)
	case ast.ECall:
		c.checkCall(e)
	case ast.EUnary:
		c.checkUnary(e)
	case ast.EBinary:
		c.checkBinary(e)
	case ast.EArrayLit:
		c.checkArrayLit(e)
	case ast.EIndex:
		c.checkIndex(e)
	case ast.EMapLit:
		c.checkMapLit(e)
	case ast.EStructLit:
		c.checkStructLit(e)
	case ast.EField:
		c.checkField(e)
	case ast.ETuple:
		elems := make([]*ast.Type, len(e.Elems))
		for i, x := range e.Elems {
			c.checkExpr(x)
			elems[i] = x.Inferred
		}
		e.Inferred = ast.Tuple(elems...)
	case ast.ELambda:
		c.checkLambda(e)
	case ast.EEnumMember:
		c.checkEnumMember(e)
	case ast.EFString:
		for _, x := range e.ExprParts {
			c.checkExpr(x)
		}
		e.Inferred = ast.Str
	case ast.EMethodCall:
		c.checkMethodCall(e)
	case ast.ENew:
		c.checkNew(e)
	case ast.ESuperCall:
		c.checkSuperCall(e)
	case ast.EFuncRef:
		if sig, ok := c.funcs[e.Name]; ok {
			e.FnIndex = sig.Index
			e.Inferred = ast.Func(sig.Params, sig.Return)
		} else {
			c.errorf(e.Line, "undefined function %q", e.Name)
			e.Inferred = ast.Void
		}
	default:
		c.errorf(e.Line, "internal: unhandled expression kind %d", e.Kind)
		e.Inferred = ast.Void
	}
}

func (c *Context) checkVar(e *ast.Expr) {
	if t, ok := c.lookup(e.Name); ok {
		e.Inferred = t
		return
	}
	if info, ok := c.enums[e.Name]; ok {
		_ = info
		c.errorf(e.Line, "%q names an enum type, not a value", e.Name)
		e.Inferred = ast.Void
		return
	}
	c.errorf(e.Line, "undefined: %s", e.Name)
	e.Inferred = ast.Void
}

// checkCall resolves the callee of e to a builtin, user function, or extern,
// per spec.md §4.1's three-way call-resolution contract.
func (c *Context) checkCall(e *ast.Expr) {
	for _, a := range e.Args {
		c.checkExpr(a)
	}

	if sig, ok := builtins.Lookup(e.Name); ok {
		e.FnIndex = ast.CallBuiltin
		e.BuiltinID = sig.ID
		if !sig.Variadic && len(e.Args) != len(sig.Params) {
			c.errorf(e.Line, "%s: expected %d arguments, got %d", e.Name, len(sig.Params), len(e.Args))
		} else if !sig.Variadic {
			for i, a := range e.Args {
				if !assignable(sig.Params[i], a.Inferred) {
					c.errorf(a.Line, "%s: argument %d: cannot use %s as %s", e.Name, i+1, a.Inferred, sig.Params[i])
				}
			}
		}
		e.Inferred = sig.Return
		return
	}

	if sig, ok := c.funcs[e.Name]; ok {
		e.FnIndex = sig.Index
		checkArgs(c, e, sig)
		e.Inferred = sig.Return
		return
	}

	if sig, ok := c.externs[e.Name]; ok {
		e.FnIndex = ast.CallExtern
		e.ExternIdx = sig.Index
		checkArgs(c, e, sig)
		e.Inferred = sig.Return
		return
	}

	c.errorf(e.Line, "undefined: %s (used as function)", e.Name)
	e.Inferred = ast.Void
}

func checkArgs(c *Context, e *ast.Expr, sig *funcSig) {
	if sig.Variadic {
		if len(e.Args) < len(sig.Params) {
			c.errorf(e.Line, "%s: expected at least %d arguments, got %d", e.Name, len(sig.Params), len(e.Args))
			return
		}
	} else if len(e.Args) != len(sig.Params) {
		c.errorf(e.Line, "%s: expected %d arguments, got %d", e.Name, len(sig.Params), len(e.Args))
		return
	}
	for i := 0; i < len(sig.Params); i++ {
		a := e.Args[i]
		if !assignable(sig.Params[i], a.Inferred) {
			c.errorf(a.Line, "%s: argument %d: cannot use %s as %s", e.Name, i+1, a.Inferred, sig.Params[i])
		}
	}
}

// assignable reports whether a value of type from may be used where to is
// expected, including the one implicit widening spec.md §4.1 allows: int -> float.
func assignable(to, from *ast.Type) bool {
	if ast.Equal(to, from) {
		return true
	}
	if to != nil && from != nil && to.Kind == ast.KFloat && from.Kind == ast.KInt {
		return true
	}
	return false
}

func (c *Context) checkUnary(e *ast.Expr) {
	c.checkExpr(e.X)
	switch e.Op {
	case "-":
		if !e.X.Inferred.IsNumeric() {
			c.errorf(e.Line, "unary -: operand must be numeric, got %s", e.X.Inferred)
		}
		e.Inferred = e.X.Inferred
	case "!", "not":
		if e.X.Inferred.Kind != ast.KBool {
			c.errorf(e.Line, "unary not: operand must be bool, got %s", e.X.Inferred)
		}
		e.Inferred = ast.Bool
	case "~":
		if !e.X.Inferred.IsInteger() {
			c.errorf(e.Line, "unary ~: operand must be an integer type, got %s", e.X.Inferred)
		}
		e.Inferred = e.X.Inferred
	default:
		c.errorf(e.Line, "internal: unknown unary operator %q", e.Op)
		e.Inferred = ast.Void
	}
}

func (c *Context) checkBinary(e *ast.Expr) {
	c.checkExpr(e.X)
	c.checkExpr(e.Y)
	lt, rt := e.X.Inferred, e.Y.Inferred

	switch e.Op {
	case "+", "-", "*", "/", "%":
		if e.Op == "+" && lt.Kind == ast.KStr && rt.Kind == ast.KStr {
			e.Inferred = ast.Str
			return
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			c.errorf(e.Line, "%s: operands must be numeric, got %s and %s", e.Op, lt, rt)
			e.Inferred = ast.Int
			return
		}
		if ast.Equal(lt, rt) {
			e.Inferred = lt
			return
		}
		// Division with one float and one int operand widens to float; any
		// other mixed int/float arithmetic is a type error.
		if e.Op == "/" && ((lt.Kind == ast.KFloat && rt.Kind == ast.KInt) || (lt.Kind == ast.KInt && rt.Kind == ast.KFloat)) {
			e.Inferred = ast.Float
			return
		}
		c.errorf(e.Line, "%s: mismatched numeric types %s and %s", e.Op, lt, rt)
		e.Inferred = lt
	case "&", "|", "^", "<<", ">>":
		if !lt.IsInteger() || !rt.IsInteger() {
			c.errorf(e.Line, "%s: operands must be integers, got %s and %s", e.Op, lt, rt)
		}
		e.Inferred = lt
	case "==", "!=":
		if !ast.Equal(lt, rt) {
			c.errorf(e.Line, "%s: operands must have identical types, got %s and %s", e.Op, lt, rt)
		}
		e.Inferred = ast.Bool
	case "<", "<=", ">", ">=":
		if !lt.IsNumeric() || !rt.IsNumeric() || (!ast.Equal(lt, rt) && !(lt.IsNumeric() && rt.IsNumeric())) {
			if !lt.IsNumeric() || !rt.IsNumeric() {
				c.errorf(e.Line, "%s: operands must be numeric, got %s and %s", e.Op, lt, rt)
			}
		}
		e.Inferred = ast.Bool
	case "and", "or":
		if lt.Kind != ast.KBool || rt.Kind != ast.KBool {
			c.errorf(e.Line, "%s: operands must be bool, got %s and %s", e.Op, lt, rt)
		}
		e.Inferred = ast.Bool
	default:
		c.errorf(e.Line, "internal: unknown binary operator %q", e.Op)
		e.Inferred = ast.Void
	}
}

func (c *Context) checkArrayLit(e *ast.Expr) {
	var elemTy *ast.Type
	for i, x := range e.Elems {
		c.checkExpr(x)
		if i == 0 {
			elemTy = x.Inferred
		} else if !ast.Equal(elemTy, x.Inferred) {
			c.errorf(x.Line, "array literal: element %d has type %s, expected %s", i, x.Inferred, elemTy)
		}
	}
	if elemTy == nil {
		elemTy = ast.Void
	}
	e.Inferred = ast.Array(elemTy)
}

func (c *Context) checkIndex(e *ast.Expr) {
	c.checkExpr(e.Collection)
	c.checkExpr(e.IndexExpr)
	ct := e.Collection.Inferred
	switch ct.Kind {
	case ast.KArray:
		if !e.IndexExpr.Inferred.IsInteger() {
			c.errorf(e.Line, "array index must be an integer, got %s", e.IndexExpr.Inferred)
		}
		e.Inferred = ct.Elem
	case ast.KMap:
		if !ast.Equal(ct.Key, e.IndexExpr.Inferred) {
			c.errorf(e.Line, "map index: key type %s does not match map key type %s", e.IndexExpr.Inferred, ct.Key)
		}
		e.Inferred = ct.Value
	case ast.KStr:
		e.Inferred = ast.Str
	default:
		c.errorf(e.Line, "cannot index value of type %s", ct)
		e.Inferred = ast.Void
	}
}

func (c *Context) checkMapLit(e *ast.Expr) {
	var keyTy, valTy *ast.Type
	for i := range e.Keys {
		c.checkExpr(e.Keys[i])
		c.checkExpr(e.Values[i])
		if i == 0 {
			keyTy, valTy = e.Keys[i].Inferred, e.Values[i].Inferred
		} else {
			if !ast.Equal(keyTy, e.Keys[i].Inferred) {
				c.errorf(e.Keys[i].Line, "map literal: key %d has type %s, expected %s", i, e.Keys[i].Inferred, keyTy)
			}
			if !ast.Equal(valTy, e.Values[i].Inferred) {
				c.errorf(e.Values[i].Line, "map literal: value %d has type %s, expected %s", i, e.Values[i].Inferred, valTy)
			}
		}
	}
	if keyTy == nil {
		keyTy, valTy = ast.Void, ast.Void
	}
	e.Inferred = ast.Map(keyTy, valTy)
}

func (c *Context) checkStructLit(e *ast.Expr) {
	fields, ok := c.structs[e.Name]
	if !ok {
		c.errorf(e.Line, "undefined struct type %q", e.Name)
		e.Inferred = ast.Void
		return
	}
	fieldTy := c.structTy[e.Name]
	for i, fname := range e.FieldNames {
		val := e.FieldVals[i]
		c.checkExpr(val)
		idx, ok := fields[fname]
		if !ok {
			c.errorf(val.Line, "struct %s has no field %q", e.Name, fname)
			continue
		}
		if !assignable(fieldTy[idx], val.Inferred) {
			c.errorf(val.Line, "field %s.%s: cannot use %s as %s", e.Name, fname, val.Inferred, fieldTy[idx])
		}
	}
	e.Inferred = ast.Struct(e.Name)
}

func (c *Context) checkField(e *ast.Expr) {
	c.checkExpr(e.Base)
	bt := e.Base.Inferred
	var fields map[string]int
	var fieldTy []*ast.Type
	switch bt.Kind {
	case ast.KStruct:
		fields, fieldTy = c.structs[bt.Name], c.structTy[bt.Name]
	case ast.KClass:
		info, ok := c.classes[bt.Name]
		if !ok {
			c.errorf(e.Line, "undefined class %q", bt.Name)
			e.Inferred = ast.Void
			return
		}
		fields, fieldTy = c.fieldsOf(info)
	default:
		c.errorf(e.Line, "cannot access field %q on non-struct/class type %s", e.Name, bt)
		e.Inferred = ast.Void
		return
	}
	idx, ok := fields[e.Name]
	if !ok {
		c.errorf(e.Line, "type %s has no field %q", bt, e.Name)
		e.Inferred = ast.Void
		return
	}
	e.FieldIdx = idx
	e.Inferred = fieldTy[idx]
}

// fieldsOf walks the class inheritance chain, parent fields first, so field
// indices are stable across subclassing.
func (c *Context) fieldsOf(info *classInfo) (map[string]int, []*ast.Type) {
	var chain []*classInfo
	for cur := info; cur != nil; {
		chain = append([]*classInfo{cur}, chain...)
		if cur.Parent == "" {
			break
		}
		cur = c.classes[cur.Parent]
	}
	fields := map[string]int{}
	var tys []*ast.Type
	for _, cl := range chain {
		names := make([]string, len(cl.Fields))
		for n, idx := range cl.Fields {
			names[idx] = n
		}
		for _, n := range names {
			fields[n] = len(tys)
			tys = append(tys, cl.FieldTy[cl.Fields[n]])
		}
	}
	return fields, tys
}

func (c *Context) checkEnumMember(e *ast.Expr) {
	members, ok := c.enums[e.Name]
	if !ok {
		c.errorf(e.Line, "undefined enum %q", e.Name)
		e.Inferred = ast.Void
		return
	}
	val, ok := members[e.Member]
	if !ok {
		c.errorf(e.Line, "enum %s has no member %q", e.Name, e.Member)
		e.Inferred = ast.Enum(e.Name)
		return
	}
	e.Int = val
	e.Inferred = ast.Enum(e.Name)
}

// checkLambda assigns a synthetic function index, matching spec.md §4.1
// ("Lambdas receive a synthetic function index and an anonymous name
// stored on the lambda's inferred type").
func (c *Context) checkLambda(e *ast.Expr) {
	idx := len(c.mod.Funcs)
	name := lambdaName(c)
	fn := &ast.FuncDecl{Name: name, Params: e.Params, RetType: e.RetType, Body: e.Body, Index: idx, IsLambda: true}
	c.mod.Funcs = append(c.mod.Funcs, fn)
	params := make([]*ast.Type, len(e.Params))
	for i, p := range e.Params {
		params[i] = p.Type
	}
	sig := &funcSig{Params: params, Return: e.RetType, Index: idx}
	c.funcs[name] = sig
	e.LambdaFn = idx
	e.Inferred = ast.Func(params, e.RetType)

	// Check the lambda body now, in its own scope, capturing nothing (BP
	// lambdas are plain synthetic functions per spec.md §3).
	savedFn := c.curFunc
	c.curFunc = sig
	c.pushScope()
	for _, p := range e.Params {
		c.declare(p.Name, p.Type)
	}
	c.checkBlock(e.Body, e.RetType)
	c.popScope()
	c.curFunc = savedFn
}

func lambdaName(c *Context) string {
	n := c.lambdaCount
	c.lambdaCount++
	return "__lambda_" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (c *Context) checkMethodCall(e *ast.Expr) {
	c.checkExpr(e.Base)
	bt := e.Base.Inferred
	if bt.Kind != ast.KClass {
		c.errorf(e.Line, "method call on non-class type %s", bt)
		e.Inferred = ast.Void
		return
	}
	info, ok := c.classes[bt.Name]
	if !ok {
		c.errorf(e.Line, "undefined class %q", bt.Name)
		e.Inferred = ast.Void
		return
	}
	for _, a := range e.Args {
		c.checkExpr(a)
	}
	cur := info
	for cur != nil {
		if idx, ok := cur.Methods[e.Name]; ok {
			sig := cur.MethSig[idx]
			e.MethodIdx = idx
			checkArgs(c, e, &sig)
			e.Inferred = sig.Return
			return
		}
		if cur.Parent == "" {
			break
		}
		cur = c.classes[cur.Parent]
	}
	c.errorf(e.Line, "class %s has no method %q", bt.Name, e.Name)
	e.Inferred = ast.Void
}

func (c *Context) checkNew(e *ast.Expr) {
	info, ok := c.classes[e.Name]
	if !ok {
		c.errorf(e.Line, "undefined class %q", e.Name)
		e.Inferred = ast.Void
		return
	}
	for _, a := range e.Args {
		c.checkExpr(a)
	}
	e.ClassIdx = info.Index
	e.Inferred = ast.Class(e.Name)
}

func (c *Context) checkSuperCall(e *ast.Expr) {
	if c.curClass == nil || c.curClass.Parent == "" {
		c.errorf(e.Line, "super call outside a subclass method")
		e.Inferred = ast.Void
		return
	}
	parent := c.classes[c.curClass.Parent]
	for _, a := range e.Args {
		c.checkExpr(a)
	}
	idx, ok := parent.Methods[e.Name]
	if !ok {
		c.errorf(e.Line, "superclass %s has no method %q", parent.decl.Name, e.Name)
		e.Inferred = ast.Void
		return
	}
	sig := parent.MethSig[idx]
	e.MethodIdx = idx
	checkArgs(c, e, &sig)
	e.Inferred = sig.Return
}

// coerceAssign validates an assignment/let of value into a declared type,
// allowing the single int->float widening spec.md §4.1 documents.
func (c *Context) coerceAssign(declType *ast.Type, value *ast.Expr) {
	if !assignable(declType, value.Inferred) {
		c.errorf(value.Line, "cannot assign value of type %s to variable of type %s", value.Inferred, declType)
	}
}
