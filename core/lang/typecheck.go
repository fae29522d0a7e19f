// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Lang ▸ Type Checker
// -----------------------------------------------------
//
//   - Single pass over the AST. Every expression's inferred core.Type is
//     memoized into a side-table keyed by NodeID rather than written back
//     onto the node — this is the resolution for the "cyclic AST sharing"
//     design question: once loop unrolling (unroll.go) clones a statement
//     body N times, the clones share no node identity with the original,
//     so a side-table keyed by NodeID never collides across clones, while
//     an in-place `node.typ = ...` field would have to be copied along
//     with every clone and could easily be forgotten.
//
//   - Grounded on `typeCheckClause`/`compileExpr`'s recursive type
//     propagation in the Ivy compiler (other_examples/..._ivy-compile.go.go):
//     operator operand types are checked against declared operator
//     signatures, and a type mismatch is a synchronous, structural error
//     (wrapped here as *core.CompileError instead of Ivy's plain fmt.Errorf).
package lang

import (
	"fmt"

	"github.com/alephium-project/svm/core"
)

// builtinSig describes a built-in function's fixed argument/return types.
// A nil Returns entry (len 0) means the call produces no value; checkCall
// types such a call as the zero core.Type{} and does not reject its use
// outside an ExprStmt (see DESIGN.md, open question 6).
type builtinSig struct {
	Args    []core.Type
	Returns []core.Type
}

var builtins = map[string]builtinSig{
	"blake2b":            {Args: []core.Type{core.ByteVecType}, Returns: []core.Type{core.ByteVecType}},
	"keccak256":          {Args: []core.Type{core.ByteVecType}, Returns: []core.Type{core.ByteVecType}},
	"ethEcRecover":        {Args: []core.Type{core.ByteVecType, core.ByteVecType}, Returns: []core.Type{core.ByteVecType}},
	"verifyTxSignature":  {Args: []core.Type{core.ByteVecType}, Returns: []core.Type{core.BoolType}},
	"approveAlf":         {Args: []core.Type{core.AddressType, core.U256Type}},
	"transferAlf":        {Args: []core.Type{core.AddressType, core.AddressType, core.U256Type}},
	"useContractAssets":  {Args: []core.Type{core.AddressType}},
	"generateOutput":     {Args: []core.Type{core.AddressType, core.U256Type}},
}

// Checker holds the NodeID -> core.Type side-table for one compilation
// unit plus the sibling-method index used to resolve CallLocal targets.
type Checker struct {
	types   map[NodeID]core.Type
	methods map[string]*FuncDecl
	events  map[string]bool
}

// NewChecker constructs an empty Checker.
func NewChecker() *Checker {
	return &Checker{types: make(map[NodeID]core.Type)}
}

// TypeOf returns the inferred type of a previously-checked node.
func (c *Checker) TypeOf(n Node) (core.Type, bool) {
	t, ok := c.types[n.ID()]
	return t, ok
}

func (c *Checker) set(n Node, t core.Type) core.Type {
	c.types[n.ID()] = t
	return t
}

// resolveType maps a parsed TypeExpr to its runtime core.Type.
func resolveType(te *TypeExpr) (core.Type, error) {
	if te.IsArray() {
		base, err := resolveType(te.ArrayOf)
		if err != nil {
			return core.Type{}, err
		}
		return core.NewArrayType(base, te.ArrayLen), nil
	}
	switch te.Name {
	case "Bool":
		return core.BoolType, nil
	case "U256":
		return core.U256Type, nil
	case "I256":
		return core.I256Type, nil
	case "ByteVec":
		return core.ByteVecType, nil
	case "Address":
		return core.AddressType, nil
	default:
		return core.NewContractType(te.Name, core.ContractStackHandle), nil
	}
}

// CheckContract type-checks every method of a contract against a field
// scope built from its declared fields.
func (c *Checker) CheckContract(cd *ContractDecl) error {
	methods, err := indexMethods(cd.Methods)
	if err != nil {
		return core.NewCompileError("contract %s: %v", cd.Name, err)
	}
	c.methods = methods
	c.events = make(map[string]bool)
	fieldScope := NewScope(nil)
	for _, f := range cd.Fields {
		if err := fieldScope.Add(f.Name, f.Type, RoleField); err != nil {
			return core.NewCompileError("contract %s: %v", cd.Name, err)
		}
	}
	for _, m := range cd.Methods {
		if err := c.checkFunc(m, fieldScope); err != nil {
			return core.NewCompileError("contract %s, method %s: %v", cd.Name, m.Name, err)
		}
	}
	return nil
}

// CheckScript type-checks every method of a script (no field scope).
func (c *Checker) CheckScript(sd *ScriptDecl) error {
	methods, err := indexMethods(sd.Methods)
	if err != nil {
		return core.NewCompileError("script: %v", err)
	}
	c.methods = methods
	c.events = make(map[string]bool)
	for _, m := range sd.Methods {
		if err := c.checkFunc(m, nil); err != nil {
			return core.NewCompileError("script method %s: %v", m.Name, err)
		}
	}
	return nil
}

// indexMethods builds a function table keyed by name, per spec.md §4.6 step
// 1's "Build a function table keyed by FuncId; duplicates fail
// compilation" — a second method sharing a name is rejected rather than
// silently overwriting the first entry.
func indexMethods(fns []*FuncDecl) (map[string]*FuncDecl, error) {
	m := make(map[string]*FuncDecl, len(fns))
	for _, fn := range fns {
		if _, dup := m[fn.Name]; dup {
			return nil, fmt.Errorf("duplicate function name %q", fn.Name)
		}
		m[fn.Name] = fn
	}
	return m, nil
}

func (c *Checker) checkFunc(fn *FuncDecl, outer *Scope) error {
	scope := NewScope(outer)
	for _, p := range fn.Params {
		if err := scope.Add(p.Name, p.Type, RoleParam); err != nil {
			return err
		}
	}
	for _, s := range fn.Body {
		if err := c.checkStmt(s, scope, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(s Stmt, scope *Scope, fn *FuncDecl) error {
	switch st := s.(type) {
	case *LetStmt:
		vt, err := c.checkExpr(st.Value, scope)
		if err != nil {
			return err
		}
		declType := st.Type
		if declType == nil {
			declType = typeExprFromCoreType(vt, st.ID())
		} else {
			want, err := resolveType(declType)
			if err != nil {
				return err
			}
			if !want.Equal(vt) {
				return fmt.Errorf("let %s: declared type %s does not match value type %s", st.Name, want, vt)
			}
		}
		return scope.Add(st.Name, declType, RoleLocal)

	case *AssignStmt:
		tt, err := c.checkExpr(st.Target, scope)
		if err != nil {
			return err
		}
		vt, err := c.checkExpr(st.Value, scope)
		if err != nil {
			return err
		}
		if !tt.Equal(vt) {
			return fmt.Errorf("assignment type mismatch: %s = %s", tt, vt)
		}
		return nil

	case *IfStmt:
		ct, err := c.checkExpr(st.Cond, scope)
		if err != nil {
			return err
		}
		if !ct.Equal(core.BoolType) {
			return fmt.Errorf("if condition must be Bool, got %s", ct)
		}
		thenScope := NewScope(scope)
		for _, inner := range st.Then {
			if err := c.checkStmt(inner, thenScope, fn); err != nil {
				return err
			}
		}
		if st.Else != nil {
			elseScope := NewScope(scope)
			for _, inner := range st.Else {
				if err := c.checkStmt(inner, elseScope, fn); err != nil {
					return err
				}
			}
		}
		return nil

	case *ForStmt:
		if st.High < st.Low {
			return fmt.Errorf("for %s in %d..%d: empty or inverted range", st.Var, st.Low, st.High)
		}
		loopScope := NewScope(scope)
		if err := loopScope.Add(st.Var, &TypeExpr{Name: "U256"}, RoleLocal); err != nil {
			return err
		}
		for _, inner := range st.Body {
			if err := c.checkStmt(inner, loopScope, fn); err != nil {
				return err
			}
		}
		return nil

	case *ReturnStmt:
		if len(st.Values) != len(fn.Returns) {
			return fmt.Errorf("return arity mismatch: declared %d, got %d", len(fn.Returns), len(st.Values))
		}
		for i, v := range st.Values {
			vt, err := c.checkExpr(v, scope)
			if err != nil {
				return err
			}
			want, err := resolveType(fn.Returns[i])
			if err != nil {
				return err
			}
			if !want.Equal(vt) {
				return fmt.Errorf("return value %d: declared %s, got %s", i, want, vt)
			}
		}
		return nil

	case *ExprStmt:
		_, err := c.checkExpr(st.X, scope)
		return err

	case *LogStmt:
		// spec.md §4.5: event names within a contract must be unique —
		// duplicates fail compilation.
		if c.events[st.EventName] {
			return fmt.Errorf("duplicate event name %q", st.EventName)
		}
		c.events[st.EventName] = true
		for _, a := range st.Args {
			if _, err := c.checkExpr(a, scope); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unhandled statement type %T", s)
	}
}

func (c *Checker) checkExpr(e Expr, scope *Scope) (core.Type, error) {
	switch x := e.(type) {
	case *Ident:
		sym, ok := scope.Lookup(x.Name)
		if !ok {
			return core.Type{}, fmt.Errorf("undefined identifier %q", x.Name)
		}
		t, err := resolveType(sym.Type)
		if err != nil {
			return core.Type{}, err
		}
		return c.set(x, t), nil

	case *IntLit:
		if x.Signed {
			return c.set(x, core.I256Type), nil
		}
		return c.set(x, core.U256Type), nil

	case *BoolLit:
		return c.set(x, core.BoolType), nil

	case *ByteVecLit:
		return c.set(x, core.ByteVecType), nil

	case *BinaryExpr:
		return c.checkBinary(x, scope)

	case *UnaryExpr:
		xt, err := c.checkExpr(x.X, scope)
		if err != nil {
			return core.Type{}, err
		}
		switch x.Op {
		case "!":
			if !xt.Equal(core.BoolType) {
				return core.Type{}, fmt.Errorf("! requires Bool operand, got %s", xt)
			}
			return c.set(x, core.BoolType), nil
		case "-":
			if !xt.Equal(core.I256Type) {
				return core.Type{}, fmt.Errorf("unary - requires I256 operand, got %s", xt)
			}
			return c.set(x, core.I256Type), nil
		}
		return core.Type{}, fmt.Errorf("unknown unary operator %q", x.Op)

	case *CallExpr:
		return c.checkCall(x, scope)

	case *ExternalCallExpr:
		tt, err := c.checkExpr(x.Target, scope)
		if err != nil {
			return core.Type{}, err
		}
		if tt.Kind != core.KindContract {
			return core.Type{}, fmt.Errorf("external call target must be a Contract handle, got %s", tt)
		}
		for _, a := range x.Args {
			if _, err := c.checkExpr(a, scope); err != nil {
				return core.Type{}, err
			}
		}
		// The callee's declared return type isn't visible from the
		// caller's compilation unit without a contract interface import,
		// which spec.md doesn't define a syntax for; external calls are
		// assumed single-U256-return, matching the common ABI shape. A
		// richer interface-import mechanism is future work, not a silent
		// bug: emit.go only ever pops one value after OpCallExternal.
		return c.set(x, core.U256Type), nil

	case *IndexExpr:
		xt, err := c.checkExpr(x.X, scope)
		if err != nil {
			return core.Type{}, err
		}
		if xt.Kind != core.KindFixedSizeArray {
			return core.Type{}, fmt.Errorf("cannot index non-array type %s", xt)
		}
		if _, ok := x.Index.(*IntLit); !ok {
			if _, ok := x.Index.(*PlaceholderExpr); !ok {
				return core.Type{}, fmt.Errorf("array index must be a compile-time constant")
			}
		}
		return c.set(x, *xt.Elem), nil

	case *FieldExpr:
		xt, err := c.checkExpr(x.X, scope)
		if err != nil {
			return core.Type{}, err
		}
		if xt.Kind != core.KindContract {
			return core.Type{}, fmt.Errorf("field access requires a Contract handle, got %s", xt)
		}
		return c.set(x, core.U256Type), nil

	case *PlaceholderExpr:
		return c.set(x, core.U256Type), nil

	default:
		return core.Type{}, fmt.Errorf("unhandled expression type %T", e)
	}
}

func (c *Checker) checkBinary(x *BinaryExpr, scope *Scope) (core.Type, error) {
	lt, err := c.checkExpr(x.Left, scope)
	if err != nil {
		return core.Type{}, err
	}
	rt, err := c.checkExpr(x.Right, scope)
	if err != nil {
		return core.Type{}, err
	}
	switch x.Op {
	case "&&", "||":
		if !lt.Equal(core.BoolType) || !rt.Equal(core.BoolType) {
			return core.Type{}, fmt.Errorf("%s requires Bool operands, got %s and %s", x.Op, lt, rt)
		}
		return c.set(x, core.BoolType), nil
	case "==", "!=":
		if !lt.Equal(rt) {
			return core.Type{}, fmt.Errorf("%s requires matching operand types, got %s and %s", x.Op, lt, rt)
		}
		return c.set(x, core.BoolType), nil
	case "<", ">", "<=", ">=":
		// Ordering comparisons are U256-only: the instruction set
		// (instruction.go's cmpU256Instr family) has no signed counterpart,
		// since spec.md never names one explicitly.
		if !lt.Equal(core.U256Type) {
			return core.Type{}, fmt.Errorf("%s requires U256 operands, got %s", x.Op, lt)
		}
		if !lt.Equal(rt) {
			return core.Type{}, fmt.Errorf("%s operand type mismatch: %s vs %s", x.Op, lt, rt)
		}
		return c.set(x, core.BoolType), nil
	case "+", "-", "*", "/", "%":
		if !lt.Equal(core.U256Type) && !lt.Equal(core.I256Type) {
			return core.Type{}, fmt.Errorf("%s requires U256 or I256 operands, got %s", x.Op, lt)
		}
		if !lt.Equal(rt) {
			return core.Type{}, fmt.Errorf("%s operand type mismatch: %s vs %s", x.Op, lt, rt)
		}
		return c.set(x, lt), nil
	default:
		return core.Type{}, fmt.Errorf("unknown binary operator %q", x.Op)
	}
}

func (c *Checker) checkCall(x *CallExpr, scope *Scope) (core.Type, error) {
	if sig, ok := builtins[x.Fn]; ok {
		if len(x.Args) != len(sig.Args) {
			return core.Type{}, fmt.Errorf("%s: want %d args, got %d", x.Fn, len(sig.Args), len(x.Args))
		}
		for i, a := range x.Args {
			at, err := c.checkExpr(a, scope)
			if err != nil {
				return core.Type{}, err
			}
			if !at.Equal(sig.Args[i]) {
				return core.Type{}, fmt.Errorf("%s: arg %d has type %s, want %s", x.Fn, i, at, sig.Args[i])
			}
		}
		if len(sig.Returns) == 0 {
			return c.set(x, core.Type{}), nil
		}
		return c.set(x, sig.Returns[0]), nil
	}
	callee, ok := c.methods[x.Fn]
	if !ok {
		return core.Type{}, fmt.Errorf("unknown function %q", x.Fn)
	}
	if len(x.Args) != len(callee.Params) {
		return core.Type{}, fmt.Errorf("%s: want %d args, got %d", x.Fn, len(callee.Params), len(x.Args))
	}
	for i, a := range x.Args {
		at, err := c.checkExpr(a, scope)
		if err != nil {
			return core.Type{}, err
		}
		want, err := resolveType(callee.Params[i].Type)
		if err != nil {
			return core.Type{}, err
		}
		if !at.Equal(want) {
			return core.Type{}, fmt.Errorf("%s: arg %d has type %s, want %s", x.Fn, i, at, want)
		}
	}
	if len(callee.Returns) == 0 {
		return c.set(x, core.Type{}), nil
	}
	rt, err := resolveType(callee.Returns[0])
	if err != nil {
		return core.Type{}, err
	}
	return c.set(x, rt), nil
}

// typeExprFromCoreType constructs a synthetic TypeExpr standing in for an
// inferred (not explicitly declared) let-binding's type, reusing id so it
// never collides with a parsed node.
func typeExprFromCoreType(t core.Type, id NodeID) *TypeExpr {
	if t.Kind == core.KindFixedSizeArray {
		return &TypeExpr{baseNode: baseNode{id}, ArrayOf: typeExprFromCoreType(*t.Elem, id), ArrayLen: t.Length}
	}
	if t.Kind == core.KindContract {
		return &TypeExpr{baseNode: baseNode{id}, Name: t.ContractTypeID}
	}
	return &TypeExpr{baseNode: baseNode{id}, Name: t.Kind.String()}
}
