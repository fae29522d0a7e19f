// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Lang ▸ Emitter
// -----------------------------------------------
//
//   - Post-order traversal over a type-checked, fully-unrolled FuncDecl,
//     producing a flat core.Method. Control flow (If) backpatches its
//     jump instructions once both branch lengths are known; every branch
//     offset is checked against the int8 range before being written, so a
//     branch whose offset falls outside -128..127 (a forward branch over
//     more than 127 instructions) fails here with a CompileError rather
//     than silently truncating. Branch bodies of 128 to 255 instructions
//     are therefore rejected too.
//
//   - Grounded on the Ivy compiler's builder/jump-target bookkeeping
//     (other_examples/..._ivy-compile.go.go: `newJumpTarget`/
//     `setJumpTarget`/`addJumpIf`), adapted from Ivy's absolute-address
//     patch table to this VM's relative-offset jumps.
package lang

import (
	"fmt"

	"github.com/alephium-project/svm/core"
)

type emitter struct {
	checker             *Checker
	locals              *FlattenContext
	fieldFC             *FlattenContext // nil when emitting a script method
	localMethodIndex    map[string]int
	externalMethodIndex map[string]map[string]int
	instrs              []core.Instruction
}

// EmitFunction compiles fn into a core.Method. fieldFC is the contract's
// flattened field layout (nil for scripts). localMethodIndex maps sibling
// method names to their index for CallLocal. externalMethodIndex maps
// contract-type-name -> method-name -> index, built once across the whole
// program, for CallExternal.
func EmitFunction(checker *Checker, fn *FuncDecl, fieldFC *FlattenContext, localMethodIndex map[string]int, externalMethodIndex map[string]map[string]int) (*core.Method, error) {
	e := &emitter{
		checker:             checker,
		locals:              NewFlattenContext(),
		fieldFC:             fieldFC,
		localMethodIndex:    localMethodIndex,
		externalMethodIndex: externalMethodIndex,
	}
	argsLength := 0
	for _, p := range fn.Params {
		t, err := resolveType(p.Type)
		if err != nil {
			return nil, err
		}
		e.locals.Declare(p.Name, t)
		argsLength += t.FlattenedLength()
	}
	for _, s := range fn.Body {
		if err := e.emitStmt(s); err != nil {
			return nil, fmt.Errorf("method %s: %w", fn.Name, err)
		}
	}
	return &core.Method{
		IsPublic:     fn.Public,
		IsPayable:    fn.Payable,
		ArgsLength:   argsLength,
		LocalsLength: len(e.locals.LocalTypes()),
		ReturnLength: len(fn.Returns),
		LocalTypes:   e.locals.LocalTypes(),
		Instrs:       e.instrs,
	}, nil
}

func (e *emitter) emit(i core.Instruction) int {
	e.instrs = append(e.instrs, i)
	return len(e.instrs) - 1
}

func (e *emitter) emitStmt(s Stmt) error {
	switch st := s.(type) {
	case *LetStmt:
		t, ok := e.checker.TypeOf(st.Value)
		if !ok {
			return fmt.Errorf("let %s: value was never type-checked", st.Name)
		}
		if t.Kind == core.KindFixedSizeArray {
			return core.NewCompileError("let %s: array-valued let initializers are not supported; declare arrays as parameters or fields", st.Name)
		}
		if _, err := e.emitExpr(st.Value); err != nil {
			return err
		}
		slot := e.locals.Declare(st.Name, t)
		e.emit(core.StoreLocalInstr{Index: slot})
		return nil

	case *AssignStmt:
		return e.emitAssign(st)

	case *IfStmt:
		return e.emitIf(st)

	case *ForStmt:
		return core.NewCompileError("internal: unrolled loop survived to emission")

	case *ReturnStmt:
		for _, v := range st.Values {
			if _, err := e.emitExpr(v); err != nil {
				return err
			}
		}
		e.emit(core.ReturnInstr{})
		return nil

	case *ExprStmt:
		pushed, err := e.emitExpr(st.X)
		if err != nil {
			return err
		}
		if pushed {
			e.emit(core.PopInstr{})
		}
		return nil

	case *LogStmt:
		for _, a := range st.Args {
			if _, err := e.emitExpr(a); err != nil {
				return err
			}
		}
		e.emit(core.LogInstr{EventID: []byte(st.EventName), N: len(st.Args)})
		return nil

	default:
		return fmt.Errorf("unhandled statement type %T", s)
	}
}

func (e *emitter) emitAssign(st *AssignStmt) error {
	switch target := st.Target.(type) {
	case *Ident:
		if _, err := e.emitExpr(st.Value); err != nil {
			return err
		}
		if slot, ok := e.locals.Resolve(target.Name); ok {
			e.emit(core.StoreLocalInstr{Index: slot})
			return nil
		}
		if e.fieldFC != nil {
			if slot, ok := e.fieldFC.Resolve(target.Name); ok {
				e.emit(core.StoreFieldInstr{Index: slot})
				return nil
			}
		}
		return fmt.Errorf("assignment to undeclared identifier %q", target.Name)

	case *IndexExpr:
		base, ok := target.X.(*Ident)
		if !ok {
			return fmt.Errorf("only simple array[const] assignment is supported")
		}
		idx, ok := constIntValue(target.Index)
		if !ok {
			return fmt.Errorf("array index must be a compile-time constant")
		}
		arrType, ok := e.checker.TypeOf(base)
		if !ok {
			return fmt.Errorf("array %q was never type-checked", base.Name)
		}
		if _, err := e.emitExpr(st.Value); err != nil {
			return err
		}
		if slot, ok := e.locals.Resolve(base.Name); ok {
			off, _ := arrayOffset(arrType, slot, idx)
			e.emit(core.StoreLocalInstr{Index: off})
			return nil
		}
		if e.fieldFC != nil {
			if slot, ok := e.fieldFC.Resolve(base.Name); ok {
				off, _ := arrayOffset(arrType, slot, idx)
				e.emit(core.StoreFieldInstr{Index: off})
				return nil
			}
		}
		return fmt.Errorf("assignment to undeclared array %q", base.Name)

	default:
		return fmt.Errorf("unsupported assignment target %T", st.Target)
	}
}

func (e *emitter) emitIf(st *IfStmt) error {
	if _, err := e.emitExpr(st.Cond); err != nil {
		return err
	}
	ifFalseIdx := e.emit(core.NewIfFalseInstr(0, 0))
	for _, s := range st.Then {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}
	if st.Else == nil {
		target := len(e.instrs)
		off, err := jumpOffset(ifFalseIdx, target)
		if err != nil {
			return err
		}
		e.instrs[ifFalseIdx] = core.NewIfFalseInstr(ifFalseIdx, off)
		return nil
	}
	jumpEndIdx := e.emit(core.NewJumpInstr(0, 0))
	elseTarget := len(e.instrs)
	off, err := jumpOffset(ifFalseIdx, elseTarget)
	if err != nil {
		return err
	}
	e.instrs[ifFalseIdx] = core.NewIfFalseInstr(ifFalseIdx, off)

	for _, s := range st.Else {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}
	endTarget := len(e.instrs)
	off2, err := jumpOffset(jumpEndIdx, endTarget)
	if err != nil {
		return err
	}
	e.instrs[jumpEndIdx] = core.NewJumpInstr(jumpEndIdx, off2)
	return nil
}

// jumpOffset computes the signed byte offset for a jump instruction sitting
// at instrIdx targeting target, failing with a CompileError if the offset
// does not fit a signed byte (-128..127): a forward branch may skip at most
// 127 instructions.
func jumpOffset(instrIdx, target int) (int8, error) {
	off := target - (instrIdx + 1)
	if off < -128 || off > 127 {
		return 0, core.NewCompileError("branch too long: offset %d exceeds the one-byte jump range", off)
	}
	return int8(off), nil
}

func constIntValue(e Expr) (int, bool) {
	if lit, ok := e.(*IntLit); ok {
		return int(lit.Value), true
	}
	return 0, false
}

func (e *emitter) emitExpr(expr Expr) (bool, error) {
	switch x := expr.(type) {
	case *Ident:
		if slot, ok := e.locals.Resolve(x.Name); ok {
			e.emit(core.LoadLocalInstr{Index: slot})
			return true, nil
		}
		if e.fieldFC != nil {
			if slot, ok := e.fieldFC.Resolve(x.Name); ok {
				e.emit(core.LoadFieldInstr{Index: slot})
				return true, nil
			}
		}
		return false, fmt.Errorf("undeclared identifier %q", x.Name)

	case *IntLit:
		if x.Signed {
			e.emit(core.ConstInstr{V: core.NewI256FromInt64(x.Value)})
		} else {
			e.emit(core.ConstInstr{V: core.NewU256FromUint64(uint64(x.Value))})
		}
		return true, nil

	case *BoolLit:
		e.emit(core.ConstInstr{V: core.NewBool(x.Value)})
		return true, nil

	case *ByteVecLit:
		e.emit(core.ConstInstr{V: core.NewByteVec(x.Value)})
		return true, nil

	case *PlaceholderExpr:
		return false, fmt.Errorf("internal: unresolved loop placeholder %q reached emission", x.Var)

	case *BinaryExpr:
		return true, e.emitBinary(x)

	case *UnaryExpr:
		return true, e.emitUnary(x)

	case *CallExpr:
		return e.emitCall(x)

	case *ExternalCallExpr:
		return e.emitExternalCall(x)

	case *IndexExpr:
		return true, e.emitIndexLoad(x)

	case *FieldExpr:
		return false, fmt.Errorf("contract field projection across external references is not supported")

	default:
		return false, fmt.Errorf("unhandled expression type %T", expr)
	}
}

func (e *emitter) emitIndexLoad(x *IndexExpr) error {
	base, ok := x.X.(*Ident)
	if !ok {
		return fmt.Errorf("only simple array[const] indexing is supported")
	}
	idx, ok := constIntValue(x.Index)
	if !ok {
		return fmt.Errorf("array index must be a compile-time constant")
	}
	arrType, ok := e.checker.TypeOf(base)
	if !ok {
		return fmt.Errorf("array %q was never type-checked", base.Name)
	}
	if slot, ok := e.locals.Resolve(base.Name); ok {
		off, _ := arrayOffset(arrType, slot, idx)
		e.emit(core.LoadLocalInstr{Index: off})
		return nil
	}
	if e.fieldFC != nil {
		if slot, ok := e.fieldFC.Resolve(base.Name); ok {
			off, _ := arrayOffset(arrType, slot, idx)
			e.emit(core.LoadFieldInstr{Index: off})
			return nil
		}
	}
	return fmt.Errorf("undeclared array %q", base.Name)
}

func (e *emitter) emitUnary(x *UnaryExpr) error {
	if x.Op == "!" {
		if _, err := e.emitExpr(x.X); err != nil {
			return err
		}
		e.emit(core.NotInstr{})
		return nil
	}
	// Unary minus: 0 - x, interpreted as I256 (the only signed numeric
	// type with a sign to flip).
	e.emit(core.ConstInstr{V: core.NewI256FromInt64(0)})
	if _, err := e.emitExpr(x.X); err != nil {
		return err
	}
	e.emit(core.SubI256Instr)
	return nil
}

func (e *emitter) emitBinary(x *BinaryExpr) error {
	if _, err := e.emitExpr(x.Left); err != nil {
		return err
	}
	if _, err := e.emitExpr(x.Right); err != nil {
		return err
	}
	lt, _ := e.checker.TypeOf(x.Left)
	signed := lt.Equal(core.I256Type)

	switch x.Op {
	case "+":
		e.emit(pick(signed, core.AddI256Instr, core.AddU256Instr))
	case "-":
		e.emit(pick(signed, core.SubI256Instr, core.SubU256Instr))
	case "*":
		e.emit(pick(signed, core.MulI256Instr, core.MulU256Instr))
	case "/":
		e.emit(pick(signed, core.DivI256Instr, core.DivU256Instr))
	case "%":
		e.emit(pick(signed, core.ModI256Instr, core.ModU256Instr))
	case "==":
		e.emit(core.EqInstr{})
	case "!=":
		e.emit(core.EqInstr{Negate: true})
	case "<":
		e.emit(core.LtU256Instr)
	case ">":
		e.emit(core.GtU256Instr)
	case "<=":
		e.emit(core.LeU256Instr)
	case ">=":
		e.emit(core.GeU256Instr)
	case "&&":
		e.emit(core.AndInstr{})
	case "||":
		e.emit(core.OrInstr{})
	default:
		return fmt.Errorf("unknown binary operator %q", x.Op)
	}
	return nil
}

func pick(signed bool, whenSigned, whenUnsigned core.Instruction) core.Instruction {
	if signed {
		return whenSigned
	}
	return whenUnsigned
}

func (e *emitter) emitCall(x *CallExpr) (bool, error) {
	if sig, ok := builtins[x.Fn]; ok {
		for _, a := range x.Args {
			if _, err := e.emitExpr(a); err != nil {
				return false, err
			}
		}
		switch x.Fn {
		case "blake2b":
			e.emit(core.Blake2bInstr{})
		case "keccak256":
			e.emit(core.Keccak256Instr{})
		case "ethEcRecover":
			e.emit(core.EthEcRecoverInstr{})
		case "verifyTxSignature":
			e.emit(core.VerifyTxSignatureInstr{})
		case "approveAlf":
			e.emit(core.ApproveAlfInstr{})
		case "transferAlf":
			e.emit(core.TransferAlfInstr{})
		case "useContractAssets":
			e.emit(core.UseContractAssetsInstr{})
		case "generateOutput":
			e.emit(core.GenerateOutputInstr{})
		default:
			return false, fmt.Errorf("unhandled builtin %q", x.Fn)
		}
		return len(sig.Returns) > 0, nil
	}
	idx, ok := e.localMethodIndex[x.Fn]
	if !ok {
		return false, fmt.Errorf("unknown function %q", x.Fn)
	}
	for _, a := range x.Args {
		if _, err := e.emitExpr(a); err != nil {
			return false, err
		}
	}
	e.emit(core.CallLocalInstr{MethodIndex: idx})
	return true, nil
}

func (e *emitter) emitExternalCall(x *ExternalCallExpr) (bool, error) {
	tt, ok := e.checker.TypeOf(x.Target)
	if !ok || tt.Kind != core.KindContract {
		return false, fmt.Errorf("external call target was never resolved to a contract type")
	}
	methods, ok := e.externalMethodIndex[tt.ContractTypeID]
	if !ok {
		return false, fmt.Errorf("unknown contract type %q", tt.ContractTypeID)
	}
	idx, ok := methods[x.MethodName]
	if !ok {
		return false, fmt.Errorf("contract %q has no method %q", tt.ContractTypeID, x.MethodName)
	}
	if _, err := e.emitExpr(x.Target); err != nil {
		return false, err
	}
	for _, a := range x.Args {
		if _, err := e.emitExpr(a); err != nil {
			return false, err
		}
	}
	e.emit(core.CallExternalInstr{MethodIndex: idx})
	return true, nil
}
