// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Frame
// -----------------------------------
//
// Grounded on LightVM.Execute's pc/stack bookkeeping in the teacher's
// virtual_machine.go, generalised from one flat byte-opcode loop into a
// frame-stack machine: each call gets its own Frame with its own operand
// stack, pc and locals, and Frame construction (arg binding, zero-init of
// remaining locals) is centralised here instead of inlined per call site.
package core

// ReturnContinuation is invoked when a frame executes Return (or falls off
// the end of its instructions with nothing to return). It either writes to
// the parent frame's operand stack (inner call) or to a caller-supplied
// collector (entry call).
type ReturnContinuation func(values []Value) error

// Frame is one activation record of a method call. pc indexes into
// method.Instrs and must stay within [0, len(Instrs)]. Locals indices must
// stay within [0, method.LocalsLength).
type Frame struct {
	Code     CodeObject
	Contract ContractID // zero value for stateless/script-local frames
	Method   *Method
	PC       int
	Locals   []Value
	Operand  *Stack[Value]

	returnTo ReturnContinuation
	complete bool
}

// NewFrame constructs a Frame for method, binding the first len(args)
// locals to args and zero-initialising the rest from localTypes (a U256 zero
// for any slot localTypes does not cover).
func NewFrame(code CodeObject, contract ContractID, method *Method, args []Value, localTypes []Type, operandCap int, returnTo ReturnContinuation) (*Frame, error) {
	if len(args) != method.ArgsLength {
		return nil, newExecErr(ErrInvalidOpcode, "arg count mismatch: want %d, got %d", method.ArgsLength, len(args))
	}
	locals := make([]Value, method.LocalsLength)
	copy(locals, args)
	for i := len(args); i < method.LocalsLength; i++ {
		if i < len(localTypes) {
			locals[i] = localTypes[i].ZeroValue()
		} else {
			locals[i] = NewU256FromUint64(0)
		}
	}
	return &Frame{
		Code:     code,
		Contract: contract,
		Method:   method,
		PC:       0,
		Locals:   locals,
		Operand:  NewStack[Value](operandCap),
		returnTo: returnTo,
	}, nil
}

// IsComplete reports whether the frame has run to completion: either its pc
// has reached the end of its instructions, or a Return instruction fired.
func (f *Frame) IsComplete() bool {
	return f.complete || f.PC >= len(f.Method.Instrs)
}

// finish marks the frame complete and invokes its return continuation with
// the given values; it does not touch the operand stack (ReturnInstr has
// already popped them, in bottom-to-top order).
func (f *Frame) finish(values []Value) error {
	f.complete = true
	if f.returnTo == nil {
		return nil
	}
	return f.returnTo(values)
}

// fetch returns the next instruction to execute and advances pc past it.
func (f *Frame) fetch() (Instruction, error) {
	if f.PC < 0 || f.PC >= len(f.Method.Instrs) {
		return nil, newExecErr(ErrInvalidPc, "pc=%d len=%d", f.PC, len(f.Method.Instrs))
	}
	instr := f.Method.Instrs[f.PC]
	f.PC++
	return instr, nil
}

// jump sets pc to a byte offset relative to the instruction after the jump
// instruction itself (instrIndex is that instruction's own index).
func (f *Frame) jump(instrIndex int, offset int8) error {
	target := instrIndex + 1 + int(offset)
	if target < 0 || target > len(f.Method.Instrs) {
		return newExecErr(ErrInvalidPc, "jump target %d out of range [0,%d]", target, len(f.Method.Instrs))
	}
	f.PC = target
	return nil
}
