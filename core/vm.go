// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Frame-Stack VM
// --------------------------------------------
//
//   - Execute drives a stack of Frames to completion: fetch the top frame's
//     next instruction, charge its base gas cost, execute it. CallLocal and
//     CallExternal push a new frame via pushCall rather than recursing into
//     Execute, so arbitrarily deep (but still gas-bounded) call chains never
//     grow the Go call stack — matching spec.md §4.2's iterative execution
//     model.
//
//   - Grounded on LightVM.Execute's fetch-decode-charge-dispatch loop in the
//     teacher's (now superseded) virtual_machine.go, generalised from one
//     flat instruction tape to a frame stack so CallLocal/CallExternal are
//     ordinary instructions instead of special-cased recursive calls.
package core

import "github.com/sirupsen/logrus"

// VM executes compiled methods against an execution context. A VM value is
// single-use: construct one per top-level Execute call.
type VM struct {
	frames     *Stack[*Frame]
	operandCap int
}

// NewVM constructs a VM bounding call depth to maxFrames and each frame's
// operand stack to operandCap.
func NewVM(maxFrames, operandCap int) *VM {
	return &VM{frames: NewStack[*Frame](maxFrames), operandCap: operandCap}
}

// Execute runs method to completion against ctx, returning its declared
// return values.
func (vm *VM) Execute(ctx StatelessContext, code CodeObject, contract ContractID, method *Method, args []Value) ([]Value, error) {
	var result []Value
	root := func(values []Value) error { result = values; return nil }

	f, err := NewFrame(code, contract, method, args, method.LocalTypes, vm.operandCap, root)
	if err != nil {
		return nil, err
	}
	if err := vm.frames.Push(f); err != nil {
		return nil, err
	}

	if err := vm.run(ctx); err != nil {
		logrus.WithError(err).WithField("contract", contract.String()).Debug("script execution failed")
		return nil, err
	}
	return result, nil
}

func (vm *VM) run(ctx StatelessContext) error {
	for vm.frames.Len() > 0 {
		top, err := vm.frames.Peek()
		if err != nil {
			return err
		}
		if top.IsComplete() {
			if _, err := vm.frames.Pop(); err != nil {
				return err
			}
			continue
		}
		if top.PC >= len(top.Method.Instrs) {
			// Fell off the end without an explicit Return: implicitly
			// return no values.
			if err := top.finish(nil); err != nil {
				return err
			}
			continue
		}
		instr, err := top.fetch()
		if err != nil {
			return err
		}
		if err := ctx.ChargeGas(GasCost(instr.Op())); err != nil {
			return err
		}
		if instr.Op().IsStateful() {
			if _, ok := ctx.(StatefulContext); !ok {
				return newExecErr(ErrInvalidOpcode, "opcode %04x requires a stateful context", instr.Op())
			}
		}
		if err := instr.Exec(vm, top, ctx); err != nil {
			return err
		}
	}
	return nil
}

// pushCall constructs a new activation record for (code, contract, method)
// bound to args, whose return values are appended to caller's operand
// stack, and pushes it on top of the frame stack — it becomes the next
// frame Execute's loop fetches from.
func (vm *VM) pushCall(code CodeObject, contract ContractID, method *Method, args []Value, caller *Frame) error {
	returnTo := func(values []Value) error {
		for _, v := range values {
			if err := caller.Operand.Push(v); err != nil {
				return err
			}
		}
		return nil
	}
	f, err := NewFrame(code, contract, method, args, method.LocalTypes, vm.operandCap, returnTo)
	if err != nil {
		return err
	}
	return vm.frames.Push(f)
}
