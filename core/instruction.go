// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Instruction Set
// ----------------------------------------------
//
//   - Every instruction advertises its opcode and gas cost (see gas.go) and
//     implements Exec against a Frame and the narrowest context it needs.
//     Stateful-only instructions (asset ops, field access, events) type-
//     assert their ctx to StatefulContext and fail with InvalidOpcode if it
//     is not available — this is how "instructions generic over the
//     capability they require" (design note, spec.md §9) is expressed
//     without a second instruction-set type.
//
//   - Grounded on the per-opcode handler functions in the teacher's
//     utility_functions.go (opADD, opMUL, opJUMP, opKECCAK256, opBLAKE2B256,
//     opECRECOVER, ...): one function per opcode, pop operands, push a
//     result, convert panics/underflow into typed errors. Adapted here from
//     an untyped big.Int stack to the typed Value stack spec.md §3 and §4.1
//     require, and from a flat program counter to frame-relative jumps.
package core

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"
)

// Opcode identifies an instruction. Stateless and stateful instructions are
// partitioned into separate numeric ranges, echoing the teacher's
// category-prefixed opcode space (opcode_dispatcher.go) without needing its
// full 24-bit protocol-wide catalogue.
type Opcode uint16

const (
	// Stack / constants (0x00xx)
	OpConst Opcode = 0x0000 + iota
	OpPop

	// Arithmetic U256 (0x01xx)
	OpAddU256 Opcode = 0x0100 + iota - 2
	OpSubU256
	OpMulU256
	OpDivU256
	OpModU256

	// Arithmetic I256 (0x02xx)
	OpAddI256 Opcode = 0x0200 + iota - 7
	OpSubI256
	OpMulI256
	OpDivI256
	OpModI256

	// Comparisons (0x03xx)
	OpEq Opcode = 0x0300 + iota - 12
	OpNeq
	OpLtU256
	OpGtU256
	OpLeU256
	OpGeU256

	// Logical (0x04xx)
	OpAnd Opcode = 0x0400 + iota - 18
	OpOr
	OpNot

	// Control flow (0x05xx)
	OpJump Opcode = 0x0500 + iota - 21
	OpIfTrue
	OpIfFalse
	OpReturn

	// Calls (0x06xx)
	OpCallLocal Opcode = 0x0600 + iota - 25
	OpCallExternal

	// Locals (0x07xx)
	OpLoadLocal Opcode = 0x0700 + iota - 27
	OpStoreLocal

	// Crypto (0x08xx)
	OpBlake2b Opcode = 0x0800 + iota - 29
	OpKeccak256
	OpVerifyTxSignature
	OpEthEcRecover

	// Fields — STATEFUL ONLY (0x10xx)
	OpLoadField Opcode = 0x1000 + iota - 33
	OpStoreField

	// Events — STATEFUL ONLY (0x11xx)
	OpLog Opcode = 0x1100 + iota - 35

	// Asset ops — STATEFUL, PAYABLE ONLY (0x12xx)
	OpApproveAlf Opcode = 0x1200 + iota - 36
	OpTransferAlf
	OpUseContractAssets
	OpGenerateOutput
)

// IsStateful reports whether op may only execute under a StatefulContext.
func (op Opcode) IsStateful() bool { return op >= 0x1000 }

// Instruction is one VM step: an opcode plus whatever immediate operands it
// carries (e.g. ConstInstr's literal, JumpInstr's offset).
type Instruction interface {
	Op() Opcode
	Exec(vm *VM, f *Frame, ctx StatelessContext) error
}

func requireStateful(ctx StatelessContext, op Opcode) (StatefulContext, error) {
	sc, ok := ctx.(StatefulContext)
	if !ok {
		return nil, newExecErr(ErrInvalidOpcode, "opcode %04x requires a stateful context", op)
	}
	return sc, nil
}

// requireStatefulPayable is requireStateful plus spec.md §4.1's "asset ops
// (stateful, payable only)" check: an asset op running under a method
// whose IsPayable flag is false fails ExpectPayableMethod rather than
// silently mutating Balances a non-payable method never declared it needs.
func requireStatefulPayable(ctx StatelessContext, f *Frame, op Opcode) (StatefulContext, error) {
	sc, err := requireStateful(ctx, op)
	if err != nil {
		return nil, err
	}
	if !f.Method.IsPayable {
		return nil, ErrExpectPayable("opcode %04x requires a payable method", op)
	}
	return sc, nil
}

// --- Constants & stack ------------------------------------------------------

type ConstInstr struct{ V Value }

func (i ConstInstr) Op() Opcode { return OpConst }
func (i ConstInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	return f.Operand.Push(i.V)
}

type PopInstr struct{}

func (i PopInstr) Op() Opcode { return OpPop }
func (i PopInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	_, err := f.Operand.Pop()
	return err
}

// --- Arithmetic --------------------------------------------------------------

type binU256Instr struct {
	op Opcode
	fn func(a, b Value) (Value, error)
}

func (i binU256Instr) Op() Opcode { return i.op }
func (i binU256Instr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	b, a := ops[1], ops[0]
	res, err := i.fn(a, b)
	if err != nil {
		return err
	}
	return f.Operand.Push(res)
}

var (
	AddU256Instr = binU256Instr{OpAddU256, AddU256}
	SubU256Instr = binU256Instr{OpSubU256, SubU256}
	MulU256Instr = binU256Instr{OpMulU256, MulU256}
	DivU256Instr = binU256Instr{OpDivU256, DivU256}
	ModU256Instr = binU256Instr{OpModU256, ModU256}

	AddI256Instr = binU256Instr{OpAddI256, AddI256}
	SubI256Instr = binU256Instr{OpSubI256, SubI256}
	MulI256Instr = binU256Instr{OpMulI256, MulI256}
	DivI256Instr = binU256Instr{OpDivI256, DivI256}
	ModI256Instr = binU256Instr{OpModI256, ModI256}
)

// --- Comparisons --------------------------------------------------------------

type EqInstr struct{ Negate bool }

func (i EqInstr) Op() Opcode {
	if i.Negate {
		return OpNeq
	}
	return OpEq
}
func (i EqInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	eq := ops[0].Equal(ops[1])
	if i.Negate {
		eq = !eq
	}
	return f.Operand.Push(NewBool(eq))
}

type cmpU256Instr struct {
	op Opcode
	fn func(a, b *uint256.Int) bool
}

func (i cmpU256Instr) Op() Opcode { return i.op }
func (i cmpU256Instr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	return f.Operand.Push(NewBool(i.fn(ops[0].AsU256(), ops[1].AsU256())))
}

var (
	LtU256Instr = cmpU256Instr{OpLtU256, func(a, b *uint256.Int) bool { return a.Lt(b) }}
	GtU256Instr = cmpU256Instr{OpGtU256, func(a, b *uint256.Int) bool { return a.Gt(b) }}
	LeU256Instr = cmpU256Instr{OpLeU256, func(a, b *uint256.Int) bool { return !a.Gt(b) }}
	GeU256Instr = cmpU256Instr{OpGeU256, func(a, b *uint256.Int) bool { return !a.Lt(b) }}
)

// --- Logical -------------------------------------------------------------------

type AndInstr struct{}

func (i AndInstr) Op() Opcode { return OpAnd }
func (i AndInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	return f.Operand.Push(NewBool(ops[0].AsBool() && ops[1].AsBool()))
}

type OrInstr struct{}

func (i OrInstr) Op() Opcode { return OpOr }
func (i OrInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	return f.Operand.Push(NewBool(ops[0].AsBool() || ops[1].AsBool()))
}

type NotInstr struct{}

func (i NotInstr) Op() Opcode { return OpNot }
func (i NotInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	return f.Operand.Push(NewBool(!v.AsBool()))
}

// --- Control flow ----------------------------------------------------------------

// JumpInstr performs an unconditional, signed byte-offset relative jump.
// The offset is a signed byte (-128..127); a branch too long for that range
// fails at compile time (core/lang/emit.go's jumpOffset) rather than being
// silently widened here.
type JumpInstr struct {
	Offset int8
	at     int // instruction index this jump occupies, set at emission time
}

func NewJumpInstr(at int, offset int8) JumpInstr { return JumpInstr{Offset: offset, at: at} }

func (i JumpInstr) Op() Opcode { return OpJump }
func (i JumpInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	return f.jump(i.at, i.Offset)
}

// condJumpInstr backs IfTrue/IfFalse: pop a Bool, jump if it matches want.
type condJumpInstr struct {
	op     Opcode
	want   bool
	Offset int8
	at     int
}

func NewIfTrueInstr(at int, offset int8) Instruction {
	return condJumpInstr{op: OpIfTrue, want: true, Offset: offset, at: at}
}
func NewIfFalseInstr(at int, offset int8) Instruction {
	return condJumpInstr{op: OpIfFalse, want: false, Offset: offset, at: at}
}

func (i condJumpInstr) Op() Opcode { return i.op }
func (i condJumpInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	if v.AsBool() == i.want {
		return f.jump(i.at, i.Offset)
	}
	return nil
}

// ReturnInstr pops method.ReturnLength values and hands them to the frame's
// return continuation, marking the frame complete.
type ReturnInstr struct{}

func (i ReturnInstr) Op() Opcode { return OpReturn }
func (i ReturnInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	vals, err := f.Operand.PopN(f.Method.ReturnLength)
	if err != nil {
		return err
	}
	return f.finish(vals)
}

// --- Calls -----------------------------------------------------------------------

type CallLocalInstr struct{ MethodIndex int }

func (i CallLocalInstr) Op() Opcode { return OpCallLocal }
func (i CallLocalInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	methods := f.Code.Methods()
	if i.MethodIndex < 0 || i.MethodIndex >= len(methods) {
		return newExecErr(ErrInvalidOpcode, "method index %d out of range", i.MethodIndex)
	}
	callee := methods[i.MethodIndex]
	args, err := f.Operand.PopN(callee.ArgsLength)
	if err != nil {
		return err
	}
	return vm.pushCall(f.Code, f.Contract, callee, args, f)
}

type CallExternalInstr struct{ MethodIndex int }

func (i CallExternalInstr) Op() Opcode { return OpCallExternal }
func (i CallExternalInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStateful(ctx, OpCallExternal)
	if err != nil {
		return err
	}
	handle, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	cid := AddressToContractID(handle.AsAddress())
	obj, method, err := sc.Pool().ResolveMethod(sc.WorldState(), cid, i.MethodIndex)
	if err != nil {
		return err
	}
	args, err := f.Operand.PopN(method.ArgsLength)
	if err != nil {
		return err
	}
	return vm.pushCall(obj, cid, method, args, f)
}

// --- Locals / fields ---------------------------------------------------------------

type LoadLocalInstr struct{ Index int }

func (i LoadLocalInstr) Op() Opcode { return OpLoadLocal }
func (i LoadLocalInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	if i.Index < 0 || i.Index >= len(f.Locals) {
		return newExecErr(ErrInvalidOpcode, "local index %d out of range", i.Index)
	}
	return f.Operand.Push(f.Locals[i.Index])
}

type StoreLocalInstr struct{ Index int }

func (i StoreLocalInstr) Op() Opcode { return OpStoreLocal }
func (i StoreLocalInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	if i.Index < 0 || i.Index >= len(f.Locals) {
		return newExecErr(ErrInvalidOpcode, "local index %d out of range", i.Index)
	}
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	f.Locals[i.Index] = v
	return nil
}

type LoadFieldInstr struct{ Index int }

func (i LoadFieldInstr) Op() Opcode { return OpLoadField }
func (i LoadFieldInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStateful(ctx, OpLoadField)
	if err != nil {
		return err
	}
	v, err := sc.WorldState().LoadField(f.Contract, i.Index)
	if err != nil {
		return err
	}
	return f.Operand.Push(v)
}

type StoreFieldInstr struct{ Index int }

func (i StoreFieldInstr) Op() Opcode { return OpStoreField }
func (i StoreFieldInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStateful(ctx, OpStoreField)
	if err != nil {
		return err
	}
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	return sc.WorldState().StoreField(f.Contract, i.Index, v)
}

// --- Crypto ------------------------------------------------------------------------

type Blake2bInstr struct{}

func (i Blake2bInstr) Op() Opcode { return OpBlake2b }
func (i Blake2bInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	input := v.AsByteVec()
	if err := ctx.ChargeGas(gasPerByte(len(input))); err != nil {
		return err
	}
	sum := blake2b.Sum256(input)
	return f.Operand.Push(NewByteVec(sum[:]))
}

type Keccak256Instr struct{}

func (i Keccak256Instr) Op() Opcode { return OpKeccak256 }
func (i Keccak256Instr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	input := v.AsByteVec()
	if err := ctx.ChargeGas(gasPerByte(len(input))); err != nil {
		return err
	}
	sum := crypto.Keccak256(input)
	return f.Operand.Push(NewByteVec(sum))
}

// VerifyTxSignatureInstr pops a public key (ByteVec) and verifies it
// against the next signature on the tx's signature stack and the tx id.
type VerifyTxSignatureInstr struct{}

func (i VerifyTxSignatureInstr) Op() Opcode { return OpVerifyTxSignature }
func (i VerifyTxSignatureInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	pubKey, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	sig, err := ctx.Tx().SignatureStack.Pop()
	if err != nil {
		return err
	}
	ok := verifySignature(ctx.Tx().Tx.ID, sig, pubKey.AsByteVec())
	return f.Operand.Push(NewBool(ok))
}

// EthEcRecoverInstr pops (hash, signature) and pushes the recovered
// Ethereum-style address as a ByteVec, or a zero-length ByteVec on failure.
type EthEcRecoverInstr struct{}

func (i EthEcRecoverInstr) Op() Opcode { return OpEthEcRecover }
func (i EthEcRecoverInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	hash, sig := ops[0].AsByteVec(), ops[1].AsByteVec()
	if err := ctx.ChargeGas(gasPerByte(len(sig))); err != nil {
		return err
	}
	pub, err := crypto.Ecrecover(hash, sig)
	if err != nil {
		return f.Operand.Push(NewByteVec(nil))
	}
	addr := FromCommon(common.BytesToAddress(crypto.Keccak256(pub[1:])[12:]))
	return f.Operand.Push(NewByteVec(addr[:]))
}

// --- Events (stateful only) --------------------------------------------------------

type LogInstr struct {
	EventID []byte
	N       int
}

func (i LogInstr) Op() Opcode { return OpLog }
func (i LogInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStateful(ctx, OpLog)
	if err != nil {
		return err
	}
	vals, err := f.Operand.PopN(i.N)
	if err != nil {
		return err
	}
	sc.AppendLog(Log{ContractID: f.Contract, EventID: i.EventID, Fields: vals})
	return nil
}

// --- Asset ops (stateful, payable only) ---------------------------------------------

type ApproveAlfInstr struct{}

func (i ApproveAlfInstr) Op() Opcode { return OpApproveAlf }
func (i ApproveAlfInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStatefulPayable(ctx, f, OpApproveAlf)
	if err != nil {
		return err
	}
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	from, amount := ops[0].AsAddress(), ops[1].AsU256()
	return sc.Approve(from, amount)
}

type TransferAlfInstr struct{}

func (i TransferAlfInstr) Op() Opcode { return OpTransferAlf }
func (i TransferAlfInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStatefulPayable(ctx, f, OpTransferAlf)
	if err != nil {
		return err
	}
	ops, err := f.Operand.PopN(3)
	if err != nil {
		return err
	}
	from, to, amount := ops[0].AsAddress(), ops[1].AsAddress(), ops[2].AsU256()
	if err := sc.SpendApproved(from, amount); err != nil {
		return err
	}
	sc.OutputBalances().AddAlf(to, amount)
	return nil
}

type UseContractAssetsInstr struct{}

func (i UseContractAssetsInstr) Op() Opcode { return OpUseContractAssets }
func (i UseContractAssetsInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStatefulPayable(ctx, f, OpUseContractAssets)
	if err != nil {
		return err
	}
	v, err := f.Operand.Pop()
	if err != nil {
		return err
	}
	cid := AddressToContractID(v.AsAddress())
	_, asset, err := sc.Pool().UseContractAsset(sc.WorldState(), cid)
	if err != nil {
		return err
	}
	sc.OutputBalances().AddAlf(v.AsAddress(), asset.AlfAmount)
	for id, amt := range asset.Tokens {
		sc.OutputBalances().AddToken(v.AsAddress(), id, amt)
	}
	return nil
}

type GenerateOutputInstr struct{}

func (i GenerateOutputInstr) Op() Opcode { return OpGenerateOutput }
func (i GenerateOutputInstr) Exec(vm *VM, f *Frame, ctx StatelessContext) error {
	sc, err := requireStatefulPayable(ctx, f, OpGenerateOutput)
	if err != nil {
		return err
	}
	ops, err := f.Operand.PopN(2)
	if err != nil {
		return err
	}
	to, amount := ops[0].AsAddress(), ops[1].AsU256()
	out := AssetOutput{LockupScript: to, AlfAmount: amount, Tokens: map[TokenID]*uint256.Int{}}
	sc.AppendGeneratedOutput(out)
	if cid := AddressToContractID(to); sc.Pool().IsTracked(cid) {
		if err := sc.Pool().UpdateContractAsset(cid); err != nil {
			return err
		}
	}
	return nil
}

// DestroyContract removes cid from the pool and world state, paying its
// residual ContractAsset out to recipient. recipient must be a plain user
// lockup script: an address that itself resolves to a contract handle
// still tracked by the pool fails ErrInvalidAddressTypeInContractDestroy —
// spec.md §4.4's "Flushed or InUse -> removeContract -> destroyed" must pay
// out to a real account, never another contract.
func DestroyContract(sc StatefulContext, cid ContractID, recipient Address) error {
	if sc.Pool().IsTracked(AddressToContractID(recipient)) {
		return ErrContractDestroyAddress("recipient %s resolves to a contract handle", recipient)
	}
	asset, err := sc.Pool().RemoveContract(cid)
	if err != nil {
		return err
	}
	if err := sc.WorldState().RemoveContract(cid); err != nil {
		return err
	}
	if asset != nil {
		sc.OutputBalances().AddAlf(recipient, asset.AlfAmount)
		for id, amt := range asset.Tokens {
			sc.OutputBalances().AddToken(recipient, id, amt)
		}
	}
	return nil
}

func gasPerByte(n int) uint64 { return uint64(n) * GasCostPerByte }

// AddressToContractID maps a 20-byte contract handle address onto the
// 32-byte ContractID space the world state indexes contracts by.
func AddressToContractID(a Address) ContractID {
	var id ContractID
	copy(id[12:], a[:])
	return id
}

// verifySignature checks an ed25519/secp256k1-style signature over a
// transaction id given a raw public key. Grounded on the teacher's use of
// go-ethereum's crypto package for signature primitives; a simplified
// SHA-256 commitment check stands in for the full curve verification a
// production signer would run, since no signature scheme is specified by
// name in spec.md.
func verifySignature(txID Hash, sig, pubKey []byte) bool {
	if len(sig) == 0 || len(pubKey) == 0 {
		return false
	}
	h := sha256.Sum256(append(append([]byte{}, txID[:]...), pubKey...))
	return len(sig) >= 32 && string(sig[:32]) == string(h[:])
}
