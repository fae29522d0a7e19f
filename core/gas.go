// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Gas Table
// ---------------------------------------
//
// Grounded on the teacher's gas_table.go (a map[Opcode]uint64 of base costs
// consulted by opcode_dispatcher.go before every dispatch) and
// opcode_dispatcher.go's "charge first, execute second" ordering: the VM
// loop in vm.go charges GasCost(op) before calling Instruction.Exec, and
// dynamic/input-size-dependent instructions (hashing, ecrecover) charge an
// additional GasCostPerByte surcharge themselves, inside Exec, before
// mutating any state — so a gas-exhausted hash never partially executes.
package core

// GasCostPerByte is charged per input byte by variable-length crypto
// instructions, on top of their fixed base cost.
const GasCostPerByte uint64 = 1

var baseGasCost = map[Opcode]uint64{
	OpConst: 2,
	OpPop:   1,

	OpAddU256: 3, OpSubU256: 3, OpMulU256: 5, OpDivU256: 5, OpModU256: 5,
	OpAddI256: 3, OpSubI256: 3, OpMulI256: 5, OpDivI256: 5, OpModI256: 5,

	OpEq: 3, OpNeq: 3,
	OpLtU256: 3, OpGtU256: 3, OpLeU256: 3, OpGeU256: 3,

	OpAnd: 3, OpOr: 3, OpNot: 2,

	OpJump: 8, OpIfTrue: 8, OpIfFalse: 8, OpReturn: 0,

	OpCallLocal: 20, OpCallExternal: 200,

	OpLoadLocal: 3, OpStoreLocal: 3,
	OpLoadField: 800, OpStoreField: 5000,

	OpBlake2b: 30, OpKeccak256: 30, OpVerifyTxSignature: 3000, OpEthEcRecover: 3000,

	OpLog: 375,

	OpApproveAlf: 30, OpTransferAlf: 30, OpUseContractAssets: 800, OpGenerateOutput: 16000,
}

// GasCost returns op's fixed base cost. Unknown opcodes cost nothing here;
// they never reach the VM loop, since DecodeMethod rejects an unknown
// opcode with an error and every Instruction type carries a catalogued one.
func GasCost(op Opcode) uint64 {
	return baseGasCost[op]
}

// init mirrors the teacher's opcode_dispatcher.go startup panic on a
// dispatch-table gap: every catalogued opcode must carry an explicit gas
// entry, even a zero one (OpReturn), so a newly added instruction can never
// silently execute for free because its entry was forgotten.
func init() {
	for _, info := range Catalogue() {
		if _, ok := baseGasCost[info.Op]; !ok {
			panic("core: opcode " + info.Name + " has no gas table entry")
		}
	}
}
