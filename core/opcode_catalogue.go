// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Opcode Catalogue
// ---------------------------------------------
//
// Grounded on the teacher's opcode_dispatcher.go, which panics at process
// start if two opcodes in its dispatch table collide (`log.Panicf`
// ("duplicate opcode ...")) — the same invariant `cmd/opcode-lint` checks
// here, adapted to this VM's much smaller, category-prefixed opcode space.
package core

// OpcodeInfo names one entry in the instruction set, for tooling (the
// opcode-lint command) and documentation generation.
type OpcodeInfo struct {
	Op   Opcode
	Name string
}

// Catalogue lists every defined opcode exactly once, in declaration order.
func Catalogue() []OpcodeInfo {
	return []OpcodeInfo{
		{OpConst, "CONST"}, {OpPop, "POP"},

		{OpAddU256, "ADD_U256"}, {OpSubU256, "SUB_U256"}, {OpMulU256, "MUL_U256"},
		{OpDivU256, "DIV_U256"}, {OpModU256, "MOD_U256"},

		{OpAddI256, "ADD_I256"}, {OpSubI256, "SUB_I256"}, {OpMulI256, "MUL_I256"},
		{OpDivI256, "DIV_I256"}, {OpModI256, "MOD_I256"},

		{OpEq, "EQ"}, {OpNeq, "NEQ"},
		{OpLtU256, "LT_U256"}, {OpGtU256, "GT_U256"}, {OpLeU256, "LE_U256"}, {OpGeU256, "GE_U256"},

		{OpAnd, "AND"}, {OpOr, "OR"}, {OpNot, "NOT"},

		{OpJump, "JUMP"}, {OpIfTrue, "IF_TRUE"}, {OpIfFalse, "IF_FALSE"}, {OpReturn, "RETURN"},

		{OpCallLocal, "CALL_LOCAL"}, {OpCallExternal, "CALL_EXTERNAL"},

		{OpLoadLocal, "LOAD_LOCAL"}, {OpStoreLocal, "STORE_LOCAL"},

		{OpBlake2b, "BLAKE2B"}, {OpKeccak256, "KECCAK256"},
		{OpVerifyTxSignature, "VERIFY_TX_SIGNATURE"}, {OpEthEcRecover, "ETH_EC_RECOVER"},

		{OpLoadField, "LOAD_FIELD"}, {OpStoreField, "STORE_FIELD"},

		{OpLog, "LOG"},

		{OpApproveAlf, "APPROVE_ALF"}, {OpTransferAlf, "TRANSFER_ALF"},
		{OpUseContractAssets, "USE_CONTRACT_ASSETS"}, {OpGenerateOutput, "GENERATE_OUTPUT"},
	}
}
