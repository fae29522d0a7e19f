// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Emulator ▸ Gas-Metered Dry Run
// ----------------------------------------------------------------
//
//   - Grounded on the teacher's ContractRegistry.InvokeWithReceipt: clamp
//     the caller's requested gas, build a VMContext, call vm.Execute,
//     return a Receipt. Emulate is that same call path run against a
//     scratch StagingWorldState carved out of a GroupView instead of the
//     live ledger, and never committed — spec.md §4.7's "dry run" is
//     exactly the teacher's invoke path minus the final commit.
package emulator

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/alephium-project/svm/core"
)

// minimalGas is the gas limit Emulate falls back to when the caller
// supplies none.
const minimalGas uint64 = 20000

// maximalGasPerTx bounds both the code-size precharge and the budget a
// single emulated script may spend; GasUsed is always reported relative to
// this ceiling per spec.md §4.7 step 6.
const maximalGasPerTx uint64 = 5_000_000

// codeSizeGasPerInstr is the size-proportional cost CheckCodeSize charges
// per instruction across every method of a script, before any instruction
// actually runs — mirrors the per-byte precharge core/instruction.go's
// crypto instructions already apply to their own inputs, generalized here
// to the whole compiled artifact.
const codeSizeGasPerInstr uint64 = 10

// CheckCodeSize charges a size-proportional gas cost for script's total
// instruction count against a fresh gasBudget, failing (without consuming
// anything else) if the script is too large to ever run within
// maximalGasPerTx. The failure is a plain error whose message starts with
// "execution error", not a *core.ExecutionError.
func CheckCodeSize(script core.CodeObject, gasBudget uint64) (uint64, error) {
	var total int
	for _, m := range script.Methods() {
		total += len(m.Instrs)
	}
	cost := uint64(total) * codeSizeGasPerInstr
	if cost > gasBudget {
		return 0, fmt.Errorf("execution error: code size %d instructions exceeds gas budget %d", total, gasBudget)
	}
	return gasBudget - cost, nil
}

// TxScriptEmulator drives a compiled StatefulScript through the VM against
// a scratch world state, reporting gas used without ever committing.
type TxScriptEmulator struct {
	chain ChainView
}

// NewTxScriptEmulator constructs an emulator querying chain for dry-run
// block environments and group views.
func NewTxScriptEmulator(chain ChainView) *TxScriptEmulator {
	return &TxScriptEmulator{chain: chain}
}

// groupIndexOf derives spec.md §4.7 step 1's groupIndex from the first
// input's previous output reference — deterministic and collaborator-free,
// matching the teacher's own chain-index derivation from an output hint.
func groupIndexOf(inputs []core.TxInput) int {
	if len(inputs) == 0 {
		return 0
	}
	return int(inputs[0].PrevOutputRef.Hint)
}

// Emulate runs script against inputs/fixedOutputs in a scratch staging
// world state and reports the gas it consumed. A zero gasLimit falls back to
// minimalGas; a nil or zero gasPrice falls back to a price of 1.
func (e *TxScriptEmulator) Emulate(
	tx *core.Transaction,
	prevOutputs []core.AssetOutput,
	fixedOutputs []core.AssetOutput,
	script *core.StatefulScript,
	gasLimit uint64,
	gasPrice *uint256.Int,
) (*TxScriptEmulationResult, error) {
	if len(tx.Inputs) == 0 {
		return nil, fmt.Errorf("execution error: transaction has no inputs")
	}
	groupIndex := groupIndexOf(tx.Inputs)

	block, err := e.chain.DryrunBlockEnv(groupIndex)
	if err != nil {
		return nil, fmt.Errorf("io error: dry-run block env: %w", err)
	}
	group, err := e.chain.GroupView(groupIndex)
	if err != nil {
		return nil, fmt.Errorf("io error: mutable group view: %w", err)
	}

	if gasLimit == 0 {
		gasLimit = minimalGas
	}
	if gasPrice == nil || gasPrice.IsZero() {
		gasPrice = uint256.NewInt(1)
	}
	tx.FixedOutputs = fixedOutputs
	template := NewTransactionTemplate(tx, prevOutputs, gasLimit, gasPrice)

	// Step 4: CheckCodeSize charges its precharge against a fresh
	// maximalGasPerTx budget; the VM then runs against what remains of that
	// same ceiling, not the caller-supplied gasLimit — spec.md §4.7 step 6's
	// gasUsed is always relative to maximalGasPerTx.
	execBudget, err := CheckCodeSize(script, maximalGasPerTx)
	if err != nil {
		return nil, err
	}

	gasFee := new(uint256.Int).Mul(gasPrice, uint256.NewInt(gasLimit))
	outBal, err := core.BalancesFromPreOutputs(prevOutputs, gasFee, script.Methods()[0].IsPayable)
	if err != nil {
		return nil, flattenError(err)
	}

	staging := core.NewStagingWorldState(group.Trie())
	pool := core.NewContractPool(256)

	txEnv := &core.TxEnv{Tx: tx, PrevOutputs: prevOutputs, SignatureStack: template.Signatures}
	ctx := core.NewStatefulContext(block, txEnv, execBudget, staging, outBal, pool)

	vm := core.NewVM(1024, 1024)
	values, err := vm.Execute(ctx, script, core.ContractID{}, script.Methods()[0], nil)
	if err != nil {
		logrus.WithError(err).Debug("emulation failed")
		return nil, flattenError(err)
	}
	if err := pool.CheckAllFlushed(); err != nil {
		return nil, flattenError(err)
	}

	gasUsed := maximalGasPerTx - ctx.GasRemaining()

	return &TxScriptEmulationResult{
		GasUsed: gasUsed,
		Execution: ExecutionResult{
			ReturnValues:     values,
			GeneratedOutputs: ctx.GeneratedOutputs(),
			ContractInputs:   ctx.ContractInputs(),
			Logs:             ctx.Logs(),
		},
	}, nil
}

// flattenError maps the two-layer {IOError | ExecutionError} tagged
// variant to a human-readable string distinguishing the two classes, per
// spec.md §4.7's error-mapping rule. Staging is always discarded by the
// caller regardless of which class failed; the distinction is purely for
// the message.
func flattenError(err error) error {
	if ioErr, ok := core.AsIOError(err); ok {
		return fmt.Errorf("emulation aborted, io error: %v", ioErr)
	}
	if execErr, ok := core.AsExecutionError(err); ok {
		return fmt.Errorf("emulation failed, execution error: %v", execErr)
	}
	return fmt.Errorf("emulation failed: %v", err)
}
