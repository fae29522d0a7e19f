// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Emulator ▸ Results
// --------------------------------------------------
package emulator

import (
	"github.com/alephium-project/svm/core"
)

// ExecutionResult is the observable outcome of one emulated script run: its
// return values and everything a StatefulContext accumulated, captured
// before the staging world state that produced them is discarded.
type ExecutionResult struct {
	ReturnValues     []core.Value
	GeneratedOutputs []core.AssetOutput
	ContractInputs   []core.OutputRef
	Logs             []core.Log
}

// TxScriptEmulationResult is Emulate's successful outcome: the gas the
// script consumed and the execution it produced, per spec.md §4.7 step 6.
type TxScriptEmulationResult struct {
	GasUsed   uint64
	Execution ExecutionResult
}
