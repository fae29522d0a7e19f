// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Emulator ▸ Transaction Template
// --------------------------------------------------------------
//
//   - DummySignatureCount is the worst-case padding spec.md §7 Open
//     Questions calls out by name: "make the size a named constant" rather
//     than a magic 16 scattered through the emulator.
//
//   - spec.md §7.3 describes separate input- and script-signature stacks;
//     this VM's TxEnv (core/context.go) exposes a single SignatureStack to
//     VerifyTxSignature, so the template collapses both into one combined
//     stack sized to 2*DummySignatureCount — still the same worst-case
//     padding, just against the one stack this VM's instruction set
//     actually consumes.
package emulator

import (
	"github.com/holiman/uint256"

	"github.com/alephium-project/svm/core"
)

// DummySignatureCount is the number of placeholder signatures pushed for
// each of the input- and script-signature roles, sized for the worst case
// a real transaction's signature verification could demand.
const DummySignatureCount = 16

// dummySignature is a fixed, recognizably-fake 65-byte signature; its
// contents are never checked specially — VerifyTxSignature, the only
// instruction that reads the signature stack, runs against it exactly as it
// would against a real signature, and fails exactly as it would in
// production, since the emulator does not special-case signature
// verification.
var dummySignature = make([]byte, 65)

// TransactionTemplate packages the inputs the emulator hands to the VM: the
// abstract Transaction, the outputs its inputs are spending, and a
// signature stack pre-loaded with 2*DummySignatureCount dummy entries.
type TransactionTemplate struct {
	Tx          *core.Transaction
	PrevOutputs []core.AssetOutput
	Signatures  *core.Stack[[]byte]
}

// NewTransactionTemplate builds a TransactionTemplate for tx/prevOutputs,
// padding the signature stack with 2*DummySignatureCount dummy signatures.
// gasLimit and gasPrice are stamped onto tx before the template is built;
// callers pass minimalGas/a default price when the caller of Emulate
// supplied none.
func NewTransactionTemplate(tx *core.Transaction, prevOutputs []core.AssetOutput, gasLimit uint64, gasPrice *uint256.Int) *TransactionTemplate {
	tx.GasAmount = gasLimit
	tx.GasPrice = gasPrice

	sigs := core.NewStack[[]byte](2 * DummySignatureCount)
	for i := 0; i < 2*DummySignatureCount; i++ {
		_ = sigs.Push(dummySignature)
	}
	return &TransactionTemplate{
		Tx:          tx,
		PrevOutputs: prevOutputs,
		Signatures:  sigs,
	}
}
