package emulator

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/alephium-project/svm/core"
)

func trivialTransferScript(t *testing.T) *core.StatefulScript {
	t.Helper()
	// public main(): approveAlf(sender, 10); transferAlf(sender, receiver, 10); generateOutput(receiver, 10)
	method := &core.Method{
		IsPublic:     true,
		IsPayable:    true,
		ArgsLength:   0,
		LocalsLength: 0,
		ReturnLength: 0,
		Instrs: []core.Instruction{
			core.ConstInstr{V: core.NewAddress(senderAddr)},
			core.ConstInstr{V: core.NewU256FromUint64(10)},
			core.ApproveAlfInstr{},
			core.ConstInstr{V: core.NewAddress(senderAddr)},
			core.ConstInstr{V: core.NewAddress(receiverAddr)},
			core.ConstInstr{V: core.NewU256FromUint64(10)},
			core.TransferAlfInstr{},
			core.ConstInstr{V: core.NewAddress(receiverAddr)},
			core.ConstInstr{V: core.NewU256FromUint64(10)},
			core.GenerateOutputInstr{},
			core.ReturnInstr{},
		},
	}
	script, err := core.PackageStatefulScript([]*core.Method{method})
	if err != nil {
		t.Fatalf("PackageStatefulScript: %v", err)
	}
	return script
}

var (
	senderAddr   = core.Address{1}
	receiverAddr = core.Address{2}
)

func TestEmulateTrivialTransferReportsGasAndOutput(t *testing.T) {
	script := trivialTransferScript(t)

	chain := NewMemChainView(&core.BlockEnv{ChainID: 1})
	em := NewTxScriptEmulator(chain)

	tx := &core.Transaction{ID: core.Hash{9}, Inputs: []core.TxInput{{PrevOutputRef: core.OutputRef{Hint: 0}}}}
	prevOutputs := []core.AssetOutput{{LockupScript: senderAddr, AlfAmount: uint256.NewInt(10_000_000), Tokens: map[core.TokenID]*uint256.Int{}}}

	result, err := em.Emulate(tx, prevOutputs, nil, script, 0, nil)
	if err != nil {
		t.Fatalf("Emulate: %v", err)
	}
	if result.GasUsed == 0 {
		t.Fatalf("expected non-zero gas used")
	}
	if len(result.Execution.GeneratedOutputs) != 1 {
		t.Fatalf("expected one generated output, got %d", len(result.Execution.GeneratedOutputs))
	}
	out := result.Execution.GeneratedOutputs[0]
	if out.LockupScript != receiverAddr {
		t.Fatalf("unexpected generated output lockup script: %x", out.LockupScript)
	}
	if out.AlfAmount.Cmp(uint256.NewInt(10)) != 0 {
		t.Fatalf("unexpected generated output amount: %s", out.AlfAmount)
	}
}

// TestEmulateGasUsedIndependentOfCallerGasLimit pins spec.md §4.7 step 6's
// gasUsed = maximalGasPerTx - remainingGas: the VM runs against
// maximalGasPerTx regardless of the caller-supplied gasLimit, so two
// emulations of the same script differing only in gasLimit must report
// identical gasUsed. Before this fix gasUsed scaled with the clamped
// gasLimit instead.
func TestEmulateGasUsedIndependentOfCallerGasLimit(t *testing.T) {
	script := trivialTransferScript(t)
	chain := NewMemChainView(&core.BlockEnv{ChainID: 1})
	em := NewTxScriptEmulator(chain)
	prevOutputs := []core.AssetOutput{{LockupScript: senderAddr, AlfAmount: uint256.NewInt(10_000_000), Tokens: map[core.TokenID]*uint256.Int{}}}

	tx1 := &core.Transaction{ID: core.Hash{9}, Inputs: []core.TxInput{{PrevOutputRef: core.OutputRef{Hint: 0}}}}
	result1, err := em.Emulate(tx1, prevOutputs, nil, script, 1, nil)
	if err != nil {
		t.Fatalf("Emulate (gasLimit=1): %v", err)
	}

	tx2 := &core.Transaction{ID: core.Hash{9}, Inputs: []core.TxInput{{PrevOutputRef: core.OutputRef{Hint: 0}}}}
	result2, err := em.Emulate(tx2, prevOutputs, nil, script, 1_000_000, nil)
	if err != nil {
		t.Fatalf("Emulate (gasLimit=1_000_000): %v", err)
	}

	if result1.GasUsed != result2.GasUsed {
		t.Fatalf("gasUsed must not depend on caller gasLimit: got %d and %d", result1.GasUsed, result2.GasUsed)
	}

	budget, err := CheckCodeSize(script, maximalGasPerTx)
	if err != nil {
		t.Fatalf("CheckCodeSize: %v", err)
	}
	precharge := maximalGasPerTx - budget
	if result1.GasUsed < precharge {
		t.Fatalf("gasUsed %d must be at least the code-size precharge %d", result1.GasUsed, precharge)
	}
}

func TestEmulateContractAssetUnflushedFails(t *testing.T) {
	cid := core.AddressToContractID(receiverAddr)
	method := &core.Method{
		IsPublic:  true,
		IsPayable: true,
		Instrs: []core.Instruction{
			core.ConstInstr{V: core.NewAddress(receiverAddr)},
			core.UseContractAssetsInstr{},
			core.ReturnInstr{},
		},
	}
	script, err := core.PackageStatefulScript([]*core.Method{method})
	if err != nil {
		t.Fatalf("PackageStatefulScript: %v", err)
	}

	chain := NewMemChainView(&core.BlockEnv{ChainID: 1})
	em := NewTxScriptEmulator(chain)

	tx := &core.Transaction{ID: core.Hash{1}, Inputs: []core.TxInput{{PrevOutputRef: core.OutputRef{Hint: 0}}}}
	prevOutputs := []core.AssetOutput{{LockupScript: senderAddr, AlfAmount: uint256.NewInt(10_000_000), Tokens: map[core.TokenID]*uint256.Int{}}}

	_, err = em.Emulate(tx, prevOutputs, nil, script, 0, nil)
	if err == nil {
		t.Fatalf("expected ContractAssetUnflushed failure, got nil")
	}
	if !strings.Contains(err.Error(), "ContractAssetUnflushed") {
		t.Fatalf("expected ContractAssetUnflushed failure, got %v", err)
	}
	_ = cid
}
