package core

import (
	"testing"

	"github.com/holiman/uint256"
)

func freshLifecycleContext(t *testing.T) (StatefulContext, *StagingWorldState, *ContractPool) {
	t.Helper()
	world := NewStagingWorldState(NewMemTrie())
	pool := NewContractPool(16)
	outBal := NewBalances()
	ctx := NewStatefulContext(&BlockEnv{ChainID: 1}, &TxEnv{Tx: &Transaction{}}, 1_000_000, world, outBal, pool)
	return ctx, world, pool
}

func TestDestroyContractPaysOutResidualAsset(t *testing.T) {
	ctx, world, pool := freshLifecycleContext(t)

	contractAddr := Address{0xAA}
	cid := AddressToContractID(contractAddr)
	world.DeployContract(cid, nil, nil)

	ref := OutputRef{Key: Hash(cid)}
	world.AddOutput(ref, AssetOutput{
		LockupScript: contractAddr,
		AlfAmount:    uint256.NewInt(500),
		Tokens:       map[TokenID]*uint256.Int{},
	})
	if _, _, err := pool.UseContractAsset(world, cid); err != nil {
		t.Fatalf("UseContractAsset: %v", err)
	}
	if err := pool.UpdateContractAsset(cid); err != nil {
		t.Fatalf("UpdateContractAsset: %v", err)
	}

	recipient := Address{0xBB}
	if err := DestroyContract(ctx, cid, recipient); err != nil {
		t.Fatalf("DestroyContract: %v", err)
	}

	bal, ok := ctx.OutputBalances().Get(recipient)
	if !ok {
		t.Fatalf("expected recipient to receive residual balance")
	}
	if bal.AlfAmount.Cmp(uint256.NewInt(500)) != 0 {
		t.Fatalf("unexpected residual ALF amount: %s", bal.AlfAmount)
	}

	if _, err := world.LoadCode(cid); err == nil {
		t.Fatalf("expected destroyed contract's code to no longer be staged")
	}
}

func TestDestroyContractRejectsContractRecipient(t *testing.T) {
	ctx, world, pool := freshLifecycleContext(t)

	contractAddr := Address{0xCC}
	cid := AddressToContractID(contractAddr)
	world.DeployContract(cid, nil, nil)
	if _, _, err := pool.UseContractAsset(world, cid); err != nil {
		t.Fatalf("UseContractAsset: %v", err)
	}

	otherContractAddr := Address{0xDD}
	otherCid := AddressToContractID(otherContractAddr)
	world.DeployContract(otherCid, nil, nil)
	// Mark otherCid tracked by the pool so it resolves as a contract handle.
	pool.entry(otherCid)

	err := DestroyContract(ctx, cid, otherContractAddr)
	if err == nil {
		t.Fatalf("expected destroy to a contract-handle recipient to fail")
	}
	execErr, ok := AsExecutionError(err)
	if !ok || execErr.Code != ErrInvalidAddressTypeInContractDestroy {
		t.Fatalf("expected ErrInvalidAddressTypeInContractDestroy, got %v", err)
	}
}

func TestDestroyContractRejectsUnusedContract(t *testing.T) {
	ctx, world, _ := freshLifecycleContext(t)

	contractAddr := Address{0xEE}
	cid := AddressToContractID(contractAddr)
	world.DeployContract(cid, nil, nil)

	if err := DestroyContract(ctx, cid, Address{0xFF}); err == nil {
		t.Fatalf("expected destroy of a never-used contract to fail")
	}
}

func TestContractPoolCheckAllFlushedIgnoresDestroyed(t *testing.T) {
	pool := NewContractPool(16)
	cid := AddressToContractID(Address{0x01})
	e := pool.entry(cid)
	e.state = ContractAssetInUse

	if _, err := pool.RemoveContract(cid); err != nil {
		t.Fatalf("RemoveContract: %v", err)
	}
	if err := pool.CheckAllFlushed(); err != nil {
		t.Fatalf("expected a destroyed contract not to trip CheckAllFlushed: %v", err)
	}
}
