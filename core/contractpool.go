// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Contract Asset Pool
// ---------------------------------------------------
//
//   - Tracks, for the lifetime of a single execution, which contracts have
//     had their on-chain assets loaded into the in-flight Balances (UseContractAssets)
//     and whether those assets were subsequently flushed back out to an
//     output (GenerateOutput). A contract used but never flushed, or used
//     twice, is an ExecutionError (ContractAssetUnflushed /
//     ContractAssetAlreadyInUsing) — spec.md §5.4's asset-safety invariant.
//
//   - Grounded on the sandbox lifecycle state machine in the teacher's
//     (now superseded) vm_sandbox_management.go: SandboxInfo.Status moving
//     Provisioning -> Running -> Stopped under a bounded registry. Adapted
//     here to the three-state NotUsed/InUse/Flushed asset lifecycle and
//     backed by a bounded github.com/hashicorp/golang-lru/v2 cache instead
//     of the teacher's unbounded map with a manual eviction goroutine; the
//     network Broadcast call the teacher's version made on state changes is
//     dropped, since asset-pool transitions are purely local to one
//     execution and have nothing to announce to peers.
package core

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

// ContractAssetState is a contract's asset-usage state within one pool.
type ContractAssetState uint8

const (
	ContractAssetNotUsed ContractAssetState = iota
	ContractAssetInUse
	ContractAssetFlushed
	ContractAssetDestroyed
)

// ContractAsset is the ALF/token balance loaded out of a contract's output
// when UseContractAssets runs.
type ContractAsset struct {
	AlfAmount *uint256.Int
	Tokens    map[TokenID]*uint256.Int
}

type poolEntry struct {
	state ContractAssetState
	asset *ContractAsset
}

// ContractPool is scoped to a single execution (one transaction script, one
// contract call tree). Its cache bound exists to keep pathological
// contract-fan-out scripts from growing the pool unboundedly; ordinary
// scripts touch a handful of contracts and never evict.
type ContractPool struct {
	cache *lru.Cache[ContractID, *poolEntry]
}

// NewContractPool constructs an empty pool bounded to capacity entries.
func NewContractPool(capacity int) *ContractPool {
	c, _ := lru.New[ContractID, *poolEntry](capacity)
	return &ContractPool{cache: c}
}

func (p *ContractPool) entry(cid ContractID) *poolEntry {
	e, ok := p.cache.Get(cid)
	if !ok {
		e = &poolEntry{state: ContractAssetNotUsed}
		p.cache.Add(cid, e)
	}
	return e
}

// IsTracked reports whether cid has ever been touched by this pool.
func (p *ContractPool) IsTracked(cid ContractID) bool {
	_, ok := p.cache.Peek(cid)
	return ok
}

// ResolveMethod loads cid's code object from the world state and returns it
// alongside its methodIndex'th method, for CallExternal.
func (p *ContractPool) ResolveMethod(ws *StagingWorldState, cid ContractID, methodIndex int) (CodeObject, *Method, error) {
	code, err := ws.LoadCode(cid)
	if err != nil {
		return nil, nil, err
	}
	methods := code.Methods()
	if methodIndex < 0 || methodIndex >= len(methods) {
		return nil, nil, newExecErr(ErrInvalidOpcode, "method index %d out of range for %s", methodIndex, cid)
	}
	return code, methods[methodIndex], nil
}

// UseContractAsset transitions cid NotUsed -> InUse and returns the asset
// balance loaded for it. A contract already InUse or Flushed fails with
// ContractAssetAlreadyInUsing — a contract's assets may be loaded at most
// once per execution.
func (p *ContractPool) UseContractAsset(ws *StagingWorldState, cid ContractID) (ContractAssetState, *ContractAsset, error) {
	e := p.entry(cid)
	if e.state != ContractAssetNotUsed {
		return e.state, nil, newExecErr(ErrContractAssetAlreadyInUsing, "%s already in use", cid)
	}
	ref := OutputRef{Key: Hash(cid)}
	out, err := ws.SpendOutput(ref)
	var asset *ContractAsset
	if err != nil {
		// No tracked contract-asset output yet (e.g. freshly deployed,
		// never funded): start from a zero balance rather than failing —
		// UseContractAssets on an empty contract is valid.
		asset = &ContractAsset{AlfAmount: new(uint256.Int), Tokens: map[TokenID]*uint256.Int{}}
	} else {
		asset = &ContractAsset{AlfAmount: out.AlfAmount, Tokens: out.Tokens}
	}
	e.state = ContractAssetInUse
	e.asset = asset
	return ContractAssetInUse, asset, nil
}

// UpdateContractAsset transitions cid InUse -> Flushed, recording that its
// assets were re-output via GenerateOutput. Flushing a contract not
// currently InUse is a no-op — GenerateOutput may target an address that
// was never loaded as a contract asset in the first place.
func (p *ContractPool) UpdateContractAsset(cid ContractID) error {
	e := p.entry(cid)
	if e.state == ContractAssetInUse {
		e.state = ContractAssetFlushed
	}
	return nil
}

// RemoveContract transitions cid from Flushed or InUse to Destroyed and
// returns the asset balance it was holding, for the caller to route to a
// destroy recipient. Any other starting state fails — a contract whose
// assets were never loaded has nothing to destroy, and a contract already
// destroyed cannot be destroyed twice. Per spec.md §4.4's "Flushed or InUse
// -> removeContract -> destroyed".
func (p *ContractPool) RemoveContract(cid ContractID) (*ContractAsset, error) {
	e := p.entry(cid)
	if e.state != ContractAssetFlushed && e.state != ContractAssetInUse {
		return nil, newExecErr(ErrInvalidOpcode, "%s not eligible for removal in state %d", cid, e.state)
	}
	asset := e.asset
	e.state = ContractAssetDestroyed
	e.asset = nil
	return asset, nil
}

// CheckAllFlushed verifies no contract was left InUse at the end of
// execution, returning ContractAssetUnflushed for the first offender found.
// The VM driver calls this once after a top-level call tree completes,
// before committing staged world-state writes.
func (p *ContractPool) CheckAllFlushed() error {
	for _, cid := range p.cache.Keys() {
		e, ok := p.cache.Peek(cid)
		if ok && e.state == ContractAssetInUse {
			return newExecErr(ErrContractAssetUnflushed, "%s used but never flushed", cid)
		}
	}
	return nil
}
