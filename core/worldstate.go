// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Staging World State
// --------------------------------------------------
//
//   - Three address spaces per spec.md §5: output state (unspent outputs),
//     contract state (persisted field values) and code state (deployed
//     method tables), all held in an overlay over a Trie. Reads (LoadCode,
//     LoadField, SpendOutput) see only what was staged in this
//     StagingWorldState; they never fall through to the base trie, which
//     is not read at all. A write always lands in the overlay, and
//     Commit() is the only place staged writes reach the base.
//
//   - Grounded on the read/modify/commit staging pattern in the teacher's
//     (now superseded) ledger.go and virtual_machine.go memState, adapted
//     from a single flat KV map to the three-trie layout spec.md §5
//     names, and from an in-place-mutating map to an explicit overlay so a
//     reverted transaction never touches the base trie at all.
package core

import "github.com/holiman/uint256"

// Trie is the narrow persistence interface StagingWorldState stages writes
// against. A production node backs this with a Merkle-Patricia trie; tests
// and the emulator use the in-memory MemTrie below.
type Trie interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// MemTrie is a trivial in-memory Trie, sufficient for the emulator and for
// tests that don't need real persistence or proofs.
type MemTrie struct {
	data map[string][]byte
}

func NewMemTrie() *MemTrie { return &MemTrie{data: make(map[string][]byte)} }

func (t *MemTrie) Get(key []byte) ([]byte, bool, error) {
	v, ok := t.data[string(key)]
	return v, ok, nil
}

func (t *MemTrie) Put(key []byte, value []byte) error {
	t.data[string(key)] = value
	return nil
}

func (t *MemTrie) Delete(key []byte) error {
	delete(t.data, string(key))
	return nil
}

// contractRecord is the staged representation of a deployed contract: its
// code object and its persisted field values.
type contractRecord struct {
	code   CodeObject
	fields []Value
}

// StagingWorldState is the copy-on-write overlay a single transaction
// executes against. Nothing here is visible outside the execution until
// Commit is called.
type StagingWorldState struct {
	base Trie

	contracts map[ContractID]*contractRecord
	outputs   map[OutputRef]*AssetOutput
	spent     map[OutputRef]bool
	destroyed map[ContractID]bool
}

// NewStagingWorldState constructs a staging overlay over base.
func NewStagingWorldState(base Trie) *StagingWorldState {
	if base == nil {
		base = NewMemTrie()
	}
	return &StagingWorldState{
		base:      base,
		contracts: make(map[ContractID]*contractRecord),
		outputs:   make(map[OutputRef]*AssetOutput),
		spent:     make(map[OutputRef]bool),
		destroyed: make(map[ContractID]bool),
	}
}

// DeployContract registers a newly created contract's code and initial
// field values in the overlay.
func (w *StagingWorldState) DeployContract(cid ContractID, code CodeObject, fields []Value) {
	w.contracts[cid] = &contractRecord{code: code, fields: append([]Value(nil), fields...)}
}

// LoadCode resolves a contract's code object, failing with an IOError if it
// is not staged; the base trie is not consulted (spec.md §5.3: missing contract
// code is a collaborator/IO failure, never an ExecutionError).
func (w *StagingWorldState) LoadCode(cid ContractID) (CodeObject, error) {
	rec, ok := w.contracts[cid]
	if !ok {
		return nil, NewIOError(IOErrorLoadContract, newExecErr(ErrInvalidOpcode, "unknown contract %s", cid))
	}
	return rec.code, nil
}

// LoadField returns the value currently staged for (contract, index),
// failing with InvalidOpcode if the contract is unknown or index is out of
// range for its field count.
func (w *StagingWorldState) LoadField(cid ContractID, index int) (Value, error) {
	rec, ok := w.contracts[cid]
	if !ok {
		return Value{}, newExecErr(ErrInvalidOpcode, "unknown contract %s", cid)
	}
	if index < 0 || index >= len(rec.fields) {
		return Value{}, newExecErr(ErrInvalidOpcode, "field index %d out of range", index)
	}
	return rec.fields[index], nil
}

// StoreField overwrites the staged value at (contract, index).
func (w *StagingWorldState) StoreField(cid ContractID, index int, v Value) error {
	rec, ok := w.contracts[cid]
	if !ok {
		return newExecErr(ErrInvalidOpcode, "unknown contract %s", cid)
	}
	if index < 0 || index >= len(rec.fields) {
		return newExecErr(ErrInvalidOpcode, "field index %d out of range", index)
	}
	rec.fields[index] = v
	return nil
}

// AddOutput stages a newly created unspent output.
func (w *StagingWorldState) AddOutput(ref OutputRef, out AssetOutput) {
	w.outputs[ref] = &out
}

// SpendOutput marks ref as spent, failing with NonExistTxInput if it is
// unknown or already spent.
func (w *StagingWorldState) SpendOutput(ref OutputRef) (*AssetOutput, error) {
	out, ok := w.outputs[ref]
	if !ok || w.spent[ref] {
		return nil, newExecErr(ErrNonExistTxInput, "output %v not available", ref)
	}
	w.spent[ref] = true
	return out, nil
}

// RemoveContract tombstones cid: its staged code and fields are dropped
// immediately, and Commit deletes its persisted record instead of rewriting
// it. Fails with IOErrorLoadContract if cid is not staged, matching
// LoadCode's failure mode for the same condition — spec.md §4.4's world
// state removeContract(id).
func (w *StagingWorldState) RemoveContract(cid ContractID) error {
	if _, ok := w.contracts[cid]; !ok {
		return NewIOError(IOErrorLoadContract, newExecErr(ErrInvalidOpcode, "unknown contract %s", cid))
	}
	delete(w.contracts, cid)
	w.destroyed[cid] = true
	return nil
}

// Commit flushes every staged contract field and output into the base
// trie. It is the only method that ever writes to base; an aborted
// transaction simply discards its StagingWorldState instead of calling it.
func (w *StagingWorldState) Commit() error {
	for cid, rec := range w.contracts {
		key := append([]byte("contract:"), cid[:]...)
		blob, err := serializeFields(rec.fields)
		if err != nil {
			return NewIOError(IOErrorUpdateState, err)
		}
		if err := w.base.Put(key, blob); err != nil {
			return NewIOError(IOErrorUpdateState, err)
		}
	}
	for ref, out := range w.outputs {
		if !w.spent[ref] {
			key := append([]byte("output:"), ref.Key[:]...)
			blob, err := serializeOutput(*out)
			if err != nil {
				return NewIOError(IOErrorUpdateState, err)
			}
			if err := w.base.Put(key, blob); err != nil {
				return NewIOError(IOErrorUpdateState, err)
			}
		}
	}
	for ref := range w.spent {
		key := append([]byte("output:"), ref.Key[:]...)
		_ = w.base.Delete(key)
	}
	for cid := range w.destroyed {
		key := append([]byte("contract:"), cid[:]...)
		_ = w.base.Delete(key)
	}
	return nil
}

// serializeFields and serializeOutput are minimal, deterministic encodings
// sufficient for Commit's trie writes; core/serialize.go defines the
// bit-exact instruction/method codec the compiler and network layer share.
func serializeFields(fields []Value) ([]byte, error) {
	buf := make([]byte, 0, 32*len(fields))
	for _, f := range fields {
		switch f.Type().Kind {
		case KindU256:
			buf = append(buf, f.AsU256().Bytes32()[:]...)
		case KindI256:
			buf = append(buf, f.AsI256().Bytes32()[:]...)
		case KindByteVec:
			buf = append(buf, f.AsByteVec()...)
		case KindAddress:
			a := f.AsAddress()
			buf = append(buf, a[:]...)
		case KindBool:
			if f.AsBool() {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		default:
			buf = append(buf, new(uint256.Int).Bytes32()[:]...)
		}
	}
	return buf, nil
}

func serializeOutput(out AssetOutput) ([]byte, error) {
	buf := append([]byte{}, out.LockupScript[:]...)
	amt := out.AlfAmount.Bytes32()
	buf = append(buf, amt[:]...)
	return buf, nil
}
