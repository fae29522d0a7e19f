// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Lang ▸ Array Flattening
// ---------------------------------------------------------
//
//   - FixedSizeArray(t, n) locals and fields occupy n*t.FlattenedLength()
//     contiguous Value slots rather than one slot holding a composite
//     value — the VM's Value type (core/value.go) has no array variant, so
//     every array must be lowered to scalar slots before emission. A
//     FlattenContext is the slot allocator this lowering shares with
//     emit.go: each declaration (parameter or let-binding) reserves a
//     contiguous run of slots sized by its type's FlattenedLength, and
//     arrayOffset computes which slot within that run a constant index
//     resolves to.
//
//   - Only compile-time-constant indices are ever lowered this way — the
//     type checker (typecheck.go) already rejects a non-constant IndexExpr,
//     so arrayOffset never needs to fail at emission time.
package lang

import "github.com/alephium-project/svm/core"

// FlattenContext is a scoped slot allocator: declare() reserves a run of
// slots for a new binding, push()/pop() bracket a nested block so its
// declarations don't leak into sibling blocks.
type FlattenContext struct {
	slots []core.Type
	names map[string]int
}

// NewFlattenContext constructs an empty allocator.
func NewFlattenContext() *FlattenContext {
	return &FlattenContext{names: make(map[string]int)}
}

// Declare reserves t.FlattenedLength() contiguous slots for name, binding
// name to the first one, and returns that starting slot.
func (fc *FlattenContext) Declare(name string, t core.Type) int {
	start := len(fc.slots)
	n := t.FlattenedLength()
	for i := 0; i < n; i++ {
		fc.slots = append(fc.slots, elemTypeAt(t, i))
	}
	fc.names[name] = start
	return start
}

// elemTypeAt returns the scalar type occupying flattened offset i within a
// value of type t (t itself for scalars, t's innermost element type for
// arrays).
func elemTypeAt(t core.Type, i int) core.Type {
	if t.Kind != core.KindFixedSizeArray {
		return t
	}
	return elemTypeAt(*t.Elem, i%t.Elem.FlattenedLength())
}

// Resolve returns the starting slot bound to name in the current scope.
func (fc *FlattenContext) Resolve(name string) (int, bool) {
	slot, ok := fc.names[name]
	return slot, ok
}

// Push snapshots the current bindings before entering a nested block,
// returning a token to restore with Pop.
func (fc *FlattenContext) Push() map[string]int {
	saved := fc.names
	cp := make(map[string]int, len(saved))
	for k, v := range saved {
		cp[k] = v
	}
	fc.names = cp
	return saved
}

// Pop restores the bindings captured by the matching Push.
func (fc *FlattenContext) Pop(saved map[string]int) {
	fc.names = saved
}

// LocalTypes returns the flattened slot type table, for Method.LocalTypes.
func (fc *FlattenContext) LocalTypes() []core.Type {
	return fc.slots
}

// arrayOffset returns the flattened slot of element index within an array
// value of type arrType whose first element starts at baseSlot.
func arrayOffset(arrType core.Type, baseSlot, index int) (int, core.Type) {
	if arrType.Kind != core.KindFixedSizeArray {
		return baseSlot, arrType
	}
	elemLen := arrType.Elem.FlattenedLength()
	return baseSlot + index*elemLen, *arrType.Elem
}
