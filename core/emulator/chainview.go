// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Emulator ▸ Chain Collaborator
// --------------------------------------------------------------
//
//   - ChainView is the block-flow collaborator spec.md §6 names:
//     getDryrunBlockEnv(chainIndex) and getMutableGroupViewIncludePool
//     (groupIndex). Neither has a production implementation in this
//     repository — spec.md §1 excludes networking/consensus — so only the
//     interface and an in-memory test double (MemChainView) are built here,
//     grounded on the teacher's memState/NewInMemory() pattern
//     (virtual_machine.go) used the same way for StatefulContext's world
//     state.
package emulator

import (
	"github.com/alephium-project/svm/core"
)

// GroupView is a mutable, exclusively-held view of one shard group's state,
// including its mempool. The emulator borrows its base trie to build a
// scratch StagingWorldState over; it never writes through.
type GroupView interface {
	Trie() core.Trie
}

// ChainView is the block-flow collaborator the emulator queries for a
// dry-run block environment and a group view to stage against.
type ChainView interface {
	DryrunBlockEnv(groupIndex int) (*core.BlockEnv, error)
	GroupView(groupIndex int) (GroupView, error)
}

// memGroupView is a GroupView backed by a single in-memory Trie.
type memGroupView struct {
	trie core.Trie
}

func (g *memGroupView) Trie() core.Trie { return g.trie }

// MemChainView is an in-memory ChainView sufficient for the emulator's own
// tests and for callers with no real chain to query. One MemTrie is shared
// across every group index queried from a given MemChainView, which is
// adequate for single-group test fixtures.
type MemChainView struct {
	block *core.BlockEnv
	trie  *core.MemTrie
}

// NewMemChainView constructs a MemChainView whose dry-run block env is
// block and whose group view shares a single fresh MemTrie.
func NewMemChainView(block *core.BlockEnv) *MemChainView {
	return &MemChainView{block: block, trie: core.NewMemTrie()}
}

func (c *MemChainView) DryrunBlockEnv(groupIndex int) (*core.BlockEnv, error) {
	return c.block, nil
}

func (c *MemChainView) GroupView(groupIndex int) (GroupView, error) {
	return &memGroupView{trie: c.trie}, nil
}
