package pruner

import (
	"testing"
)

func TestPruneDeletesUnreachableNodes(t *testing.T) {
	store := NewMemStore()

	reachable := []byte("reachable-node-hash-aaaaaaaaaaaaaaaa")
	unreachable := []byte("unreachable-node-hash-bbbbbbbbbbbbbb")
	contractState := append(append([]byte{}, contractStateKeyPrefix...), []byte("deadbeef")...)

	store.Put(reachable, []byte("node-blob"))
	store.Put(unreachable, []byte("node-blob"))
	store.Put(contractState, []byte("fields-blob"))

	chain := NewMemChainView([]BlockView{
		{Height: 1, NodeHashes: [][]byte{reachable}},
	})

	p := NewPruner(store)
	result, err := p.Prune(chain)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if result.Scanned != 3 {
		t.Fatalf("expected 3 scanned, got %d", result.Scanned)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", result.Deleted)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries remaining, got %d", store.Len())
	}
}

func TestNodeHashFilterFalseNegativesNeverOccur(t *testing.T) {
	f := NewNodeHashFilter(1000, 0.01)
	hashes := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		hashes = append(hashes, []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24), 'x'})
	}
	for _, h := range hashes {
		f.Add(h)
	}
	for _, h := range hashes {
		if !f.Test(h) {
			t.Fatalf("filter reported false negative for %x", h)
		}
	}
}

func TestPruneBatchesDeletesAboveBatchSize(t *testing.T) {
	store := NewMemStore()
	for i := 0; i < BatchSize+10; i++ {
		store.Put([]byte{byte(i), byte(i >> 8), 'n'}, []byte("v"))
	}
	chain := NewMemChainView(nil)

	p := NewPruner(store)
	result, err := p.Prune(chain)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if result.Deleted != BatchSize+10 {
		t.Fatalf("expected all %d entries deleted, got %d", BatchSize+10, result.Deleted)
	}
	if store.Len() != 0 {
		t.Fatalf("expected store empty, got %d remaining", store.Len())
	}
}
