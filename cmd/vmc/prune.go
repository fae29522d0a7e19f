package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alephium-project/svm/core/pruner"
)

// pruneDump is the on-disk shape a `vmc prune` invocation reads and
// rewrites: a hex-encoded key/value dump of a Store plus the recent-block
// node-hash sets a ChainView would otherwise serve from the live chain.
// No persistent Store/ChainView implementation exists in this tree (spec.md
// §6 excludes networking/consensus), so this file format stands in for one
// the way core/pruner/memstore.go's test doubles stand in for production
// collaborators.
type pruneDump struct {
	Entries []pruneEntry `json:"entries"`
	Blocks  []pruneBlock `json:"blocks"`
}

type pruneEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type pruneBlock struct {
	Height     uint64   `json:"height"`
	NodeHashes []string `json:"node_hashes"`
}

func pruneCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "run one bloom-filter garbage-collection pass over a hex-encoded store dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := loadPruneDump(storePath)
			if err != nil {
				return err
			}

			store := pruner.NewMemStore()
			for _, e := range dump.Entries {
				key, err := hex.DecodeString(e.Key)
				if err != nil {
					return fmt.Errorf("entry key %q: %w", e.Key, err)
				}
				value, err := hex.DecodeString(e.Value)
				if err != nil {
					return fmt.Errorf("entry value %q: %w", e.Value, err)
				}
				store.Put(key, value)
			}

			blocks := make([]pruner.BlockView, len(dump.Blocks))
			for i, b := range dump.Blocks {
				hashes := make([][]byte, len(b.NodeHashes))
				for j, h := range b.NodeHashes {
					decoded, err := hex.DecodeString(h)
					if err != nil {
						return fmt.Errorf("block %d hash %q: %w", b.Height, h, err)
					}
					hashes[j] = decoded
				}
				blocks[i] = pruner.BlockView{Height: b.Height, NodeHashes: hashes}
			}
			chain := pruner.NewMemChainView(blocks)

			result, err := pruner.NewPruner(store).Prune(chain)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d entries, deleted %d\n", result.Scanned, result.Deleted)

			return savePruneDump(storePath, store, dump.Blocks)
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "path to a JSON store dump (see pruneDump)")
	cmd.MarkFlagRequired("store")
	return cmd
}

func loadPruneDump(path string) (*pruneDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dump pruneDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, err
	}
	return &dump, nil
}

func savePruneDump(path string, store *pruner.MemStore, blocks []pruneBlock) error {
	var entries []pruneEntry
	err := store.Iterate(func(key, value []byte) (bool, error) {
		entries = append(entries, pruneEntry{Key: hex.EncodeToString(key), Value: hex.EncodeToString(value)})
		return true, nil
	})
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(pruneDump{Entries: entries, Blocks: blocks}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
