package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/alephium-project/svm/core"
	"github.com/alephium-project/svm/core/emulator"
	"github.com/alephium-project/svm/core/lang"
)

func emulateCmd() *cobra.Command {
	var fromHex, toHex string
	var inputAmount, gasLimit, gasPrice uint64

	cmd := &cobra.Command{
		Use:   "emulate <source.svm>",
		Short: "dry-run one of the source's TxScripts against a scratch in-memory chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := lang.Compile(string(src))
			if err != nil {
				return err
			}
			var script *core.StatefulScript
			for _, s := range result.Scripts {
				script = s
				break
			}
			if script == nil {
				return fmt.Errorf("source declares no TxScript to emulate")
			}

			from, err := parseAddress(fromHex)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parseAddress(toHex)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			tx := &core.Transaction{
				Inputs: []core.TxInput{{PrevOutputRef: core.OutputRef{Hint: 0}}},
			}
			prevOutputs := []core.AssetOutput{{LockupScript: from, AlfAmount: uint256.NewInt(inputAmount)}}
			fixedOutputs := []core.AssetOutput{{LockupScript: to, AlfAmount: uint256.NewInt(0)}}

			chain := emulator.NewMemChainView(&core.BlockEnv{})
			em := emulator.NewTxScriptEmulator(chain)
			result2, err := em.Emulate(tx, prevOutputs, fixedOutputs, script, gasLimit, uint256.NewInt(gasPrice))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "gas used: %d\n", result2.GasUsed)
			fmt.Fprintf(cmd.OutOrStdout(), "generated outputs: %d\n", len(result2.Execution.GeneratedOutputs))
			fmt.Fprintf(cmd.OutOrStdout(), "contract inputs: %d\n", len(result2.Execution.ContractInputs))
			fmt.Fprintf(cmd.OutOrStdout(), "logs: %d\n", len(result2.Execution.Logs))
			return nil
		},
	}
	cmd.Flags().StringVar(&fromHex, "from", "0000000000000000000000000000000000000001", "hex-encoded 20-byte sender lockup script")
	cmd.Flags().StringVar(&toHex, "to", "0000000000000000000000000000000000000002", "hex-encoded 20-byte receiver lockup script")
	cmd.Flags().Uint64Var(&inputAmount, "input-amount", 1_000_000, "ALF amount on the spent input, in atto units")
	cmd.Flags().Uint64Var(&gasLimit, "gas-limit", 0, "gas limit (0 falls back to the emulator's minimal gas)")
	cmd.Flags().Uint64Var(&gasPrice, "gas-price", 0, "gas price (0 falls back to the emulator's default price of 1)")
	return cmd
}

func parseAddress(s string) (core.Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return core.Address{}, err
	}
	if len(b) != 20 {
		return core.Address{}, fmt.Errorf("expected 20 bytes, got %d", len(b))
	}
	var a core.Address
	copy(a[:], b)
	return a, nil
}
