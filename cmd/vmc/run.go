package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alephium-project/svm/core"
	"github.com/alephium-project/svm/core/lang"
	"github.com/alephium-project/svm/pkg/config"
)

func runCmd() *cobra.Command {
	var contractName, argsCSV string
	var methodIndex int

	cmd := &cobra.Command{
		Use:   "run <source.svm>",
		Short: "compile a source file and execute one method against an empty stateless context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := lang.CompileWithConfig(string(src), lang.Config{
				LoopUnrollingLimit: config.AppConfig.Compiler.LoopUnrollingLimit,
			})
			if err != nil {
				return err
			}

			code, method, err := resolveEntryPoint(result, contractName, methodIndex)
			if err != nil {
				return err
			}

			values, err := parseU256Args(argsCSV)
			if err != nil {
				return err
			}

			vm := core.NewVM(config.AppConfig.VM.MaxFrames, config.AppConfig.VM.OperandStackCap)
			ctx := freshCLIContext()
			results, err := vm.Execute(ctx, code, core.ContractID{}, method, values)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gas remaining: %d\n", ctx.GasRemaining())
			for i, v := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "return[%d] = %s\n", i, formatValue(v))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contractName, "contract", "", "contract name to run a method from (default: run one of the source's scripts)")
	cmd.Flags().IntVar(&methodIndex, "method-index", 0, "index into --contract's declared methods (core.Method carries no name, only its declaration order)")
	cmd.Flags().StringVar(&argsCSV, "args", "", "comma-separated U256 decimal literals passed as the method's arguments")
	return cmd
}

// resolveEntryPoint picks the CodeObject/Method pair a run invocation
// executes: an explicit --contract plus --method-index, or failing that
// method 0 (its one public entry point) of one of the source's scripts.
// result.Scripts is a map, so when several scripts are declared which one
// runs is not defined.
func resolveEntryPoint(result *lang.CompileResult, contractName string, methodIndex int) (core.CodeObject, *core.Method, error) {
	if contractName != "" {
		contract, ok := result.Contracts[contractName]
		if !ok {
			return nil, nil, fmt.Errorf("no contract named %s", contractName)
		}
		methods := contract.Methods()
		if methodIndex < 0 || methodIndex >= len(methods) {
			return nil, nil, fmt.Errorf("contract %s has %d methods, method-index %d out of range", contractName, len(methods), methodIndex)
		}
		return contract, methods[methodIndex], nil
	}
	for _, script := range result.Scripts {
		return script, script.Methods()[0], nil
	}
	return nil, nil, fmt.Errorf("source declares no scripts; pass --contract to run a contract method")
}

func parseU256Args(csv string) ([]core.Value, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	values := make([]core.Value, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("arg %d (%q): %w", i, p, err)
		}
		values[i] = core.NewU256FromUint64(n)
	}
	return values, nil
}

func freshCLIContext() core.StatelessContext {
	block := &core.BlockEnv{}
	tx := &core.TxEnv{Tx: &core.Transaction{}, SignatureStack: core.NewStack[[]byte](1)}
	return core.NewStatelessContext(block, tx, uint64(config.AppConfig.VM.OperandStackCap)*1000)
}

func formatValue(v core.Value) string {
	switch v.Type().Kind {
	case core.KindU256:
		return v.AsU256().String()
	case core.KindI256:
		return v.AsI256().String()
	case core.KindBool:
		return strconv.FormatBool(v.AsBool())
	case core.KindByteVec:
		return fmt.Sprintf("%x", v.AsByteVec())
	case core.KindAddress:
		addr := v.AsAddress()
		return fmt.Sprintf("%x", addr[:])
	default:
		return "<unknown>"
	}
}
