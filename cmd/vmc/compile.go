package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alephium-project/svm/core"
	"github.com/alephium-project/svm/core/lang"
	"github.com/alephium-project/svm/pkg/config"
)

func compileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <source.svm>",
		Short: "compile a source file and report the artifacts produced",
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
			return printCompileResult(cmd, result)
		},
	}
}

func printCompileResult(cmd *cobra.Command, result *lang.CompileResult) error {
	for name, contract := range result.Contracts {
		size, err := codeSize(contract.Methods())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "contract %s: %d fields, %d methods, %d bytes compiled\n",
			name, contract.FieldLength, len(contract.Methods()), size)
	}
	for name, script := range result.Scripts {
		size, err := codeSize(script.Methods())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "script %s: %d methods, %d bytes compiled\n",
			name, len(script.Methods()), size)
	}
	return nil
}

func codeSize(methods []*core.Method) (int, error) {
	total := 0
	for _, m := range methods {
		encoded, err := core.EncodeMethod(m)
		if err != nil {
			return 0, err
		}
		total += len(encoded)
	}
	return total, nil
}
