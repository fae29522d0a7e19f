// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Command ▸ vmc
// -----------------------------------
//
//   - vmc is the toolchain's single entry point: compile/run/emulate/prune
//     subcommands over pkg/config-loaded settings, grounded on cmd/synnergy's
//     cobra root-command shape (testnet/tokens -> compile/run/emulate/prune)
//     and wired to this VM's actual packages instead of that command's mock
//     printf bodies.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alephium-project/svm/pkg/config"
	"github.com/alephium-project/svm/pkg/utils"
)

func main() {
	var env string

	rootCmd := &cobra.Command{
		Use:   "vmc",
		Short: "compile, run, emulate and prune against the Synnergy VM",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return utils.Wrap(err, "load config")
			}
			configureLogging(cfg.Logging.Level)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&env, "env", os.Getenv("SVM_ENV"), "config overlay to merge over cmd/config/default.yaml (e.g. bootstrap)")

	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(emulateCmd())
	rootCmd.AddCommand(pruneCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
