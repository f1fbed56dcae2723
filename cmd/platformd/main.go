// cmd/platformd is the platform's node daemon, mirrored from
// cmd/synnergy/main.go and cmd/cli's root-command-plus-PersistentPreRunE
// shape: a thin cobra entrypoint wiring the core/fees/tokens/identity/
// contracts/documents/transitions/block/query packages together behind
// three subcommands: genesis init, block execute, and query serve.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdconfig "synnergy-platform/cmd/config"
)

var envFlag string

func main() {
	root := &cobra.Command{
		Use:   "platformd",
		Short: "platform state-transition engine and fee-metered storage core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("platformd: init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			cmdconfig.LoadConfig(envFlag)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFlag, "env", "", "environment overlay config name (cmd/config/<env>.yaml)")

	root.AddCommand(genesisCmd())
	root.AddCommand(blockCmd())
	root.AddCommand(queryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
