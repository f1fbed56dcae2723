package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdconfig "synnergy-platform/cmd/config"
	"synnergy-platform/query"
)

// queryCmd wires the "query serve" subcommand: loads the last committed
// PlatformState snapshot and serves it over query.Server until killed.
func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "serve read-only queries against the platform state",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &cmdconfig.AppConfig

			st, ok, err := loadState(cfg)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("platformd: no genesis state found; run 'platformd genesis init' first")
			}

			a, err := newApp(cfg, st)
			if err != nil {
				return err
			}

			srv := query.NewServer(cfg.Query.ListenAddr, a.Identities, a.Contracts, a.Documents, a.Store, a.State, a.Blobs, a.Logger)
			fmt.Printf("query: serving on %s\n", cfg.Query.ListenAddr)
			return srv.Start()
		},
	}

	cmd.AddCommand(serve)
	return cmd
}
