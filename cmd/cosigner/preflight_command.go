package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cosigner/internal/ledger"
	"cosigner/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var skipRPC bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check artifacts, keypairs, the solana CLI and the RPC endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var health preflight.HealthChecker
			if !skipRPC {
				client, err := ledger.Dial(cfg.Ledger.RPCURL, cfg.Ledger.Commitment)
				if err != nil {
					return err
				}
				health = client
			}

			results := preflight.RunAll(cmd.Context(), cfg, health)
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, strings.Join(preflightLines(results, shouldColorize(out)), "\n"))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipRPC, "skip-rpc", false, "Skip the RPC health check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
