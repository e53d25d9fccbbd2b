package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/arbscanner/internal/app"
	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func newKeysCmd(opts *rootOptions) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	var (
		tier  string
		owner string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := domain.Tier(tier)
			if !t.Valid() {
				return fmt.Errorf("unknown tier %q (valid: free, pro, api)", tier)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			raw, err := app.CreateAPIKey(ctx, cfg, newLogger(opts.stderr, cfg.LogLevel), t, owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.stdout, raw)
			return nil
		},
	}
	create.Flags().StringVar(&tier, "tier", string(domain.TierFree), "key tier (free|pro|api)")
	create.Flags().StringVar(&owner, "owner", "", "label recorded with the key")

	keys.AddCommand(create)
	return keys
}
