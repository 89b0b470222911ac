package cmd

import (
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/directory"
	"github.com/kgcourse/geopub/pkg/wallet"
)

var whoamiFlags struct {
	json bool
}

type whoami struct {
	Network       string `json:"network"`
	Account       string `json:"account"`
	Owner         string `json:"owner,omitempty"`
	PersonalSpace string `json:"personalSpace,omitempty"`
	Balance       string `json:"balance"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the publishing account and its personal space",
	Long:  "Prints the account edits are published from, its personal space and its balance.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := cmdutil.LoadEnv()
		if err != nil {
			return err
		}
		w, err := env.Wallet(ctx)
		if err != nil {
			return err
		}

		var (
			space   *directory.Space
			balance *big.Int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			space, err = env.Directory.PersonalSpaceByAddress(gctx, w.Address())
			if err != nil {
				return fmt.Errorf("looking up personal space: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			balance, err = env.Chain.Balance(gctx, w.Address())
			if err != nil {
				return fmt.Errorf("getting balance: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		res := whoami{
			Network: string(env.Network.Name),
			Account: w.Address().Hex(),
			Balance: humanize.BigComma(balance) + " wei",
		}
		if sa, ok := w.(*wallet.SmartAccount); ok {
			res.Owner = sa.Owner().Hex()
		}
		if space != nil {
			res.PersonalSpace = space.ID.String()
		}

		if whoamiFlags.json {
			return output.JSON(cmd.OutOrStdout(), res)
		}
		if res.PersonalSpace == "" {
			res.PersonalSpace = "none (created on first publish)"
		}
		output.Fields(cmd.OutOrStdout(),
			output.Field{Label: "network", Value: res.Network},
			output.Field{Label: "account", Value: res.Account},
			output.Field{Label: "owner", Value: res.Owner},
			output.Field{Label: "personal space", Value: res.PersonalSpace},
			output.Field{Label: "balance", Value: res.Balance},
		)
		return nil
	},
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiFlags.json, "json", false, "Output in JSON format")
}
