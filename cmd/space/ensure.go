package space

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/internal/cmdutil"
)

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Print your personal space, creating it if needed",
	Long: wordwrap.WrapString(
		"Looks up the personal space of the configured account. If there is "+
			"none, deploys one on chain and waits until it is indexed, then "+
			"prints its id.",
		80),
	Args: cobra.NoArgs,
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

		if cmdutil.IsTerminal(os.Stderr) {
			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			s.Suffix = " finding personal space of " + w.Address().Hex()
			s.Start()
			defer s.Stop()
		}

		id, err := env.Spaces.EnsurePersonalSpace(ctx, w)
		if err != nil {
			return err
		}
		cmd.Println(id)
		return nil
	},
}
