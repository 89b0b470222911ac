package cmd

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/config"
)

var historyFlags struct {
	limit int
	json  bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous publishes",
	Long:  "Lists the publishes recorded in the local journal, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := config.Load[config.Config]()
		if err != nil {
			return err
		}
		j, err := cmdutil.OpenJournal(ctx, cfg.Repo)
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.List(ctx, historyFlags.limit)
		if err != nil {
			return err
		}
		if historyFlags.json {
			return output.JSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			cmd.PrintErrln("Nothing published yet.")
			return nil
		}

		rows := [][]string{{"WHEN", "NAME", "OPS", "NETWORK", "SPACE", "RESULT"}}
		for _, e := range entries {
			result := e.Result.TransactionHash
			if !e.Result.Success {
				result = "failed: " + e.Result.Error
			}
			rows = append(rows, []string{
				humanize.Time(e.CreatedAt),
				e.EditName,
				strconv.Itoa(e.OpCount),
				e.Network,
				e.Result.SpaceID,
				result,
			})
		}
		output.Table(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "Maximum number of entries; 0 lists everything")
	historyCmd.Flags().BoolVar(&historyFlags.json, "json", false, "Output in JSON format")
}
