package cmd

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/ids"
)

var searchFlags struct {
	limit int
	json  bool
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Find entities by name",
	Long: wordwrap.WrapString(
		"Searches the knowledge graph for entities whose name contains the "+
			"given text, ignoring case. Useful for finding the ids of existing "+
			"types and properties to build on.",
		80),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := cmdutil.LoadEnv()
		if err != nil {
			return err
		}
		entities, err := env.Directory.SearchEntities(cmd.Context(), strings.Join(args, " "), searchFlags.limit)
		if err != nil {
			return err
		}
		if searchFlags.json {
			return output.JSON(cmd.OutOrStdout(), entities)
		}
		if len(entities) == 0 {
			cmd.PrintErrln("No entities found.")
			return nil
		}
		rows := [][]string{{"ID", "NAME", "SPACES", "DESCRIPTION"}}
		for _, e := range entities {
			spaces := lo.Map(e.SpaceIDs, func(id ids.ID, _ int) string { return id.String() })
			rows = append(rows, []string{e.ID.String(), e.Name, strings.Join(spaces, ","), e.Description})
		}
		output.Table(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 20, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchFlags.json, "json", false, "Output in JSON format")
}
