package space

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/directory"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/router"
)

var infoFlags struct {
	jsonOutput bool
}

type spaceInfo struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Address string   `json:"address"`
	Members []string `json:"members"`
	Editors []string `json:"editors"`
}

func toInfo(s *directory.Space) spaceInfo {
	str := func(id ids.ID, _ int) string { return id.String() }
	return spaceInfo{
		ID:      s.ID.String(),
		Kind:    s.Kind.String(),
		Address: s.Address.Hex(),
		Members: lo.Map(s.Members, str),
		Editors: lo.Map(s.Editors, str),
	}
}

var infoCmd = &cobra.Command{
	Use:   "info <space-id>",
	Short: "Get information about a space",
	Long:  "Prints a space's governance kind, its on-chain address, and its members and editors.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cmdutil.ParseSpaceID(args[0])
		if err != nil {
			return err
		}
		env, err := cmdutil.LoadEnv()
		if err != nil {
			return err
		}
		space, err := env.Directory.SpaceByID(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("getting space info: %w", err)
		}
		if space == nil {
			return fmt.Errorf("space %s %w", id, router.ErrSpaceNotFound)
		}

		info := toInfo(space)
		if infoFlags.jsonOutput {
			return output.JSON(cmd.OutOrStdout(), info)
		}
		output.Fields(cmd.OutOrStdout(),
			output.Field{Label: "space", Value: info.ID},
			output.Field{Label: "kind", Value: info.Kind},
			output.Field{Label: "address", Value: info.Address},
		)
		if space.Kind == directory.DAO {
			cmd.Printf("members (%d):\n", len(info.Members))
			for _, m := range info.Members {
				cmd.Printf("  - %s\n", m)
			}
			cmd.Printf("editors (%d):\n", len(info.Editors))
			for _, e := range info.Editors {
				cmd.Printf("  - %s\n", e)
			}
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoFlags.jsonOutput, "json", false, "Output in JSON format")
}
