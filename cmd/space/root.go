package space

import (
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "space",
	Short: "Inspect and create spaces",
	Long: wordwrap.WrapString(
		"Spaces hold the edits published to the knowledge graph. A personal "+
			"space belongs to one account; a DAO space is governed by its members "+
			"and editors.",
		80),
}

func init() {
	Cmd.AddCommand(
		ensureCmd,
		infoCmd,
	)
}
