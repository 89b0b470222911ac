// Package ops holds the commands that build operation batches on disk.
package ops

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
)

var opsFile string

var Cmd = &cobra.Command{
	Use:   "ops",
	Short: "Build a batch of operations",
	Long: wordwrap.WrapString(
		"Appends operations to a JSON batch file, ready to be published as one "+
			"edit with `geopub publish`. Each command prints the id of the "+
			"element it creates so later commands can refer to it.",
		80),
}

func init() {
	Cmd.PersistentFlags().StringVarP(&opsFile, "file", "f", "ops.json", "Batch file to append to")
	Cmd.AddCommand(
		propertyCmd,
		typeCmd,
		entityCmd,
		updateCmd,
		relationCmd,
		deleteCmd,
		showCmd,
	)
}

// appendOps writes created to the batch file and prints its id.
func appendOps(cmd *cobra.Command, kind string, created graph.Created) error {
	n, err := cmdutil.AppendOpsFile(cmdutil.Fs, opsFile, created.Ops)
	if err != nil {
		return err
	}
	cmd.Println(created.ID)
	cmd.PrintErrf("added %s (%d ops, %d in %s)\n", kind, len(created.Ops), n, opsFile)
	return nil
}

func parseIDs(flag string, values []string) ([]ids.ID, error) {
	out := make([]ids.ID, len(values))
	for i, v := range values {
		id, err := ids.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", flag, err)
		}
		out[i] = id
	}
	return out, nil
}

// parseValues parses property=value pairs.
func parseValues(values []string) ([]graph.Value, error) {
	out := make([]graph.Value, 0, len(values))
	for _, kv := range values {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--value %q: expected <property-id>=<value>", kv)
		}
		prop, err := ids.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("--value %q: %w", kv, err)
		}
		out = append(out, graph.Value{Property: prop, Value: v})
	}
	return out, nil
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize the operations in the batch file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ops, err := cmdutil.ReadOpsFile(cmdutil.Fs, opsFile)
		if err != nil {
			return err
		}
		counts := graph.Summarize(ops)
		rows := [][]string{{"TYPE", "COUNT"}}
		for _, t := range []graph.OpType{
			graph.CreatePropertyOp,
			graph.CreateEntityOp,
			graph.UpdateEntityOp,
			graph.DeleteEntityOp,
			graph.CreateRelationOp,
			graph.DeleteRelationOp,
		} {
			if counts[t] > 0 {
				rows = append(rows, []string{string(t), fmt.Sprint(counts[t])})
			}
		}
		output.Table(cmd.OutOrStdout(), rows)
		cmd.Printf("%d ops in %s\n", len(ops), opsFile)
		return nil
	},
}
