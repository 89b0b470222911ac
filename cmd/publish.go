package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/bus"
	"github.com/kgcourse/geopub/pkg/bus/events"
	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/journal"
	"github.com/kgcourse/geopub/pkg/router"
)

var publishFlags struct {
	name      string
	space     string
	json      bool
	noJournal bool
}

var publishCmd = &cobra.Command{
	Use:   "publish <ops-file>",
	Short: "Publish a batch of operations as one edit",
	Long: wordwrap.WrapString(
		"Publishes the operations in the given JSON file as a single edit. "+
			"Without --space the edit goes to the configured default space, or "+
			"to your personal space, which is created on chain if you have none. "+
			"Edits to a DAO space are submitted as proposals and require your "+
			"personal space to be a member or editor of it. "+
			"Use - to read the operations from stdin.",
		80),
	Example: "  geopub ops property Born --type TIME\n" +
		"  geopub publish ops.json --name \"Add birth dates\"",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ops, err := readOps(cmd, args[0])
		if err != nil {
			return err
		}
		req := router.Request{
			ID:       ids.New(),
			EditName: publishFlags.name,
			Ops:      ops,
		}
		if publishFlags.space != "" {
			if req.SpaceID, err = cmdutil.ParseSpaceID(publishFlags.space); err != nil {
				return err
			}
		}

		env, err := cmdutil.LoadEnv()
		if err != nil {
			return err
		}
		b := bus.New()
		r, err := env.Router(b)
		if err != nil {
			return err
		}

		if !publishFlags.json && cmdutil.IsTerminal(os.Stderr) {
			stop, err := showProgress(cmd, b, req.ID)
			if err != nil {
				return err
			}
			defer stop()
		}

		log.Infow("publishing", "request", req.ID, "ops", len(ops), "network", env.Network.Name)
		res, runErr := r.Run(ctx, req)
		record(cmd, env, req, res)

		if publishFlags.json {
			if err := output.JSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			output.Result(cmd.OutOrStdout(), res)
		}
		if !res.Success {
			if hint := cmdutil.Hint(runErr); hint != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "hint: "+hint)
			}
			return cmdutil.NewHandledCliError(errors.New(res.Error))
		}
		return nil
	},
}

func readOps(cmd *cobra.Command, path string) ([]graph.Op, error) {
	if path == "-" {
		ops, err := graph.ReadOps(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return ops, nil
	}
	return cmdutil.ReadOpsFile(cmdutil.Fs, path)
}

// showProgress renders router state transitions in a spinner until stop is
// called.
func showProgress(cmd *cobra.Command, b bus.Subscriber, requestID ids.ID) (func(), error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr())) // Spinner: ⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏
	s.Suffix = " starting"

	topic := events.TopicPublishState(requestID)
	handler := func(view events.PublishStateView) {
		s.Lock()
		s.Suffix = " " + view.State.Description()
		s.Unlock()
	}
	if err := b.Subscribe(topic, handler); err != nil {
		return nil, fmt.Errorf("subscribing to publish progress: %w", err)
	}
	s.Start()
	return func() {
		s.Stop()
		if err := b.Unsubscribe(topic, handler); err != nil {
			log.Warnw("unsubscribing from publish progress", "error", err)
		}
	}, nil
}

// record adds the result to the journal. A journal failure never fails the
// publish itself.
func record(cmd *cobra.Command, env *cmdutil.Env, req router.Request, res router.Result) {
	if publishFlags.noJournal {
		return
	}
	ctx := cmd.Context()
	j, err := cmdutil.OpenJournal(ctx, env.Config.Repo)
	if err != nil {
		output.Warning(cmd.ErrOrStderr(), "not recording publish: %s", err)
		return
	}
	defer j.Close()
	err = j.Record(ctx, journal.Entry{
		RequestID: req.ID,
		Network:   string(env.Network.Name),
		EditName:  req.EditName,
		OpCount:   len(req.Ops),
		Result:    res,
	})
	if err != nil {
		output.Warning(cmd.ErrOrStderr(), "not recording publish: %s", err)
	}
}

func init() {
	publishCmd.Flags().StringVar(&publishFlags.name, "name", "", "Name of the edit")
	publishCmd.Flags().StringVar(&publishFlags.space, "to", "", "Space to publish to, overriding --space")
	publishCmd.Flags().BoolVar(&publishFlags.json, "json", false, "Print the result as JSON")
	publishCmd.Flags().BoolVar(&publishFlags.noJournal, "no-journal", false, "Do not record the result in the publish journal")
	cobra.CheckErr(publishCmd.MarkFlagRequired("name"))
}
