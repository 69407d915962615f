package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/journal"
)

// historyOpts holds flags for the history command.
type historyOpts struct {
	limit   int
	journal string
}

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	opts := historyOpts{}

	cmd := &cobra.Command{
		Use:   "history [run-id|latest]",
		Short: "List past calibration runs or the observations of one run",
		Example: `  pagefit history
  pagefit history latest`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return c.runHistory(cmd.Context(), runID, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().StringVar(&opts.journal, "journal", "", "journal database path (overrides [project] journal)")

	return cmd
}

func (c *CLI) runHistory(ctx context.Context, runID string, opts historyOpts) error {
	path := opts.journal
	if path == "" {
		cfg, err := c.loadProject()
		if err != nil {
			return err
		}
		path = cfg.Project.Journal
	}

	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID == "" {
		runs, err := store.Runs(ctx, opts.limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			printInfo("No runs recorded")
			return nil
		}
		fmt.Println(runsTable(runs))
		return nil
	}

	var run journal.Run
	var ok bool
	if runID == "latest" {
		run, ok, err = store.LatestRun(ctx)
	} else {
		run, ok, err = store.Run(ctx, runID)
	}
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeConfig, "run %q not found", runID)
	}

	entries, err := store.Observations(ctx, run.ID)
	if err != nil {
		return err
	}
	printKeyValue("Run", run.ID)
	printKeyValue("Status", run.Status)
	printKeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	if run.Reason != "" {
		printKeyValue("Reason", run.Reason)
	}
	printNewline()
	fmt.Println(observationsTable(entries))
	return nil
}

func runsTable(runs []journal.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		took := "-"
		if !r.FinishedAt.IsZero() {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			fmt.Sprintf("%d", r.Iterations),
			took,
		})
	}
	return plainTable([]string{"Run", "Started", "Status", "Iterations", "Took"}, rows)
}

func observationsTable(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Iteration),
			e.Variant,
			e.Class,
			fmt.Sprintf("%d", e.Assessment.Measurement.Pages),
			fmt.Sprintf("%+.2fpt", e.Assessment.DeltaPts),
			formatSettings(e.Settings),
			e.Strategy,
		})
	}
	return plainTable([]string{"Iter", "Variant", "Result", "Pages", "Delta", "Settings", "Strategy"}, rows)
}
