package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wiretidy/wiretidy/pkg/report"
)

// newHistoryCmd creates the history command with subcommands.
func newHistoryCmd() *cobra.Command {
	var (
		limit       int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past optimization runs",
		Long: `List past optimization runs, newest first.

Runs are recorded every time optimize executes. With --interactive the
list opens as a navigable picker that prints the selected run's details.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runHistoryList(c.Context(), limit, interactive)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick a run interactively")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runHistoryShow(c.Context(), args[0])
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Remove one run from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			store, err := newStore(c.Context(), configFromContext(c.Context()))
			if err != nil {
				return err
			}
			defer store.Close(c.Context())

			if err := store.Delete(c.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted run %s", args[0])
			return nil
		},
	}
}

func runHistoryList(ctx context.Context, limit int, interactive bool) error {
	store, err := newStore(ctx, configFromContext(ctx))
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No runs recorded yet")
		printNextStep("Record one", "wiretidy optimize <diagram.json>")
		return nil
	}

	if interactive {
		return runHistoryPicker(runs)
	}

	for _, run := range runs {
		printRunLine(run)
	}
	return nil
}

func runHistoryShow(ctx context.Context, id string) error {
	store, err := newStore(ctx, configFromContext(ctx))
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	run, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// runHistoryPicker opens the interactive run list and prints the
// selected run's details.
func runHistoryPicker(runs []*report.Run) error {
	model := NewRunListModel(runs)
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("interactive list: %w", err)
	}

	m, ok := final.(RunListModel)
	if !ok || m.Selected == nil {
		return nil
	}

	run := m.Selected
	printSuccess("Run %s", run.ID)
	printKeyValue("Source", run.Source)
	printKeyValue("When", run.CreatedAt.Local().Format("Jan 2, 2006 15:04"))
	printKeyValue("Delta", fmt.Sprintf("%+.1f", run.TotalImprovement()))
	if run.Score != nil {
		printKeyValue("Visual", fmt.Sprintf("%d/100 (%s)", run.Score.Score, run.Score.Mode))
	}
	printNextStep("Full record", fmt.Sprintf("wiretidy history show %s", run.ID))
	return nil
}

// printRunLine prints one run as a compact list entry.
func printRunLine(run *report.Run) {
	delta := fmt.Sprintf("%+.1f", run.TotalImprovement())
	fmt.Println(
		StyleDim.Render(formatRelativeTime(run.CreatedAt)) + "  " +
			StyleValue.Render(run.Source) + "  " +
			StyleNumber.Render(delta) + "  " +
			StyleDim.Render(run.ID))
}
