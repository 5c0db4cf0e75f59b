package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/tracker"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/ui"
)

var doneCmd = &cobra.Command{
	Use:     "done [id]",
	Aliases: []string{"complete"},
	GroupID: "items",
	Short:   "Mark an item complete in one window",
	Long: `Mark an item complete in the window of --period containing --date.

On the home period this completes the item itself and cascades the
completion into every coarser calendar period the item is monitored in.
Marking a non-home period only records that window.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMark(cmd, args[0], tracker.MarkRequest{Complete: true})
	},
}

var naCmd = &cobra.Command{
	Use:     "na [id]",
	GroupID: "items",
	Short:   "Mark an item not applicable in one window",
	Long: `Mark an item not applicable in the window of --period containing --date.

NA on the home period takes the item out of the focus queue without
completing it, and cascades into the coarser calendar periods the item is
monitored in the same way a completion does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMark(cmd, args[0], tracker.MarkRequest{NA: true})
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen [id]",
	GroupID: "items",
	Short:   "Reset an item's status in one window",
	Long: `Reset the window of --period containing --date to no status. Reopening the
home period makes the item active again. Cascaded completions in coarser
windows are left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, kind, at, err := windowArgs(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := eng.Reopen(cmd.Context(), id, kind, at)
		if err != nil {
			return err
		}
		markWrite()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), res)
		}
		debug.PrintNormal("%s Reopened %s in %s\n", ui.RenderAccent(ui.IconActive), res.Item.Name,
			eng.Calendar().WindowFor(kind, at))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status [id]",
	GroupID: "items",
	Short:   "Show an item's status in one window",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, kind, at, err := windowArgs(cmd, args[0])
		if err != nil {
			return err
		}
		st, err := eng.GetStatus(cmd.Context(), id, kind, at)
		if err != nil {
			return err
		}
		w := eng.Calendar().WindowFor(kind, at)
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
				"id":           id,
				"period":       kind,
				"window_start": w.Start,
				"status":       st,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", statusLabel(st), w)
		return nil
	},
}

// windowArgs resolves the item ID and the window flags of cmd.
func windowArgs(cmd *cobra.Command, input string) (string, types.PeriodKind, time.Time, error) {
	id, err := resolveID(cmd, input)
	if err != nil {
		return "", "", time.Time{}, err
	}
	kind, err := targetKind(cmd, id)
	if err != nil {
		return "", "", time.Time{}, err
	}
	dateStr, _ := cmd.Flags().GetString("date")
	at, err := parseInstant(dateStr)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid --date: %w", err)
	}
	return id, kind, at, nil
}

func runMark(cmd *cobra.Command, input string, req tracker.MarkRequest) error {
	id, kind, at, err := windowArgs(cmd, input)
	if err != nil {
		return err
	}
	req.ItemID, req.Kind, req.Window = id, kind, at
	res, err := eng.Mark(cmd.Context(), req)
	if err != nil {
		return err
	}
	markWrite()

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), res)
	}
	debug.PrintNormal("%s %s in %s\n", statusLabel(res.Status), res.Item.Name, eng.Calendar().WindowFor(kind, at))
	for _, c := range res.Cascaded {
		debug.PrintNormal("  %s also completed in %s\n", ui.RenderMuted("↳"),
			eng.Calendar().WindowFor(c.PeriodKind, c.WindowStart))
	}
	if res.FreedFocusSlot() {
		debug.PrintNormal("  %s focus slot freed\n", ui.RenderAccent(ui.IconFocus))
	}
	return nil
}

func statusLabel(s types.Status) string {
	switch s {
	case types.StatusCompleted:
		return ui.RenderPass(ui.IconDone + " completed")
	case types.StatusNA:
		return ui.RenderMuted(ui.IconNA + " n/a")
	}
	return ui.RenderAccent(ui.IconActive + " open")
}

func init() {
	for _, c := range []*cobra.Command{doneCmd, naCmd, reopenCmd, statusCmd} {
		addWindowFlags(c)
		rootCmd.AddCommand(c)
	}
}
