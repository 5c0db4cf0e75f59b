package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/timeparsing"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/ui"
	"github.com/steveyegge/tempo/internal/utils"
)

var priorityCmd = &cobra.Command{
	Use:     "priority [id] [1-10]",
	GroupID: "items",
	Short:   "Change an item's priority",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd, args[0])
		if err != nil {
			return err
		}
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q: must be a number between %d and %d", args[1], types.MinPriority, types.MaxPriority)
		}
		item, err := eng.SetPriority(cmd.Context(), id, p)
		if err != nil {
			return err
		}
		markWrite()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), item)
		}
		debug.PrintNormal("%s %s is now %s\n", ui.RenderPass(ui.IconDone), item.Name, ui.RenderPriority(item.Priority))
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:     "due [id] [date|none]",
	GroupID: "items",
	Short:   "Set or clear an item's due date",
	Long: `Set an item's due date. Accepts 2025-07-01, compact offsets like +3d, and
phrases like "tomorrow" or "next friday". "none" clears the date.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd, args[0])
		if err != nil {
			return err
		}
		due, err := timeparsing.ParseDueDate(strings.Join(args[1:], " "), localNow())
		if err != nil {
			return err
		}
		item, err := eng.SetDueDate(cmd.Context(), id, due)
		if err != nil {
			return err
		}
		markWrite()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), item)
		}
		if item.DueDate == nil {
			debug.PrintNormal("%s Cleared due date of %s\n", ui.RenderPass(ui.IconDone), item.Name)
			return nil
		}
		debug.PrintNormal("%s %s is due %s\n", ui.RenderPass(ui.IconDone), item.Name, item.DueDate.Format(types.DateLayout))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete [id...]",
	Aliases: []string{"rm"},
	GroupID: "items",
	Short:   "Delete items with their statuses and monitors",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := utils.ResolvePartialIDs(cmd.Context(), store, args)
		if err != nil {
			return err
		}
		var deleted []string
		for _, id := range ids {
			if err := eng.DeleteItem(cmd.Context(), id); err != nil {
				if len(deleted) > 0 {
					markWrite()
				}
				return err
			}
			deleted = append(deleted, id)
			debug.PrintNormal("%s Deleted %s\n", ui.RenderPass(ui.IconDone), id)
		}
		markWrite()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string][]string{"deleted": deleted})
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show [id]",
	GroupID: "items",
	Short:   "Show an item with its monitors and period history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := resolveID(cmd, args[0])
		if err != nil {
			return err
		}
		item, err := eng.GetItem(ctx, id)
		if err != nil {
			return err
		}
		monitors, err := store.ListMonitors(ctx, id)
		if err != nil {
			return err
		}
		statuses, err := store.ListPeriodStatuses(ctx, id)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
				"item":     item,
				"monitors": monitors,
				"statuses": statuses,
			})
		}

		out := cmd.OutOrStdout()
		today := eng.Calendar().Today(eng.Now())
		fmt.Fprintf(out, "%s\n%s\n", ui.RenderAccent(item.ID), ui.WrapText(item.Name, ui.TerminalWidth(80)))
		fmt.Fprintf(out, "  Home:     %s\n", ui.RenderPeriod(item.HomePeriod))
		fmt.Fprintf(out, "  Priority: %s\n", ui.RenderPriority(item.Priority))
		fmt.Fprintf(out, "  Due:      %s\n", orDash(ui.FormatDue(item.DueDate, today)))
		fmt.Fprintf(out, "  State:    %s\n", item.Lifecycle())
		fmt.Fprintf(out, "  Created:  %s\n", item.CreatedAt.Local().Format("2006-01-02 15:04"))
		if len(monitors) > 0 {
			fmt.Fprintf(out, "\n%s\n", ui.RenderCategory("monitored in"))
			for _, m := range monitors {
				fmt.Fprintf(out, "  %s\n", ui.RenderPeriod(m.PeriodKind))
			}
		}
		if len(statuses) > 0 {
			fmt.Fprintf(out, "\n%s\n", ui.RenderCategory("history"))
			for _, st := range statuses {
				fmt.Fprintf(out, "  %s %s\n", statusLabel(st.Status), eng.Calendar().WindowFor(st.PeriodKind, st.WindowStart))
			}
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(priorityCmd, dueCmd, deleteCmd, showCmd)
}
