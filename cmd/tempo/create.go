package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/timeparsing"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create [name]",
	Aliases: []string{"add", "new"},
	GroupID: "items",
	Short:   "Create a new work item",
	Long: `Create a new work item.

The home period decides the window the item is tracked in. Calendar kinds
(daily, weekly, monthly, yearly) can additionally be monitored with
--monitor, so completing the item also counts in those views.

Priorities run from 1 (most urgent) to 10 (backlog, the default). Items of
priority 1-3 that are due compete for the three focus slots.

Examples:
  tempo create "Write weekly report" --period weekly --priority 2 --due friday
  tempo create "Stretch" -p daily --monitor weekly,monthly
  tempo create --form`,
	Args: func(cmd *cobra.Command, args []string) error {
		if form, _ := cmd.Flags().GetBool("form"); form {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var in createInput
		if form, _ := cmd.Flags().GetBool("form"); form {
			filled, err := runCreateForm()
			if err != nil {
				return err
			}
			if filled == nil {
				debug.PrintNormal("Item creation cancelled.\n")
				return nil
			}
			in = *filled
		} else {
			in.Name = strings.Join(args, " ")
			in.Period, _ = cmd.Flags().GetString("period")
			in.Priority, _ = cmd.Flags().GetInt("priority")
			in.Due, _ = cmd.Flags().GetString("due")
			in.Monitor, _ = cmd.Flags().GetString("monitor")
		}
		return createItem(cmd, in)
	},
}

// createInput holds the raw values of one create call, from flags or the form.
type createInput struct {
	Name     string
	Period   string
	Priority int
	Due      string
	Monitor  string // comma-separated calendar kinds
}

func createItem(cmd *cobra.Command, in createInput) error {
	ctx := cmd.Context()
	item := &types.WorkItem{
		Name:     strings.TrimSpace(in.Name),
		Priority: in.Priority,
	}
	if in.Period != "" {
		kind, err := parsePeriodKind(in.Period)
		if err != nil {
			return err
		}
		item.HomePeriod = kind
	}
	due, err := timeparsing.ParseDueDate(in.Due, localNow())
	if err != nil {
		return fmt.Errorf("invalid --due: %w", err)
	}
	item.DueDate = due

	monitors, err := parseMonitorList(in.Monitor)
	if err != nil {
		return err
	}

	created, err := eng.OnItemCreated(ctx, item)
	if err != nil {
		return err
	}
	markWrite()
	for _, kind := range monitors {
		if err := eng.Monitor(ctx, created.ID, kind); err != nil {
			return fmt.Errorf("item %s created, but monitoring %s failed: %w", created.ID, kind, err)
		}
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), created)
	}
	debug.PrintNormal("%s Created item %s: %s [%s %s]\n",
		ui.RenderPass(ui.IconDone), created.ID, created.Name,
		ui.RenderPriority(created.Priority), ui.RenderPeriod(created.HomePeriod))
	return nil
}

func parseMonitorList(s string) ([]types.PeriodKind, error) {
	var kinds []types.PeriodKind
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kind, err := parsePeriodKind(part)
		if err != nil {
			return nil, fmt.Errorf("invalid --monitor: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func init() {
	createCmd.Flags().StringP("period", "p", string(types.PeriodOneTime), "Home period kind")
	createCmd.Flags().Int("priority", types.DefaultPriority, fmt.Sprintf("Priority (%d-%d, %d = backlog)", types.MinPriority, types.MaxPriority, types.DefaultPriority))
	createCmd.Flags().String("due", "", "Due date (2025-07-01, +3d, tomorrow, \"next friday\")")
	createCmd.Flags().String("monitor", "", "Comma-separated calendar kinds to also track the item in")
	createCmd.Flags().Bool("form", false, "Fill in the item with an interactive form")
	rootCmd.AddCommand(createCmd)
}
