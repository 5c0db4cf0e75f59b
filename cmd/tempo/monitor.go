package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/ui"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor [id] [period]",
	Aliases: []string{"track"},
	GroupID: "items",
	Short:   "Also track an item in a calendar period",
	Long: `Monitor an item in a calendar period other than its home period. The item
then shows up in that period's views, and completing it on its home period
cascades into the monitored period's current window when that is coarser.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd, args, true)
	},
}

var unmonitorCmd = &cobra.Command{
	Use:     "unmonitor [id] [period]",
	Aliases: []string{"untrack"},
	GroupID: "items",
	Short:   "Stop tracking an item in a period",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd, args, false)
	},
}

func runMonitor(cmd *cobra.Command, args []string, add bool) error {
	id, err := resolveID(cmd, args[0])
	if err != nil {
		return err
	}
	kind, err := parsePeriodKind(args[1])
	if err != nil {
		return err
	}
	verb := "Monitoring"
	if add {
		err = eng.Monitor(cmd.Context(), id, kind)
	} else {
		verb = "Stopped monitoring"
		err = eng.Unmonitor(cmd.Context(), id, kind)
	}
	if err != nil {
		return err
	}
	markWrite()
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
			"id":        id,
			"period":    kind,
			"monitored": add,
		})
	}
	debug.PrintNormal("%s %s %s in %s\n", ui.RenderPass(ui.IconDone), verb, id, ui.RenderPeriod(kind))
	return nil
}

func init() {
	rootCmd.AddCommand(monitorCmd, unmonitorCmd)
}
