package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/tempo/internal/config"
	"github.com/steveyegge/tempo/internal/engine"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/ui"
)

var agendaCmd = &cobra.Command{
	Use:     "agenda",
	GroupID: "views",
	Short:   "Show the focus queue and the current day, week, month and year",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var asOf time.Time
		if s, _ := cmd.Flags().GetString("as-of"); s != "" {
			var err error
			if asOf, err = parseInstant(s); err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}
		}
		var (
			sections []engine.AgendaSection
			queue    *types.FocusQueue
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			sections, err = eng.Agenda(gctx, asOf)
			return err
		})
		g.Go(func() (err error) {
			queue, err = eng.GetFocusQueue(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
				"focus":    queue,
				"sections": sections,
			})
		}

		today := eng.Calendar().Today(eng.Now())
		var sb strings.Builder
		sb.WriteString(ui.FormatQueue(queue, today))
		for _, s := range sections {
			sb.WriteString("\n")
			sb.WriteString(ui.FormatSection(s.Window.String(), s.Items, today))
		}
		sb.WriteString(ui.RenderSeparator())
		sb.WriteString("\n")
		sb.WriteString(ui.RenderMuted(summarize(sections)))
		sb.WriteString("\n")

		noPager, _ := cmd.Flags().GetBool("no-pager")
		return ui.ToPager(cmd.OutOrStdout(), sb.String(), ui.PagerOptions{
			NoPager: noPager || config.GetBool("no-pager"),
			Command: config.GetString("pager"),
		})
	},
}

// summarize counts open items across the agenda's sections.
func summarize(sections []engine.AgendaSection) string {
	var open, done int
	for _, s := range sections {
		for _, v := range s.Items {
			switch v.Status {
			case types.ViewActive:
				open++
			case types.ViewDone:
				done++
			}
		}
	}
	return fmt.Sprintf("%d open, %d done across %d views", open, done, len(sections))
}

func init() {
	agendaCmd.Flags().String("as-of", "", "Show the agenda as it looked at this time (default: now)")
	agendaCmd.Flags().Bool("no-pager", false, "Do not pipe output through a pager")
	rootCmd.AddCommand(agendaCmd)
}
