package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/ui"
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	Aliases: []string{"focus"},
	GroupID: "views",
	Short:   "Show the focus queue",
	Long: `Show the focus queue: the three most urgent open items of priority 1-3 that
are due today or earlier, ordered by priority, then due date. Undated items
never enter the queue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := eng.GetFocusQueue(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), q)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), ui.FormatQueue(q, eng.Calendar().Today(eng.Now())))
		return err
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
}
