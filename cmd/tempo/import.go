package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/importer"
	"github.com/steveyegge/tempo/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import [file]",
	GroupID: "data",
	Short:   "Create items from a plan file",
	Long: `Create items from a plan file. The format follows the extension:

  .toml          [[items]] tables
  .yaml / .yml   an items: list
  .jsonl         the output of 'tempo export'

Each plan item has a name, and optionally period, priority, due and
monitor (a list of calendar kinds). Example plan.toml:

  [[items]]
  name = "Weekly review"
  period = "weekly"
  priority = 2
  monitor = ["monthly"]

Invalid items are reported and skipped; --strict stops at the first one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := importer.ParseFile(args[0])
		if err != nil {
			return err
		}
		opts := importer.Options{}
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.SkipExisting, _ = cmd.Flags().GetBool("skip-existing")
		opts.Strict, _ = cmd.Flags().GetBool("strict")

		res, err := importer.Import(cmd.Context(), eng, plan, opts)
		if res != nil && res.Created > 0 && !opts.DryRun {
			markWrite()
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), res)
		}
		verb := "Imported"
		if opts.DryRun {
			verb = "Would import"
		}
		debug.PrintNormal("%s %s %d item(s), %d monitor(s); skipped %d\n",
			ui.RenderPass(ui.IconDone), verb, res.Created, res.Monitored, res.Skipped)
		for _, msg := range res.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.RenderWarn(ui.IconWarn), msg)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Validate the plan without writing anything")
	importCmd.Flags().Bool("skip-existing", false, "Skip items whose name and period (or ID) already exist")
	importCmd.Flags().Bool("strict", false, "Fail on the first invalid item")
	rootCmd.AddCommand(importCmd)
}
