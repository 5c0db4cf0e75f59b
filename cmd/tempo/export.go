package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/export"
	"github.com/steveyegge/tempo/internal/ui"
	"github.com/steveyegge/tempo/internal/utils"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Write all items as JSON lines",
	Long: `Write every item with its monitoring associations as JSON lines, one item
per line, ordered by ID. With -o the file is replaced atomically and a
.manifest.json summary is written next to it; without -o the lines go to
stdout. 'tempo import' reads the result back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := export.Collect(cmd.Context(), store)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			return export.Encode(cmd.OutOrStdout(), recs)
		}

		path, err := utils.ResolveForWrite(output)
		if err != nil {
			return err
		}
		if err := export.WriteFile(path, recs); err != nil {
			return err
		}
		manifest := export.NewManifest(recs, eng.Now())
		if err := export.WriteManifest(path, manifest); err != nil {
			WarnError("%v", err)
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), manifest)
		}
		debug.PrintNormal("%s Exported %d item(s) to %s\n", ui.RenderPass(ui.IconDone), manifest.Items, output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
