package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/config"
	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Show and change settings",
	Long: `Show and change settings.

Settings are read, lowest precedence first, from built-in defaults, the
config file and TEMPO_* environment variables (dots and dashes become
underscores: focus.promotion-retries is TEMPO_FOCUS_PROMOTION_RETRIES).

The config file is $TEMPO_CONFIG if set, else .tempo/config.yaml in the
nearest project, else ~/.config/tempo/config.yaml. 'config set' writes the
project file, creating .tempo/config.yaml in the working directory when no
project exists yet.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its effective value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := config.SortedKnownKeys()
		if jsonOutput {
			out := make(map[string]string, len(keys))
			for _, k := range keys {
				out[k] = displayValue(k)
			}
			return outputJSON(cmd.OutOrStdout(), out)
		}
		w := cmd.OutOrStdout()
		if used := config.ConfigFileUsed(); used != "" {
			fmt.Fprintf(w, "%s %s\n\n", ui.RenderMuted("config file:"), used)
		}
		for _, k := range keys {
			source := "default"
			if config.IsSet(k) {
				source = "set"
			}
			fmt.Fprintf(w, "%s %s %s\n", ui.PadRight(k, 26), ui.PadRight(displayValue(k), 24), ui.RenderMuted("("+source+")"))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !config.IsKnownKey(key) {
			return fmt.Errorf("unknown config key %q", key)
		}
		value := config.GetYamlConfig(key)
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]string{"key": key, "value": value})
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Write one setting to the project config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.SetYamlConfig(args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]string{"key": args[0], "value": args[1], "file": path})
		}
		debug.PrintNormal("%s Set %s = %s in %s\n", ui.RenderPass(ui.IconDone), args[0], args[1], path)
		return nil
	},
}

// displayValue hides secrets.
func displayValue(key string) string {
	value := config.GetString(key)
	if strings.Contains(key, "password") && value != "" {
		return "********"
	}
	return value
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
