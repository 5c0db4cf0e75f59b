package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/config"
	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/lockfile"
	"github.com/steveyegge/tempo/internal/ui"
)

var sweepCmd = &cobra.Command{
	Use:     "sweep",
	GroupID: "data",
	Short:   "Fill empty focus slots from the backlog",
	Long: `Promote backlog items into empty focus slots.

Promotions normally happen when a focus item is completed. A promotion that
lost too many concurrent races is left for the sweep. Without --daemon the
sweep runs once; with --daemon it repeats every --interval until interrupted.
Only one daemon runs per database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if status, _ := cmd.Flags().GetBool("status"); status {
			return printSweeperStatus(cmd)
		}
		daemon, _ := cmd.Flags().GetBool("daemon")
		if !daemon {
			promoted, err := eng.Reconcile(ctx)
			if err != nil {
				return err
			}
			if len(promoted) > 0 {
				markWrite()
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]interface{}{"promoted": promoted})
			}
			if len(promoted) == 0 {
				debug.PrintNormal("%s Focus queue is up to date\n", ui.RenderPass(ui.IconDone))
			}
			for _, item := range promoted {
				debug.PrintNormal("%s Promoted %s to %s\n", ui.RenderAccent(ui.IconFocus), item.Name, ui.RenderPriority(item.Priority))
			}
			return nil
		}

		interval := config.GetSweepInterval()
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}
		lock, err := lockfile.Acquire(lockDir(), lockfile.LockInfo{
			PID:       os.Getpid(),
			Database:  dbPath,
			Version:   Version,
			StartedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("another sweeper is running: %w", err)
		}
		defer func() { _ = lock.Release() }()

		debug.PrintNormal("Sweeping every %v (Ctrl+C to stop)\n", interval)
		debug.Logf("sweep: lock %s held by pid %d\n", lockDir(), os.Getpid())
		return eng.RunSweeper(ctx, interval)
	},
}

// printSweeperStatus reports whether a sweep daemon holds the lock of the
// current database.
func printSweeperStatus(cmd *cobra.Command) error {
	dir := lockDir()
	running, info := lockfile.Holder(dir)
	stale := false
	if !running {
		if prev, err := lockfile.ReadLockInfo(dir); err == nil && prev.PID > 0 && !lockfile.IsProcessRunning(prev.PID) {
			info, stale = prev, true
		}
	}
	if jsonOutput {
		out := map[string]interface{}{"running": running, "stale": stale}
		if info != nil {
			out["holder"] = info
		}
		return outputJSON(cmd.OutOrStdout(), out)
	}
	w := cmd.OutOrStdout()
	switch {
	case running && info != nil:
		fmt.Fprintf(w, "%s Sweeper running (pid %d, since %s)\n", ui.RenderPass(ui.IconDone), info.PID,
			info.StartedAt.Local().Format("2006-01-02 15:04"))
	case running:
		fmt.Fprintf(w, "%s Sweeper running\n", ui.RenderPass(ui.IconDone))
	case stale:
		fmt.Fprintf(w, "%s No sweeper running (stale lock file from pid %d)\n", ui.RenderWarn(ui.IconWarn), info.PID)
	default:
		fmt.Fprintln(w, "No sweeper running")
	}
	return nil
}

// lockDir is the directory of the sweeper lock: next to the SQLite file, or
// the default data directory for server backends.
func lockDir() string {
	if dbPath != "" {
		return filepath.Dir(dbPath)
	}
	return filepath.Dir(config.GetDBPath())
}

func init() {
	sweepCmd.Flags().Bool("daemon", false, "Keep sweeping until interrupted")
	sweepCmd.Flags().Bool("status", false, "Report whether a sweep daemon is running")
	sweepCmd.Flags().Duration("interval", time.Minute, "Time between sweeps in daemon mode (default: sweep.interval)")
	rootCmd.AddCommand(sweepCmd)
}
