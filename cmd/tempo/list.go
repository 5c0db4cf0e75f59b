package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/storage/factory"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/ui"
)

// watchDebounce coalesces the burst of events one SQLite commit produces.
const watchDebounce = 250 * time.Millisecond

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: "views",
	Short:   "List the items visible in one period window",
	Long: `List the items of one period view: the window of --period containing --date,
as it looked at --as-of.

Items homed in the period are shown together with items monitored in it.
An item completed or marked NA before the window started is hidden; one
finished inside the window stays visible as done. Items created after
--as-of are not shown.

With --watch the view is redrawn whenever the database changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		periodStr, _ := cmd.Flags().GetString("period")
		kind, err := parsePeriodKind(periodStr)
		if err != nil {
			return err
		}
		dateStr, _ := cmd.Flags().GetString("date")
		at, err := parseInstant(dateStr)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		var asOf time.Time
		if s, _ := cmd.Flags().GetString("as-of"); s != "" {
			if asOf, err = parseInstant(s); err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}
		}

		render := func(w io.Writer) error {
			return renderList(cmd.Context(), w, kind, at, asOf)
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchDatabase(cmd.Context(), cmd.OutOrStdout(), render)
		}
		return render(cmd.OutOrStdout())
	},
}

func renderList(ctx context.Context, w io.Writer, kind types.PeriodKind, at, asOf time.Time) error {
	win := eng.Calendar().WindowFor(kind, at)
	if asOf.IsZero() {
		asOf = eng.Now()
	}
	views, err := eng.ListVisible(ctx, kind, win.Start, win.LastDay(), asOf)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(w, map[string]interface{}{
			"window": win,
			"as_of":  asOf,
			"items":  views,
		})
	}
	_, err = io.WriteString(w, ui.FormatSection(win.String(), views, eng.Calendar().Today(eng.Now())))
	return err
}

// watchDatabase renders once, then again after every change to the SQLite
// file, until ctx is done.
func watchDatabase(ctx context.Context, w io.Writer, render func(io.Writer) error) error {
	if activeBackend != factory.BackendSQLite {
		return fmt.Errorf("--watch requires the sqlite backend (got %s)", activeBackend)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: SQLite replaces and truncates the WAL and journal
	// files next to the database.
	dir := filepath.Dir(dbPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	base := filepath.Base(dbPath)

	redraw := func() {
		if ui.IsTerminal() {
			fmt.Fprint(w, "\033[H\033[2J")
		}
		if err := render(w); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	redraw()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debug.Logf("watch: %s\n", ev)
			debounce = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			WarnError("watcher: %v", err)
		case <-debounce:
			debounce = nil
			redraw()
		}
	}
}

func init() {
	listCmd.Flags().StringP("period", "p", string(types.PeriodDaily), "Period kind to view")
	listCmd.Flags().StringP("date", "d", "", "Any time inside the window to view (default: now)")
	listCmd.Flags().String("as-of", "", "Show the view as it looked at this time (default: now)")
	listCmd.Flags().BoolP("watch", "w", false, "Redraw whenever the database changes")
	rootCmd.AddCommand(listCmd)
}
