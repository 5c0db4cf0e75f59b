package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/config"
	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/engine"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/factory"
	"github.com/steveyegge/tempo/internal/telemetry"
	"github.com/steveyegge/tempo/internal/ui"
	"github.com/steveyegge/tempo/internal/utils"
)

var (
	dbPath      string
	backendName string
	jsonOutput  bool
	verboseFlag bool // Enable verbose/debug output
	quietFlag   bool // Suppress non-essential output

	store         storage.Storage
	eng           *engine.Engine
	activeBackend string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	// nowFunc is the clock handed to the engine. Tests pin it.
	nowFunc = time.Now

	// commandDidWrite is set by write commands so PersistentPostRun knows
	// whether a Dolt auto-commit is due.
	commandDidWrite bool
)

// noDbCommands never open a store.
var noDbCommands = map[string]bool{
	"version":    true,
	"config":     true,
	"help":       true,
	"completion": true,
}

func isNoDbCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if noDbCommands[c.Name()] {
			return true
		}
	}
	return false
}

func init() {
	if err := config.Initialize(); err != nil {
		WarnError("failed to initialize config: %v", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: .tempo/tempo.db in the nearest project)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: "+strings.Join(factory.Backends(), ", ")+" (default: config backend)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.AddGroup(&cobra.Group{ID: "items", Title: "Working With Items:"})
	rootCmd.AddGroup(&cobra.Group{ID: "views", Title: "Views:"})
	rootCmd.AddGroup(&cobra.Group{ID: "data", Title: "Data & Maintenance:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "tempo - period status tracking with a focus queue",
	Long: `Track work items per day, week, month and year. Completing an item cascades
into the coarser periods that monitor it, and the three most urgent items of
priority 1-3 form the focus queue.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		cmd.SetContext(rootCtx)
		commandDidWrite = false
		applyVerbosityFlags(cmd)
		ui.ApplyColorProfile()

		if isNoDbCommand(cmd) {
			return nil
		}
		if err := telemetry.Init(rootCtx, "tempo", Version); err != nil {
			WarnError("telemetry disabled: %v", err)
		}
		return openStore(rootCtx)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer func() {
			if rootCancel != nil {
				rootCancel()
			}
		}()
		if store == nil {
			return nil
		}
		var commitErr error
		if commandDidWrite {
			commitErr = maybeAutoCommit(rootCtx, cmd)
		}
		closeStore()
		telemetry.Shutdown(context.Background())
		if commitErr != nil {
			return fmt.Errorf("dolt auto-commit failed: %w", commitErr)
		}
		return nil
	},
}

func applyVerbosityFlags(cmd *cobra.Command) {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
	debug.SetOutput(cmd.ErrOrStderr(), cmd.OutOrStdout())
	if !cmd.Flags().Changed("json") && config.GetBool("json") {
		jsonOutput = true
	}
}

// openStore opens the configured backend and builds the engine around it.
// Flags win over config.
func openStore(ctx context.Context) error {
	backend := backendName
	if backend == "" {
		backend = config.GetBackend()
	}
	opts := factory.Options{
		Path:        dbPath,
		BusyTimeout: config.GetDuration("lock-timeout"),
		Dolt:        config.GetDoltConfig(),
	}
	if opts.Path == "" {
		opts.Path = config.GetDBPath()
	}
	if backend == "" {
		backend = factory.BackendSQLite
	}
	if backend == factory.BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o750); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
		opts.Path = utils.CanonicalizePath(opts.Path)
	}
	debug.Logf("opening %s store (db=%s)\n", backend, opts.Path)

	s, err := factory.New(ctx, backend, opts)
	if err != nil {
		return err
	}
	store = s
	activeBackend = backend
	dbPath = opts.Path
	debug.SetEventLog(config.GetString("event-log"))
	eng = engine.New(store,
		engine.WithNowFunc(nowFunc),
		engine.WithCalendar(config.GetCalendar()),
		engine.WithPromotionRetries(config.GetPromotionRetries()),
		engine.WithRetryMaxElapsed(config.GetDuration("focus.retry-max-elapsed")),
	)
	return nil
}

func closeStore() {
	if store != nil {
		_ = store.Close()
	}
	store = nil
	eng = nil
}

// markWrite records that the running command changed the database.
func markWrite() {
	commandDidWrite = true
}

// maybeAutoCommit commits the working set after a write command when the
// store is versioned and dolt.auto-commit is on.
func maybeAutoCommit(ctx context.Context, cmd *cobra.Command) error {
	if !config.GetBool("dolt.auto-commit") {
		return nil
	}
	vs, ok := storage.AsVersioned(store)
	if !ok {
		return nil
	}
	msg := "tempo: " + cmd.Name()
	if actor := config.GetString("actor"); actor != "" {
		msg += " (" + actor + ")"
	}
	if err := vs.Commit(ctx, msg); err != nil {
		return err
	}
	if hash, err := vs.CurrentCommit(ctx); err == nil {
		debug.Logf("dolt commit %s: %s\n", hash, msg)
	}
	return nil
}

// execute runs the root command. A failing RunE skips PersistentPostRunE,
// so the store is closed here as well.
func execute() error {
	err := rootCmd.Execute()
	closeStore()
	if rootCancel != nil {
		rootCancel()
	}
	return err
}

func main() {
	if err := execute(); err != nil {
		FatalError("%v", err)
	}
}
