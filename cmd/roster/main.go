package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecoles/roster/internal/catalog"
	"github.com/ecoles/roster/internal/config"
	"github.com/ecoles/roster/internal/journal"
	"github.com/ecoles/roster/internal/logging"
	"github.com/ecoles/roster/internal/match"
	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	rostersync "github.com/ecoles/roster/internal/sync"
	"github.com/ecoles/roster/internal/ui"
	"github.com/ecoles/roster/internal/week"
)

// Exit codes.
const (
	exitGeneric  = 1
	exitSchema   = 2
	exitNotFound = 3
	exitLocked   = 4
	exitPartial  = 5
)

var (
	settings = config.New()
	app      = &appState{}
)

// appState is set up before every command runs.
type appState struct {
	cfg     *config.Config
	sink    *logging.Sink
	logger  *log.Logger
	catalog *catalog.Catalog
	journal *journal.DB
	syncer  rostersync.Syncer
}

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Keep the weekly roster, class workbooks and personnel registry in sync",
	Long: `roster edits the weekly course planning of the schools.

A week folder (semaine_<n>) holds the roster workbook (matrix.xlsx), one
workbook per school with a sheet per slot, and the personnel registry
(personnel.json). Every command applies its change to one store and
propagates it to the others.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "students", Title: "Students:"},
		&cobra.Group{ID: "classes", Title: "Classes:"},
		&cobra.Group{ID: "staff", Title: "Staff:"},
		&cobra.Group{ID: "sync", Title: "Sync and reporting:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.String("root", ".", "Folder containing the semaine_<n> folders")
	pf.IntP("week", "w", 0, "Week number (0 for the latest)")
	pf.BoolP("verbose", "v", false, "Print engine logs to stderr")
	pf.BoolP("yes", "y", false, "Do not ask for confirmation")
	pf.String("log-file", "", "Also write logs to this rotating file")
	pf.String("journal-path", "", "Operation journal database (default <root>/.roster/journal.db)")
	pf.String("match-policy", "first", "Name matching ties: first or strict")
}

// builtin reports cobra's help and completion commands, which need no week.
func builtin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func setup(cmd *cobra.Command, args []string) error {
	if builtin(cmd) {
		return nil
	}
	if err := config.BindFlags(settings, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}
	app.cfg = cfg

	ui.Init(os.Stdout)

	sink, err := logging.Open(logging.Config{Verbose: cfg.Verbose, File: cfg.LogFile, MaxSizeMB: cfg.LogMaxSizeMB})
	if err != nil {
		return err
	}
	app.sink = sink
	app.logger = sink.Logger("roster")
	if cfg.File != "" {
		app.logger.Printf("Using config %s", cfg.File)
	}

	cat, err := catalog.Load(cfg.Root)
	if err != nil {
		return err
	}
	app.catalog = cat

	engineCfg := &rostersync.Config{
		Matcher: match.NewChain(cfg.MatchPolicy, match.Exact{}, match.Normalized{}, match.Substring{}),
		Logger:  sink.Logger("sync"),
	}
	if db, err := journal.Open(cfg.JournalPath); err != nil {
		app.logger.Printf("WARNING: journal disabled: %v", err)
	} else {
		app.journal = db
		engineCfg.Recorder = db
	}
	app.syncer = rostersync.New(engineCfg)
	return nil
}

func (a *appState) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close journal: %v\n", err)
		}
	}
	if a.sink != nil {
		_ = a.sink.Close()
	}
}

// session opens the configured week.
func (a *appState) session() (*rostersync.Session, error) {
	w, err := week.Open(a.cfg.Root, a.cfg.Week)
	if err != nil {
		return nil, err
	}
	a.logger.Printf("Using %s", w.Dir)
	return rostersync.NewSession(w, a.catalog, store.NewExcel(a.sink.Logger("store"))), nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case rostersync.IsPartial(err):
		return exitPartial
	case errors.Is(err, schema.ErrSchema):
		return exitSchema
	case store.IsRetryable(err):
		return exitLocked
	case store.IsNotFound(err),
		errors.Is(err, week.ErrWeekNotFound),
		errors.Is(err, match.ErrNoMatch),
		errors.Is(err, store.ErrClassNotFound),
		errors.Is(err, store.ErrSheetNotFound),
		errors.Is(err, catalog.ErrUnknownSchool):
		return exitNotFound
	default:
		return exitGeneric
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	app.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		if store.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "A workbook seems open in another program. Close it and retry.")
		}
		os.Exit(exitCode(err))
	}
}
