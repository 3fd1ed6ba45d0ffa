package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecoles/roster/internal/conflict"
	"github.com/ecoles/roster/internal/dashboard"
	rostersync "github.com/ecoles/roster/internal/sync"
	"github.com/ecoles/roster/internal/ui"
	"github.com/ecoles/roster/internal/watch"
	"github.com/ecoles/roster/internal/week"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push every roster placement to the class lists",
	Long: `Read the roster and add every placed student to the list of its class,
on both the standard and the intensive track. The roster is not written.

With --prune, list entries whose roster row points at another class are
removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prune, _ := cmd.Flags().GetBool("prune")
		if prune {
			if err := confirm(cmd, "Prune class lists?", "Students placed elsewhere in the roster are removed from lists."); err != nil {
				return err
			}
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		report, err := app.syncer.Reconcile(cmd.Context(), sess, rostersync.ReconcileOptions{Prune: prune})
		if report != nil {
			printReconcile(report)
		}
		return err
	},
}

func printReconcile(r *rostersync.ReconcileReport) {
	fmt.Printf("%s %s\n", ui.RenderPass("✓"), reconcileSummary(r))
	if len(r.Failed) > 0 {
		fmt.Printf("%s Not saved: %s\n", ui.RenderWarn("⚠"), strings.Join(r.Failed, ", "))
	}
}

// reconcileSummary splits the placements of r into added, already listed
// and skipped. Added includes the placements whose class was created.
func reconcileSummary(r *rostersync.ReconcileReport) string {
	listed := r.Rows - r.Added - r.Skipped
	out := fmt.Sprintf("%d placement(s): %d added, %d already listed", r.Rows, r.Added, listed)
	if r.Skipped > 0 {
		out += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	if r.Created > 0 {
		out += fmt.Sprintf(", %d class(es) created", r.Created)
	}
	if r.Pruned > 0 {
		out += fmt.Sprintf(", %d pruned", r.Pruned)
	}
	return out
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Reconcile whenever the roster workbook changes",
	Long: `Poll the roster workbook and run a reconciliation each time it is saved.
File system notifications make the poll run early.

A locked workbook is retried on the next poll. With --dashboard-port,
progress is broadcast to WebSocket clients on 127.0.0.1.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		return runWatch(cmd.Context(), sess)
	},
}

func runWatch(ctx context.Context, sess *rostersync.Session) error {
	w := sess.Week
	logger := app.sink.Logger("watch")

	notifier, err := watch.NewNotifier()
	if err != nil {
		return err
	}
	if err := notifier.Start(w.Dir, week.RosterFile); err != nil {
		logger.Printf("WARNING: file notifications unavailable, polling only: %v", err)
	}
	defer notifier.Stop()
	go func() {
		for err := range notifier.Errors() {
			logger.Printf("WARNING: notifier: %v", err)
		}
	}()

	var dash *dashboard.Handler
	if port := app.cfg.DashboardPort; port > 0 {
		server := dashboard.NewServer(&dashboard.Config{Port: port, Week: w.Name(), Logger: app.sink.Logger("dashboard")})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()
		dash = dashboard.NewHandler(server, app.sink.Logger("dashboard"))
		fmt.Printf("%s Dashboard on ws://%s/ws\n", ui.RenderAccent("→"), server.GetAddr())
	}

	publish := func(ctx context.Context) {
		if dash == nil {
			return
		}
		if stats, err := app.syncer.Stats(ctx, sess); err == nil {
			dash.UpdateStats(stats)
		}
		if reg, err := sess.Registry(); err == nil {
			dash.OnConflicts(conflict.Detect(reg))
		}
	}

	handler := func(ctx context.Context) error {
		start := time.Now()
		if dash != nil {
			dash.OnStoreChanged(w.RosterPath())
		}
		report, err := app.syncer.Reconcile(ctx, sess, rostersync.ReconcileOptions{})
		if dash != nil {
			dash.OnSyncComplete(report, time.Since(start), err)
		}
		if err != nil {
			return err
		}
		printReconcile(report)
		publish(ctx)
		return nil
	}

	watcher := watch.New(watch.StatFile(w.RosterPath()), handler, &watch.Config{
		Interval:         app.cfg.WatchInterval,
		FailureThreshold: app.cfg.FailureThreshold,
		Hints:            notifier.Hints(),
		Logger:           logger,
		OnFailure: func(err error) {
			fmt.Fprintf(os.Stderr, "%s Reconciliation keeps failing: %v\n", ui.RenderWarn("⚠"), err)
		},
	})

	publish(ctx)
	fmt.Printf("%s Watching %s (Ctrl+C to stop)\n", ui.RenderAccent("→"), w.RosterPath())
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("%s Stopped after %d reconciliation(s)\n", ui.RenderMuted("-"), watcher.Cycles())
	return nil
}

func init() {
	syncCmd.Flags().Bool("prune", false, "Remove list entries placed elsewhere in the roster")

	watchCmd.Flags().Int("dashboard-port", 0, "Serve the live dashboard on this port (0 disables it)")
	watchCmd.Flags().Duration("watch-interval", time.Second, "Poll interval")
	watchCmd.Flags().Int("watch-failure-threshold", 5, "Consecutive failures before warning")

	rootCmd.AddCommand(syncCmd, watchCmd)
}
