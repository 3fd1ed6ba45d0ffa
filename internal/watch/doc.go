// Package watch re-runs the roster to class push when the roster workbook
// changes outside the tool.
//
// # Architecture
//
//   - Poller: stats the roster and classifies each tick (baseline,
//     unchanged, changed, failed)
//   - Watcher: a single loop driven by a ticker and an optional hint channel
//     that calls the handler on change
//   - Notifier: fsnotify events on the week folder turned into hints so the
//     loop polls early
//
// Detection is always by modification time. Hints only shorten the wait.
//
//	w := watch.New(watch.StatFile(wk.RosterPath()), func(ctx context.Context) error {
//	    _, err := syncer.Reconcile(ctx, sync.NewSession(wk, nil, nil), sync.ReconcileOptions{})
//	    return err
//	}, nil)
//	err := w.Run(ctx)
//
// All store access happens on the goroutine running Run.
package watch
