package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"fixturelint/internal/report"
	"fixturelint/internal/watch"
	"fixturelint/internal/world"

	"github.com/spf13/cobra"
)

func (a *app) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-check whenever a Python file changes",
		Long: `Runs a check, then watches the given directories (recursively) and
re-checks after .py files are created, written, renamed or removed.
Changes are debounced by watch.debounce (default 300ms).

Stop with Ctrl+C.`,
		RunE: a.runWatch,
	}
	a.addCheckFlags(cmd)
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(a.format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, _ := a.targets(args)
	reporter := report.New(a.out, report.Options{Format: format, Color: a.colorEnabled()})

	recheck := func(ctx context.Context) {
		results, summary, err := a.check(ctx, paths, true)
		if err != nil {
			fmt.Fprintln(a.errOut, "Error:", err)
			return
		}
		if err := reporter.Render(results, summary); err != nil {
			fmt.Fprintln(a.errOut, "Error:", err)
		}
	}
	recheck(ctx)

	scan := world.NewScannerConfig(a.cfg.World)
	w, err := watch.New(paths,
		func(ctx context.Context, changed []string) {
			fmt.Fprintf(a.out, "\n%d changed, re-checking...\n", len(changed))
			recheck(ctx)
		},
		watch.WithDebounce(a.cfg.GetWatchDebounce()),
		watch.WithIgnore(func(path string, d fs.DirEntry) bool {
			for _, root := range paths {
				if scan.Ignored(root, path) {
					return true
				}
			}
			return false
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Fprintf(a.errOut, "Watching %d %s for changes (Ctrl+C to stop)\n", len(paths), pluralPaths(len(paths)))
	<-ctx.Done()
	return nil
}

func pluralPaths(n int) string {
	if n == 1 {
		return "path"
	}
	return "paths"
}
