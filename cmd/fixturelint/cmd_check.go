package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fixturelint/internal/analysis"
	"fixturelint/internal/logging"
	"fixturelint/internal/report"
	"fixturelint/internal/store"
	"fixturelint/internal/world"

	"github.com/spf13/cobra"
)

func (a *app) addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&a.recursive, "recursive", "r", false, "Descend into directories")
	cmd.Flags().StringVarP(&a.format, "format", "f", string(report.FormatText),
		"Output format: "+formatNames())
	cmd.Flags().BoolVar(&a.noCache, "no-cache", false, "Do not read or write the result cache")
	cmd.Flags().StringSliceVar(&a.selectCodes, "select", nil, "Only report these codes (e.g. FX002,FX004)")
	cmd.Flags().StringSliceVar(&a.ignoreCodes, "ignore", nil, "Never report these codes")
}

func formatNames() string {
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func (a *app) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check pytest files for fixture annotation problems",
		Long: `Checks the given files. Directories are only expanded with --recursive;
they yield test_*.py, *_test.py and conftest.py files (configurable).
Without paths the current directory is checked recursively.

Exit status is 0 when no problems are found, 1 when problems are found
and 2 on errors.`,
		RunE: a.runCheck,
	}
	a.addCheckFlags(cmd)
	return cmd
}

// targets returns the paths to scan and whether to recurse.
func (a *app) targets(args []string) ([]string, bool) {
	if len(args) == 0 {
		return []string{"."}, true
	}
	return args, a.recursive
}

func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(a.format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, recursive := a.targets(args)
	results, summary, err := a.check(ctx, paths, recursive)
	if err != nil {
		return err
	}

	reporter := report.New(a.out, report.Options{Format: format, Color: a.colorEnabled()})
	if err := reporter.Render(results, summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !summary.Clean() {
		return errProblemsFound
	}
	return nil
}

// check lists, checks and summarizes the files under paths.
func (a *app) check(ctx context.Context, paths []string, recursive bool) ([]analysis.FileResult, analysis.Summary, error) {
	start := time.Now()

	if !recursive {
		for _, p := range paths {
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				fmt.Fprintf(a.errOut, "skipping directory %s (use --recursive)\n", p)
			}
		}
	}

	files, err := world.ListFiles(paths, recursive, world.NewScannerConfig(a.cfg.World))
	if err != nil {
		return nil, analysis.Summary{}, err
	}

	var opts []analysis.Option
	if a.cfg.Cache.Enabled {
		cache, err := store.Open(a.cfg.Cache.Path)
		if err != nil {
			// A broken cache only costs speed.
			logging.Get(logging.CategoryStore).Warn("result cache disabled: %v", err)
		} else {
			defer cache.Close()
			opts = append(opts, analysis.WithCache(cache))
		}
	}

	results, err := analysis.NewRunner(a.cfg, opts...).Run(ctx, files)
	if err != nil {
		return nil, analysis.Summary{}, err
	}
	return results, analysis.Summarize(results, time.Since(start)), nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
