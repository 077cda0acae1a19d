// Command fixturelint checks that pytest fixtures and the tests consuming
// them agree on type annotations.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fixturelint/internal/config"
	"fixturelint/internal/logging"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Set by the release build.
var version = "dev"

// Exit statuses.
const (
	exitClean    = 0
	exitProblems = 1
	exitError    = 2
)

// annotationCreatesConfig marks commands that may run before --config exists.
const annotationCreatesConfig = "fixturelint/creates-config"

// errProblemsFound makes a command exit 1 without printing an error.
var errProblemsFound = errors.New("problems found")

// app carries flag values and the loaded config for one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	// Global flags
	configPath string
	verbose    bool
	noColor    bool

	// Check flags
	recursive   bool
	format      string
	noCache     bool
	selectCodes []string
	ignoreCodes []string

	cfg *config.Config
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "fixturelint [paths...]",
		Short: "Static type checks for pytest fixtures",
		Long: `fixturelint reads pytest files and reports fixtures without a return
annotation, consuming parameters without an annotation, annotations that
differ from the fixture's declared return type, and annotated parameters
that name no known fixture.

Fixtures are resolved from the same class, the same module and the
conftest.py files between the test file and the project root.

Running without a subcommand is the same as "fixturelint check".`,
		// Paths, not subcommand names, are the root command's arguments.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: a.runCheck,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	a.addCheckFlags(rootCmd)

	rootCmd.AddCommand(a.newCheckCmd())
	rootCmd.AddCommand(a.newWatchCmd())
	rootCmd.AddCommand(a.newCacheCmd())
	rootCmd.AddCommand(a.newConfigCmd())
	rootCmd.AddCommand(a.newVersionCmd())
	return rootCmd
}

// setup loads the config, applies flag overrides and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") && cmd.Annotations[annotationCreatesConfig] == "" {
		if _, err := os.Stat(a.configPath); err != nil {
			return fmt.Errorf("config file %s: %w", a.configPath, err)
		}
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if len(a.selectCodes) > 0 {
		cfg.Analysis.Select = normalizeCodes(a.selectCodes)
	}
	if len(a.ignoreCodes) > 0 {
		cfg.Analysis.Ignore = append(cfg.Analysis.Ignore, normalizeCodes(a.ignoreCodes)...)
	}
	if a.noCache {
		cfg.Cache.Enabled = false
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Boot("fixturelint %s starting (config %s)", version, a.configPath)

	a.cfg = cfg
	return nil
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// colorEnabled reports whether styled output should be written to a.out.
func (a *app) colorEnabled() bool {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := a.out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fixturelint version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.out, "fixturelint %s\n", version)
			return err
		},
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error, errOut io.Writer) int {
	switch {
	case err == nil:
		return exitClean
	case errors.Is(err, errProblemsFound):
		return exitProblems
	default:
		fmt.Fprintln(errOut, "Error:", err)
		return exitError
	}
}

func run(args []string, out, errOut io.Writer) int {
	rootCmd := newRootCmd(out, errOut)
	rootCmd.SetArgs(args)
	return exitCode(rootCmd.Execute(), errOut)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
