package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/app"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/hcl"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/herd"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/yamlconfig"
	"github.com/spf13/cobra"
)

// Commands understood by the CLI.
const (
	CommandRun  = "run"
	CommandRead = "read"
)

// Exit codes beyond the generic failure code 1.
const (
	ExitUsage     = 2
	ExitSimFailed = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is a parsed command line.
type Invocation struct {
	Command string
	Config  *app.Config
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logFormat  string
	logLevel   string
}

func (o *globalOptions) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Path to the herd config file (.hcl, .yaml) or a directory of .hcl files.")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
}

// appConfig validates the shared flags and the optional positional config
// path, then builds the application config.
func (o *globalOptions) appConfig(args []string, cfg app.Config) (*app.Config, error) {
	path := o.configPath
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, &ExitError{Code: ExitUsage, Message: "a config path is required: pass CONFIG_PATH or --config"}
	}

	logFormat := strings.ToLower(o.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(o.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg.ConfigPath = path
	cfg.LogFormat = logFormat
	cfg.LogLevel = logLevel
	out, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return out, nil
}

// newRootCmd builds the command tree. A successful subcommand stores its
// invocation in inv.
func newRootCmd(inv **Invocation) *cobra.Command {
	o := &globalOptions{}

	root := &cobra.Command{
		Use:   "herder",
		Short: "Run parameter sweeps of MOOSE/Gmsh simulation chains and read back their outputs.",
		Long: `herder - a parallel parameter sweep runner for finite element simulations.

A herd config declares a chain of simulation stages and the variable grids
swept over them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	o.addFlags(root)

	runCmd := &cobra.Command{
		Use:   "run [CONFIG_PATH]",
		Short: "Run every combination of the configured sweep grids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.appConfig(args, app.Config{})
			if err != nil {
				return err
			}
			*inv = &Invocation{Command: CommandRun, Config: cfg}
			return nil
		},
	}

	var sweepIter int
	var sequential bool
	readCmd := &cobra.Command{
		Use:   "read [CONFIG_PATH]",
		Short: "Read back the outputs listed in the sweep manifests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.appConfig(args, app.Config{SweepIter: sweepIter, Sequential: sequential})
			if err != nil {
				return err
			}
			*inv = &Invocation{Command: CommandRead, Config: cfg}
			return nil
		},
	}
	readCmd.Flags().IntVar(&sweepIter, "sweep-iter", 0, "Sweep iteration to read. 0 reads every persisted sweep.")
	readCmd.Flags().BoolVar(&sequential, "sequential", false, "Read outputs one at a time instead of in parallel.")

	root.AddCommand(runCmd, readCmd)
	return root
}

// Parse processes command-line arguments. It returns the parsed invocation,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")

	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	var inv *Invocation
	root := newRootCmd(&inv)
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	if inv == nil {
		// Help or usage was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "command", inv.Command, "config", inv.Config.ConfigPath)
	return inv, false, nil
}

// LoaderFor selects the configuration loader by file extension. Directories
// are read as HCL.
func LoaderFor(path string) (config.Loader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("cannot access config path: %v", err)}
	}
	if info.IsDir() {
		return hcl.NewLoader(), nil
	}
	switch ext := filepath.Ext(path); ext {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".yaml", ".yml":
		return yamlconfig.NewLoader(), nil
	default:
		return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unsupported config file extension %q", ext)}
	}
}

// ExitCode maps an error returned by the application to a process exit
// code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Checked before ConfigError: a sweep error unwraps to its failures.
	if _, ok := herd.IsSweepError(err); ok {
		return ExitSimFailed
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitUsage
	}
	return 1
}
