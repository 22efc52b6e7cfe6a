package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/docsearch/documenter-mcp/internal/config"
	"github.com/docsearch/documenter-mcp/internal/searchindex"
	"github.com/docsearch/documenter-mcp/internal/state"
)

const (
	version     = "0.1.0"
	serverName  = "documenter-mcp-server"
	description = "MCP server for searching Documenter.jl documentation sites"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		env.Cfg.Logging.Level = "debug"
	}
	if dir := cmd.String("data-dir"); len(dir) > 0 {
		env.Cfg.DataDir = dir
	}
	if env.Log, err = env.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// log is synced now, errors must be reported directly to stderr from now on
	env.RestoreStdLog()
	return nil
}

// Subcommands return regular errors, exit code is set at the end of main.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)

	// with logging disabled or not yet configured the error goes to stderr
	if env.Cfg != nil && env.Cfg.Logging.Level != "none" {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// error is reported either by exitErrHandler or on exit directly to stderr
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	// stdio transport ends with stdin, interrupt ends the server as well
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            config.AppName,
		Usage:           description,
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Action:          serve,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level regardless of configuration"},
			&cli.StringFlag{Name: "data-dir", Usage: "keep cached sources and search index in `DIR`, overrides configuration"},
		},
		Commands: []*cli.Command{
			{
				Name:         "serve",
				Usage:        "Runs MCP server on stdio (default when no command is given)",
				OnUsageError: usageErrorHandler,
				Action:       serve,
			},
			{
				Name:         "validate",
				Usage:        "Validates Documenter search index(es), exits with error if any is invalid",
				OnUsageError: usageErrorHandler,
				Action:       validateIndexes,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print validation reports as JSON to STDOUT"},
				},
				ArgsUsage: "SOURCE [SOURCE...]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    where to read search index from, one of:
        path to a file: "[path_to_file]search_index.js" (JSON or Documenter JS, may be gzipped)
        URL of a file: "https://example.org/dev/search_index.js"
        URL of a site root: "https://example.org/dev/" - search_index.js is appended
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "format",
				Usage:        "Rewrites search index in canonical form",
				OnUsageError: usageErrorHandler,
				Action:       formatIndex,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Value: searchindex.FormatJS.String(),
						Usage: "output `TYPE` (supported types: " + strings.Join([]string{searchindex.FormatJS.String(), searchindex.FormatJSON.String()}, ", ") + ")"},
				},
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path or URL of search index, see "validate" for details

DESTINATION:
    file name to write index to, if absent - STDOUT
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}
