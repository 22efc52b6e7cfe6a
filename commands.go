package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/docsearch/documenter-mcp/internal/config"
	"github.com/docsearch/documenter-mcp/internal/searchindex"
	"github.com/docsearch/documenter-mcp/internal/source"
	"github.com/docsearch/documenter-mcp/internal/state"
	"github.com/docsearch/documenter-mcp/tools"
)

// serve runs the MCP server on stdio until the client disconnects or the
// program is interrupted
func serve(ctx context.Context, _ *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.DataDir, err = env.Cfg.ResolveDataDir(env.Log); err != nil {
		return fmt.Errorf("unable to prepare data directory: %w", err)
	}
	env.Log.Info("Starting server", zap.String("name", serverName), zap.String("ver", version),
		zap.String("data_dir", env.DataDir), zap.Int("sources", len(env.Cfg.Sources)))

	ds := tools.NewDocSearch(env.Cfg, env.DataDir, env.Log)
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close documentation search: %w", cerr))
		}
	}()

	// searches retry initialization on first use
	if ierr := ds.Initialize(ctx); ierr != nil {
		env.Log.Warn("Documentation search unavailable for now", zap.Error(ierr))
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	ds.Register(server)

	env.Log.Info("Server ready and waiting for connections", zap.String("transport", "stdio"))
	if rerr := server.Run(ctx, &mcp.StdioTransport{}); rerr != nil && !errors.Is(rerr, context.Canceled) {
		return fmt.Errorf("server error: %w", rerr)
	}
	env.Log.Info("Server stopped", zap.Duration("uptime", env.Uptime()))
	return nil
}

// validateIndexes checks every SOURCE and fails if any of them is invalid
func validateIndexes(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return errors.New("no search index to validate")
	}

	var reports []tools.ValidationReport
	invalid := 0
	for _, ref := range cmd.Args().Slice() {
		report, err := tools.ValidateSource(ctx, ref)
		if err != nil {
			return err
		}
		reports = append(reports, report)

		log := env.Log.With(zap.String("source", ref))
		for _, p := range report.Problems {
			if p.Severity == searchindex.SeverityError {
				log.Error("Shape problem", zap.String("path", p.Path), zap.String("message", p.Message))
			} else {
				log.Warn("Shape problem", zap.String("path", p.Path), zap.String("message", p.Message))
			}
		}
		for _, e := range report.Errors {
			log.Error("Check failed", zap.String("message", e))
		}
		if !report.Valid {
			invalid++
			continue
		}
		log.Info("Search index is valid", zap.Int("fragments", report.Stats.Fragments), zap.Int("pages", report.Stats.Pages),
			zap.Int("sections", report.Stats.SectionFragments))
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("unable to write validation reports: %w", err)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d search indexes are invalid", invalid, len(reports))
	}
	return nil
}

// formatIndex reads SOURCE and writes it back in canonical form
func formatIndex(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return errors.New("no search index to format")
	}
	if cmd.Args().Len() > 2 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	format, err := searchindex.ParseFormat(cmd.String("to"))
	if err != nil {
		return err
	}

	ref := cmd.Args().Get(0)
	data, err := source.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("unable to read search index: %w", err)
	}
	idx, err := searchindex.Parse(data)
	if err != nil {
		return fmt.Errorf("unable to parse search index '%s': %w", ref, err)
	}

	out := os.Stdout
	fname := cmd.Args().Get(1)
	if len(fname) > 0 {
		if out, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer func() {
			if cerr := out.Close(); cerr != nil {
				err = multierr.Append(err, cerr)
			}
		}()
	} else {
		fname = "STDOUT"
	}

	env.Log.Info("Formatting search index", zap.String("source", ref), zap.Stringer("to", format),
		zap.Int("fragments", len(idx.Docs)), zap.String("file", fname))
	if err := searchindex.Encode(out, idx, format); err != nil {
		return fmt.Errorf("unable to write search index: %w", err)
	}
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
