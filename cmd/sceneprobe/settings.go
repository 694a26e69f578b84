package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sceneprobe/internal/output"
	"github.com/panbanda/sceneprobe/internal/progress"
	"github.com/panbanda/sceneprobe/internal/service/analysis"
	"github.com/panbanda/sceneprobe/pkg/analyzer"
	"github.com/panbanda/sceneprobe/pkg/config"
)

// settings is the resolved configuration of one command invocation.
type settings struct {
	config   *config.Config
	source   string
	verbose  bool
	noCache  bool
	progress bool
	stderr   io.Writer
	out      *output.Formatter
	messages *output.Formatter
}

// loadSettings merges the config file with the global flags.
func loadSettings(c *cli.Context) (*settings, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitRuntime)
	}
	cfg := result.Config

	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if !output.ValidFormat(cfg.Output.Format) {
		return nil, cli.Exit(fmt.Sprintf("unknown format %q (want text, json, markdown or toon)", cfg.Output.Format), exitUsage)
	}
	if c.IsSet("workers") {
		if c.Int("workers") < 0 {
			return nil, cli.Exit(fmt.Sprintf("--workers must be >= 0 (got %d)", c.Int("workers")), exitUsage)
		}
		cfg.Analysis.Workers = c.Int("workers")
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}

	stdout, stderr := c.App.Writer, c.App.ErrWriter
	format := output.ParseFormat(cfg.Output.Format)

	out := output.NewFormatterTo(stdout, format, cfg.Output.Color && colorEnabled(stdout))
	if path := c.String("output"); path != "" {
		out, err = output.NewFormatter(format, path, false)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("failed to create output file: %v", err), exitRuntime)
		}
	}

	return &settings{
		config:   cfg,
		source:   result.Source,
		verbose:  cfg.Output.Verbose,
		noCache:  c.Bool("no-cache"),
		progress: stderr == io.Writer(os.Stderr) && !color.NoColor,
		stderr:   stderr,
		out:      out,
		messages: output.NewFormatterTo(stderr, output.FormatText, cfg.Output.Color && colorEnabled(stderr)),
	}, nil
}

// close releases the output file opened for --output.
func (s *settings) close() {
	_ = s.out.Close()
}

// colorEnabled reports whether w is a terminal that accepts color.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr) && !color.NoColor
}

// service creates the analysis service for these settings.
func (s *settings) service() *analysis.Service {
	opts := []analysis.Option{analysis.WithConfig(s.config)}
	if s.noCache {
		opts = append(opts, analysis.WithoutCache())
	}
	return analysis.New(opts...)
}

// track attaches a progress bar to ctx when stderr is a terminal. The
// returned function clears the bar.
func (s *settings) track(ctx context.Context, label string) (context.Context, func(error)) {
	if !s.progress {
		return ctx, func(error) {}
	}
	bar := progress.NewTrackerTo(s.stderr, label)
	ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(bar.Update))
	return ctx, func(err error) {
		if err != nil {
			bar.FinishError(err)
			return
		}
		bar.FinishSuccess()
	}
}

// warn prints warnings in full with --verbose and as a count otherwise.
func (s *settings) warn(warnings []analysis.Warning) {
	if len(warnings) == 0 {
		return
	}
	if !s.verbose {
		s.messages.Warning("%d warning(s) (use --verbose for details)", len(warnings))
		return
	}
	for _, w := range warnings {
		s.messages.Warning("%s", w.String())
	}
}

// fail maps an analysis error to its exit code.
func fail(err error) error {
	var notFound *analysis.ProjectNotFoundError
	if errors.As(err, &notFound) {
		return cli.Exit(err.Error(), exitNotFound)
	}
	return cli.Exit(err.Error(), exitRuntime)
}

// projectArg returns the single project argument of a subcommand.
func projectArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("usage: sceneprobe %s <project>", c.Command.Name), exitUsage)
	}
	return c.Args().First(), nil
}
