package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sceneprobe/internal/service/analysis"
	"github.com/panbanda/sceneprobe/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:         "watch",
		Usage:        "Write the reports, then rewrite them whenever scenes or scripts change",
		ArgsUsage:    "<project> <output>",
		OnUsageError: usageError,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before changes are processed",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: sceneprobe watch [--debounce d] <project> <output>", exitUsage)
	}
	project, outDir := c.Args().Get(0), c.Args().Get(1)

	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	defer s.close()

	root, err := analysis.CheckProject(project)
	if err != nil {
		return fail(err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	written, _, err := writeReports(c.Context, s, root, outDir)
	if err != nil {
		return err
	}
	s.messages.Success("Wrote %d scene dump(s) and %s", len(written.Dumps), filepath.Base(written.Unused))

	watcher, err := watch.NewWatcher(root, s.config, c.Duration("debounce"))
	if err != nil {
		return cli.Exit("failed to create watcher: "+err.Error(), exitRuntime)
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher.SetErrorHandler(func(err error) {
		s.messages.Error("watch error: %v", err)
	})
	watcher.SetCallback(rewriter(ctx, s, root, outDir))

	s.messages.Info("Watching %s (Ctrl+C to stop)", root)
	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit("watch failed: "+err.Error(), exitRuntime)
	}
	return nil
}

// rewriter returns the watch callback that reruns the analysis. A run
// interrupted by ctx writes nothing and reports nothing.
func rewriter(ctx context.Context, s *settings, root, outDir string) func(changed []string) {
	return func(changed []string) {
		for _, path := range changed {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			s.messages.Info("Changed: %s", rel)
		}
		written, _, err := writeReports(ctx, s, root, outDir)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.messages.Error("%v", err)
			return
		}
		s.messages.Success("Rewrote %d scene dump(s) and %s", len(written.Dumps), filepath.Base(written.Unused))
	}
}
