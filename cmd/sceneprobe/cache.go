package main

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sceneprobe/internal/output"
	"github.com/panbanda/sceneprobe/internal/service/analysis"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the identifier index cache",
		Subcommands: []*cli.Command{
			{
				Name:         "stats",
				Usage:        "Show cache statistics",
				OnUsageError: usageError,
				Action:       runCacheStats,
			},
			{
				Name:         "clear",
				Usage:        "Remove every cached index, or only the index of <project>",
				ArgsUsage:    "[project]",
				OnUsageError: usageError,
				Action:       runCacheClear,
			},
		},
	}
}

func runCacheStats(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	defer s.close()

	cache, err := s.service().Cache()
	if err != nil {
		return cli.Exit("failed to open cache: "+err.Error(), exitRuntime)
	}
	stats, err := cache.GetStats()
	if err != nil {
		return cli.Exit("failed to read cache: "+err.Error(), exitRuntime)
	}

	rows := [][]string{
		{"Directory", cache.Dir()},
		{"Entries", strconv.Itoa(stats.Entries)},
		{"Size (bytes)", strconv.FormatInt(stats.TotalSize, 10)},
	}
	if stats.Entries > 0 {
		rows = append(rows,
			[]string{"Oldest", stats.OldestAge.Round(time.Second).String()},
			[]string{"Newest", stats.NewestAge.Round(time.Second).String()},
		)
	}
	if !cache.Enabled() {
		rows[0][1] = "(disabled)"
	}
	return s.out.Output(output.NewTable("Cache", []string{"Metric", "Value"}, rows, nil, stats))
}

func runCacheClear(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("usage: sceneprobe cache clear [project]", exitUsage)
	}
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	defer s.close()

	cache, err := s.service().Cache()
	if err != nil {
		return cli.Exit("failed to open cache: "+err.Error(), exitRuntime)
	}

	if c.NArg() == 0 {
		if err := cache.Clear(); err != nil {
			return cli.Exit("failed to clear cache: "+err.Error(), exitRuntime)
		}
		s.messages.Success("Cleared %s", cache.Dir())
		return nil
	}

	root, err := analysis.CheckProject(c.Args().First())
	if err != nil {
		return fail(err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if err := cache.Invalidate(root); err != nil {
		return cli.Exit("failed to clear cache entry: "+err.Error(), exitRuntime)
	}
	s.messages.Success("Cleared cached index of %s", root)
	return nil
}
