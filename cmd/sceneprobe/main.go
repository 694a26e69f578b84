package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sceneprobe/internal/output"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// Process exit codes.
const (
	exitOK       = 0
	exitRuntime  = 1
	exitUsage    = 2
	exitNotFound = 3
)

const rootUsage = "sceneprobe [global options] <project> <output>"

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(args)
	if err == nil {
		return exitOK
	}

	code := exitRuntime
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		code = coder.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		output.NewFormatterTo(stderr, output.FormatText, colorEnabled(stderr)).Error("%s", msg)
	}
	return code
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "sceneprobe",
		Usage:     "Unity scene hierarchy and unused script analysis",
		UsageText: rootUsage + "\n" + "sceneprobe [global options] command [command options] <project>",
		Version:   version,
		Metadata:  make(map[string]interface{}),
		Description: `Reads a Unity project without modifying it. For every scene it writes
<scene>.unity.dump with the indented object hierarchy, and it writes
UnusedScripts.txt listing the C# scripts no scene references.`,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"SCENEPROBE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Console output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write console output to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Rebuild the identifier index instead of reading the cache",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print every skipped file and diagnostic",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Maximum concurrent file reads (0 = 2x CPU count)",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before:         startProfile,
		After:          stopProfile,
		Action:         runReports,
		OnUsageError:   usageError,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			hierarchyCmd(),
			unusedCmd(),
			watchCmd(),
			configCmd(),
			cacheCmd(),
		},
	}
}

// usageError turns flag parsing failures into the usage exit code.
func usageError(_ *cli.Context, err error, _ bool) error {
	return cli.Exit(err.Error(), exitUsage)
}

func startProfile(c *cli.Context) error {
	if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
		cpuFile, err := os.Create(pprofPrefix + ".cpu.pprof")
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			cpuFile.Close()
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		c.App.Metadata["pprofCPU"] = cpuFile
	}
	return nil
}

func stopProfile(c *cli.Context) error {
	pprofPrefix := c.String("pprof")
	if pprofPrefix == "" {
		return nil
	}

	pprof.StopCPUProfile()
	if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
		cpuFile.Close()
	}

	memFile, err := os.Create(pprofPrefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer memFile.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	return nil
}
