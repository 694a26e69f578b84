package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/sceneprobe/internal/output"
	"github.com/panbanda/sceneprobe/pkg/config"
)

// messages prints status lines to the command's standard output.
func messages(c *cli.Context) *output.Formatter {
	return output.NewFormatterTo(c.App.Writer, output.FormatText, colorEnabled(c.App.Writer))
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a configuration file with the default settings",
				Description: `Examples:
  sceneprobe config init                          # Creates sceneprobe.toml
  sceneprobe config init -o .sceneprobe/sceneprobe.yaml
  sceneprobe config init --force                  # Overwrite an existing file`,
				OnUsageError: usageError,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "sceneprobe.toml",
						Usage:   "Output file path (.toml, .yaml, .yml or .json)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite existing config file",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Examples:
  sceneprobe config show                       # TOML
  sceneprobe -c sceneprobe.yaml config show --format yaml`,
				OnUsageError: usageError,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "toml",
						Usage:   "Output format: toml, yaml, json",
					},
				},
				Action: runConfigShow,
			},
			{
				Name:         "validate",
				Usage:        "Validate a configuration file",
				OnUsageError: usageError,
				Action:       runConfigValidate,
			},
		},
	}
}

// marshalConfig encodes cfg in the named format.
func marshalConfig(cfg *config.Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "toml":
		return toml.Marshal(cfg)
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		data, err := json.MarshalIndent(configJSON(cfg), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown config format %q (want toml, yaml or json)", format)
	}
}

// configJSON re-keys cfg by its file keys so the JSON output loads back.
func configJSON(cfg *config.Config) map[string]any {
	var m map[string]any
	data, _ := yaml.Marshal(cfg)
	_ = yaml.Unmarshal(data, &m)
	return m
}

func configLoadOptions(c *cli.Context) []config.LoadOption {
	if path := c.String("config"); path != "" {
		return []config.LoadOption{config.WithPath(path)}
	}
	return nil
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return cli.Exit(fmt.Sprintf("config file %q already exists (use --force to overwrite)", outputPath), exitRuntime)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(outputPath)), ".")
	if format == "" {
		format = "toml"
	}
	content, err := marshalConfig(config.DefaultConfig(), format)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cli.Exit(fmt.Sprintf("failed to create directory %q: %v", dir, err), exitRuntime)
		}
	}

	var buf strings.Builder
	if format == "toml" || format == "yaml" || format == "yml" {
		buf.WriteString("# sceneprobe configuration\n\n")
	}
	buf.Write(content)

	if err := os.WriteFile(outputPath, []byte(buf.String()), 0o644); err != nil {
		return cli.Exit(fmt.Sprintf("failed to write config file: %v", err), exitRuntime)
	}

	messages(c).Success("Created %s", outputPath)
	return nil
}

func runConfigShow(c *cli.Context) error {
	result, err := config.LoadConfig(configLoadOptions(c)...)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntime)
	}

	format := c.String("format")
	content, err := marshalConfig(result.Config, format)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	if !strings.EqualFold(format, "json") {
		if result.Source != "" {
			fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", result.Source)
		} else {
			fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
		}
	}
	fmt.Fprint(c.App.Writer, string(content))
	return nil
}

func runConfigValidate(c *cli.Context) error {
	result, err := config.LoadConfig(configLoadOptions(c)...)
	if err != nil {
		return cli.Exit("configuration validation failed: "+err.Error(), exitRuntime)
	}

	if result.Source != "" {
		messages(c).Success("Configuration valid: %s", result.Source)
	} else {
		messages(c).Info("No config file found. Default configuration is valid.")
	}
	return nil
}
