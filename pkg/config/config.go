package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for sceneprobe.
type Config struct {
	// Asset naming conventions of the inspected project
	Scan ScanConfig `koanf:"scan" toml:"scan" yaml:"scan"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude" yaml:"exclude"`

	// Cache settings for the identifier index
	Cache CacheConfig `koanf:"cache" toml:"cache" yaml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" yaml:"output"`

	// Analysis tuning
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" yaml:"analysis"`
}

// ScanConfig describes how assets are recognised on disk.
type ScanConfig struct {
	SceneExt   string `koanf:"scene_ext" toml:"scene_ext" yaml:"scene_ext"`
	ScriptExt  string `koanf:"script_ext" toml:"script_ext" yaml:"script_ext"`
	MetaSuffix string `koanf:"meta_suffix" toml:"meta_suffix" yaml:"meta_suffix"`
	AssetRoot  string `koanf:"asset_root" toml:"asset_root" yaml:"asset_root"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns" yaml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs" yaml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" yaml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" yaml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" yaml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting and report file names.
type OutputConfig struct {
	Format       string `koanf:"format" toml:"format" yaml:"format"` // text, json, markdown, toon
	Color        bool   `koanf:"color" toml:"color" yaml:"color"`
	Verbose      bool   `koanf:"verbose" toml:"verbose" yaml:"verbose"`
	DumpSuffix   string `koanf:"dump_suffix" toml:"dump_suffix" yaml:"dump_suffix"`
	UnusedReport string `koanf:"unused_report" toml:"unused_report" yaml:"unused_report"`
}

// AnalysisConfig tunes the analysis run.
type AnalysisConfig struct {
	Workers int `koanf:"workers" toml:"workers" yaml:"workers"` // 0 = 2x NumCPU
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			SceneExt:   ".unity",
			ScriptExt:  ".cs",
			MetaSuffix: ".meta",
			AssetRoot:  "Assets/",
		},
		Exclude: ExcludeConfig{
			Patterns:  []string{},
			Dirs:      []string{".git"},
			Gitignore: false,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".sceneprobe/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:       "text",
			Color:        true,
			Verbose:      false,
			DumpSuffix:   ".unity.dump",
			UnusedReport: "UnusedScripts.txt",
		},
		Analysis: AnalysisConfig{
			Workers: 0,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configNames are the file names searched by LoadConfig, in priority order.
var configNames = []string{
	"sceneprobe.toml",
	"sceneprobe.yaml",
	"sceneprobe.yml",
	"sceneprobe.json",
	".sceneprobe.toml",
	".sceneprobe.yaml",
	".sceneprobe.yml",
	".sceneprobe.json",
}

// LoadResult is a loaded configuration together with the file it came from.
// Source is empty when defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path       string
	searchDirs []string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads the given file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchDirs overrides the directories searched for a config file.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) {
		o.searchDirs = dirs
	}
}

// LoadConfig loads and validates configuration. An explicit path must exist;
// otherwise the standard locations are searched and defaults are returned when
// nothing is found.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{searchDirs: []string{".", ".sceneprobe"}}
	for _, opt := range opts {
		opt(o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", o.path, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", o.path, err)
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	for _, dir := range o.searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
			return &LoadResult{Config: cfg, Source: path}, nil
		}
	}

	return &LoadResult{Config: DefaultConfig()}, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

// Validate reports configuration values the analysis cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.SceneExt == "" {
		errs = append(errs, errors.New("scan.scene_ext must not be empty"))
	}
	if c.Scan.ScriptExt == "" {
		errs = append(errs, errors.New("scan.script_ext must not be empty"))
	}
	if c.Scan.MetaSuffix == "" {
		errs = append(errs, errors.New("scan.meta_suffix must not be empty"))
	}
	if c.Output.DumpSuffix == "" {
		errs = append(errs, errors.New("output.dump_suffix must not be empty"))
	}
	if c.Output.UnusedReport == "" {
		errs = append(errs, errors.New("output.unused_report must not be empty"))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 0 (got %d)", c.Analysis.Workers))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be >= 0 (got %d)", c.Cache.TTL))
	}
	return errors.Join(errs...)
}

// IsExcludedDir reports whether a directory name is listed in exclude.dirs.
func (c *Config) IsExcludedDir(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// ScriptMetaSuffix is the suffix of sidecar files that describe scripts
// (".cs.meta" with the defaults).
func (c *Config) ScriptMetaSuffix() string {
	return c.Scan.ScriptExt + c.Scan.MetaSuffix
}
