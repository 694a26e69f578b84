// Package analysis orchestrates a project run: enumeration, scene
// reconstruction, identifier indexing and the usage analysis.
package analysis

import (
	"context"
	"os"
	"path/filepath"

	"github.com/panbanda/sceneprobe/internal/cache"
	"github.com/panbanda/sceneprobe/internal/fileproc"
	"github.com/panbanda/sceneprobe/internal/scanner"
	"github.com/panbanda/sceneprobe/pkg/analyzer/resolver"
	"github.com/panbanda/sceneprobe/pkg/analyzer/scene"
	"github.com/panbanda/sceneprobe/pkg/analyzer/usage"
	"github.com/panbanda/sceneprobe/pkg/config"
)

// Service orchestrates project analysis.
type Service struct {
	config  *config.Config
	noCache bool
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithoutCache disables the identifier index cache regardless of config.
func WithoutCache() Option {
	return func(s *Service) {
		s.noCache = true
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	return s
}

// Config returns the configuration in use.
func (s *Service) Config() *config.Config {
	return s.config
}

// Warning is a non-fatal problem met during a run.
type Warning struct {
	Path    string `json:"path,omitempty" toon:"path,omitempty"`
	Message string `json:"message" toon:"message"`
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}

// Result is the outcome of a full project run.
type Result struct {
	Project     string          `json:"project" toon:"project"`
	Scenes      *scene.Analysis `json:"scenes" toon:"scenes"`
	Usage       *usage.Analysis `json:"usage" toon:"usage"`
	IndexSize   int             `json:"index_size" toon:"index_size"`
	IndexCached bool            `json:"index_cached" toon:"index_cached"`
	Warnings    []Warning       `json:"warnings,omitempty" toon:"warnings,omitempty"`
}

// CheckProject resolves root to an absolute path and verifies that it is an
// existing directory.
func CheckProject(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &ProjectNotFoundError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ProjectNotFoundError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return "", &ProjectNotFoundError{Path: root, Err: ErrNotDirectory}
	}
	return abs, nil
}

// Scan checks root and enumerates its scenes, scripts and script sidecars.
func (s *Service) Scan(root string) (*scanner.Layout, error) {
	abs, err := CheckProject(root)
	if err != nil {
		return nil, err
	}
	layout, err := scanner.NewScanner(s.config).Scan(abs)
	if err != nil {
		return nil, &ScanError{Path: abs, Err: err}
	}
	return layout, nil
}

// Hierarchies rebuilds the object hierarchy of every scene under root.
func (s *Service) Hierarchies(ctx context.Context, root string) (*scene.Analysis, []Warning, error) {
	layout, err := s.Scan(root)
	if err != nil {
		return nil, nil, err
	}
	analysis, errs := s.sceneAnalyzer().Analyze(ctx, layout.Scenes)
	return analysis, warningsFrom(errs), nil
}

// Unused finds the scripts under root that no scene references.
func (s *Service) Unused(ctx context.Context, root string) (*usage.Analysis, []Warning, error) {
	layout, err := s.Scan(root)
	if err != nil {
		return nil, nil, err
	}
	idx, _, warnings := s.Index(ctx, layout)
	analysis, errs := s.usageAnalyzer().Analyze(ctx, layout.Scenes, layout.Scripts, idx)
	return analysis, append(warnings, warningsFrom(errs)...), nil
}

// Run performs the complete analysis of the project at root.
func (s *Service) Run(ctx context.Context, root string) (*Result, error) {
	layout, err := s.Scan(root)
	if err != nil {
		return nil, err
	}

	scenes, errs := s.sceneAnalyzer().Analyze(ctx, layout.Scenes)
	warnings := warningsFrom(errs)

	idx, cached, indexWarnings := s.Index(ctx, layout)
	warnings = append(warnings, indexWarnings...)

	unused, errs := s.usageAnalyzer().Analyze(ctx, layout.Scenes, layout.Scripts, idx)
	warnings = append(warnings, warningsFrom(errs)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Project:     layout.Root,
		Scenes:      scenes,
		Usage:       unused,
		IndexSize:   idx.Len(),
		IndexCached: cached,
		Warnings:    warnings,
	}, nil
}

// Index returns the identifier index of the project's scripts, from the
// cache when its fingerprint still matches. The second result reports a
// cache hit.
func (s *Service) Index(ctx context.Context, layout *scanner.Layout) (*resolver.Index, bool, []Warning) {
	var warnings []Warning

	c, err := s.openCache()
	if err != nil {
		warnings = append(warnings, Warning{Path: s.config.Cache.Dir, Message: "cache disabled: " + err.Error()})
	}

	var fingerprint string
	if c != nil && c.Enabled() {
		fingerprint = cache.Fingerprint(layout.ScriptMetas, s.config.Scan.MetaSuffix)
		if idx, ok := c.GetIndex(layout.Root, fingerprint); ok {
			return idx, true, warnings
		}
	}

	r := resolver.New(
		resolver.WithWorkers(s.config.Analysis.Workers),
		resolver.WithMetaSuffix(s.config.Scan.MetaSuffix),
	)
	idx, errs := r.Build(ctx, layout.ScriptMetas)
	warnings = append(warnings, warningsFrom(errs)...)

	// An index built from partial reads is not worth keeping.
	if c != nil && c.Enabled() && !errs.HasErrors() && ctx.Err() == nil {
		if err := c.SetIndex(layout.Root, fingerprint, idx); err != nil {
			warnings = append(warnings, Warning{Path: c.Dir(), Message: "cache write failed: " + err.Error()})
		}
	}
	return idx, false, warnings
}

// Cache opens the configured index cache.
func (s *Service) Cache() (*cache.Cache, error) {
	cfg := s.config.Cache
	return cache.New(cfg.Dir, cfg.TTL, cfg.Enabled)
}

func (s *Service) openCache() (*cache.Cache, error) {
	if s.noCache || !s.config.Cache.Enabled {
		return nil, nil
	}
	return s.Cache()
}

func (s *Service) sceneAnalyzer() *scene.Analyzer {
	return scene.New(scene.WithWorkers(s.config.Analysis.Workers))
}

func (s *Service) usageAnalyzer() *usage.Analyzer {
	return usage.New(
		usage.WithWorkers(s.config.Analysis.Workers),
		usage.WithMetaSuffix(s.config.Scan.MetaSuffix),
		usage.WithAssetRoot(s.config.Scan.AssetRoot),
	)
}

func warningsFrom(errs *fileproc.ProcessingErrors) []Warning {
	var warnings []Warning
	for _, e := range errs.Sorted() {
		warnings = append(warnings, Warning{Path: e.Path, Message: e.Err.Error()})
	}
	return warnings
}
