// Package usage finds source files that no scene references.
package usage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/panbanda/sceneprobe/internal/fileproc"
	"github.com/panbanda/sceneprobe/pkg/analyzer"
	"github.com/panbanda/sceneprobe/pkg/analyzer/resolver"
	"github.com/panbanda/sceneprobe/pkg/analyzer/scene"
	"github.com/panbanda/sceneprobe/pkg/source"
)

// DefaultAssetRoot marks where project-relative asset paths begin.
const DefaultAssetRoot = "Assets/"

// UnusedScript is a source file that no scene references.
type UnusedScript struct {
	Path         string `json:"path" toon:"path"`
	RelativePath string `json:"relative_path" toon:"relative_path"`
	GUID         string `json:"guid,omitempty" toon:"guid,omitempty"`
}

// Summary provides aggregate statistics for a usage analysis.
type Summary struct {
	TotalScripts    int `json:"total_scripts" toon:"total_scripts"`
	UsedScripts     int `json:"used_scripts" toon:"used_scripts"`
	UnusedScripts   int `json:"unused_scripts" toon:"unused_scripts"`
	ScenesScanned   int `json:"scenes_scanned" toon:"scenes_scanned"`
	ReferencesFound int `json:"references_found" toon:"references_found"`
	Unresolved      int `json:"unresolved_references" toon:"unresolved_references"`
	MissingSidecars int `json:"missing_sidecars" toon:"missing_sidecars"`
}

// Analysis is the result of a usage analysis.
type Analysis struct {
	Unused  []UnusedScript `json:"unused" toon:"unused"`
	Summary Summary        `json:"summary" toon:"summary"`
}

// Analyzer computes the set of source files never referenced by a scene.
type Analyzer struct {
	src        source.ContentSource
	resolver   *resolver.Resolver
	workers    int
	metaSuffix string
	assetRoot  string
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithSource reads scenes and sidecars through src.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		a.src = src
	}
}

// WithWorkers bounds the number of files read concurrently (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithMetaSuffix sets the suffix naming a script's sidecar.
func WithMetaSuffix(suffix string) Option {
	return func(a *Analyzer) {
		a.metaSuffix = suffix
	}
}

// WithAssetRoot sets the marker relative paths start from.
func WithAssetRoot(marker string) Option {
	return func(a *Analyzer) {
		if marker != "" {
			a.assetRoot = marker
		}
	}
}

// New creates a usage analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		src:       source.NewFilesystem(),
		assetRoot: DefaultAssetRoot,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.resolver = resolver.New(resolver.WithSource(a.src), resolver.WithMetaSuffix(a.metaSuffix))
	return a
}

// Analyze reads every scene, resolves the identifiers it references through
// idx and returns the scripts that none of them resolve to, sorted by path.
// Paths are compared case-insensitively. Unreadable scenes are skipped and
// reported in the returned errors; their references count as absent.
func (a *Analyzer) Analyze(ctx context.Context, scenes, scripts []string, idx *resolver.Index) (*Analysis, *fileproc.ProcessingErrors) {
	tick := analyzer.StartStage(ctx, "references", len(scenes))
	perScene, errs := fileproc.ForEachFile(ctx, scenes, a.workers, func(path string) ([]string, error) {
		lines, err := source.ReadLines(a.src, path)
		if err != nil {
			return nil, err
		}
		return scene.ReferencedGUIDs(lines), nil
	}, fileproc.ProgressFunc(tick))

	referenced := make(map[string]bool)
	var guids []string
	for _, list := range perScene {
		for _, guid := range list {
			if !referenced[guid] {
				referenced[guid] = true
				guids = append(guids, guid)
			}
		}
	}

	used := make(map[string]bool)
	summary := Summary{
		ScenesScanned:   len(perScene),
		ReferencesFound: len(guids),
	}
	for _, guid := range guids {
		path, ok := idx.Resolve(guid)
		if !ok {
			summary.Unresolved++
			continue
		}
		used[pathKey(path)] = true
	}

	unused := UnusedPaths(scripts, used)

	tick = analyzer.StartStage(ctx, "sidecars", len(unused))
	entries := make([]UnusedScript, len(unused))
	for i, path := range unused {
		guid, err := a.resolver.LookupGUID(path)
		if err != nil {
			if !errors.Is(err, resolver.ErrNoGUID) && !errors.Is(err, os.ErrNotExist) {
				errs = addError(errs, a.resolver.MetaPath(path), err)
			}
			summary.MissingSidecars++
			guid = ""
		}
		entries[i] = UnusedScript{
			Path:         path,
			RelativePath: RelativeAssetPath(path, a.assetRoot),
			GUID:         guid,
		}
		tick(path)
	}

	summary.TotalScripts = len(scripts)
	summary.UnusedScripts = len(entries)
	summary.UsedScripts = summary.TotalScripts - summary.UnusedScripts

	return &Analysis{Unused: entries, Summary: summary}, errs
}

func addError(errs *fileproc.ProcessingErrors, path string, err error) *fileproc.ProcessingErrors {
	if errs == nil {
		errs = &fileproc.ProcessingErrors{}
	}
	errs.Add(path, err)
	return errs
}

// UnusedPaths returns the scripts whose case-folded path is not in used,
// de-duplicated and sorted.
func UnusedPaths(scripts []string, used map[string]bool) []string {
	seen := make(map[string]bool, len(scripts))
	var out []string
	for _, path := range scripts {
		key := pathKey(path)
		if used[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func pathKey(path string) string {
	return strings.ToLower(filepath.ToSlash(filepath.Clean(path)))
}

// RelativeAssetPath returns path from the first case-insensitive occurrence
// of marker onward, with forward slashes. Paths without the marker are
// returned whole.
func RelativeAssetPath(path, marker string) string {
	slashed := filepath.ToSlash(path)
	if i := indexFold(slashed, marker); i >= 0 {
		return slashed[i:]
	}
	return slashed
}

// indexFold is a case-insensitive strings.Index.
func indexFold(s, substr string) int {
	if substr == "" {
		return 0
	}
	for i := 0; i+len(substr) <= len(s); {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}
