package scene

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/panbanda/sceneprobe/internal/fileproc"
	"github.com/panbanda/sceneprobe/pkg/analyzer"
	"github.com/panbanda/sceneprobe/pkg/source"
)

// Analyzer rebuilds the object hierarchy of scene documents.
type Analyzer struct {
	src     source.ContentSource
	workers int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithSource reads scene documents through src instead of the filesystem.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		a.src = src
	}
}

// WithWorkers bounds the number of scenes read concurrently (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a scene analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{src: source.NewFilesystem()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeLines rebuilds the hierarchy of one scene from its lines.
func AnalyzeLines(path string, lines []string) Hierarchy {
	records := ExtractRecords(lines)
	forest := BuildForest(records)
	return Hierarchy{
		Path:    path,
		Name:    SceneName(path),
		Objects: forest.Len(),
		Roots:   forest.Tree(),
		Lines:   forest.Render(),
		Cycles:  FindCycles(records),
	}
}

// AnalyzeFile reads one scene document and rebuilds its hierarchy.
func (a *Analyzer) AnalyzeFile(path string) (Hierarchy, error) {
	lines, err := source.ReadLines(a.src, path)
	if err != nil {
		return Hierarchy{}, err
	}
	return AnalyzeLines(path, lines), nil
}

// Analyze rebuilds the hierarchy of every scene in files. Scenes are returned
// in the order of files; unreadable scenes are skipped and reported in the
// returned ProcessingErrors.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, *fileproc.ProcessingErrors) {
	tick := analyzer.StartStage(ctx, "scenes", len(files))

	scenes, errs := fileproc.ForEachFile(ctx, files, a.workers, a.AnalyzeFile, fileproc.ProgressFunc(tick))

	analysis := &Analysis{Scenes: scenes}
	if analysis.Scenes == nil {
		analysis.Scenes = []Hierarchy{}
	}
	for _, h := range analysis.Scenes {
		analysis.Summary.TotalScenes++
		analysis.Summary.TotalObjects += h.Objects
		analysis.Summary.TotalRoots += len(h.Roots)
		if len(h.Cycles) > 0 {
			analysis.Summary.CyclicScenes++
		}
	}
	return analysis, errs
}

// SceneName is the file name of a scene without its extension.
func SceneName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
