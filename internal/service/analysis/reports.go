package analysis

import (
	"github.com/panbanda/sceneprobe/internal/report"
	"github.com/panbanda/sceneprobe/pkg/analyzer/scene"
)

// Written lists the report files produced by WriteReports.
type Written struct {
	Dir      string    `json:"dir" toon:"dir"`
	Dumps    []string  `json:"dumps" toon:"dumps"`
	Unused   string    `json:"unused_report" toon:"unused_report"`
	Warnings []Warning `json:"warnings,omitempty" toon:"warnings,omitempty"`
}

// WriteReports writes one hierarchy dump per scene and the unused-scripts
// report into dir, creating it when absent. Scenes sharing a name write the
// same dump; the one latest in path order wins and a warning is returned.
// Any failure to create or write a file aborts with a *report.WriteError.
func (s *Service) WriteReports(result *Result, dir string) (*Written, error) {
	w := report.NewWriter(dir,
		report.WithDumpSuffix(s.config.Output.DumpSuffix),
		report.WithUnusedReport(s.config.Output.UnusedReport),
	)
	if err := w.EnsureDir(); err != nil {
		return nil, err
	}

	written := &Written{Dir: dir, Warnings: NameCollisions(result.Scenes.Scenes)}
	seen := make(map[string]bool)
	for _, h := range result.Scenes.Scenes {
		path, err := w.WriteHierarchy(h.Name, h.Lines)
		if err != nil {
			return nil, err
		}
		if !seen[path] {
			seen[path] = true
			written.Dumps = append(written.Dumps, path)
		}
	}

	path, err := w.WriteUnused(result.Usage.Unused)
	if err != nil {
		return nil, err
	}
	written.Unused = path
	return written, nil
}

// NameCollisions reports every scene whose dump is overwritten by a later
// scene with the same name.
func NameCollisions(scenes []scene.Hierarchy) []Warning {
	last := make(map[string]string)
	for _, h := range scenes {
		last[h.Name] = h.Path
	}

	var warnings []Warning
	for _, h := range scenes {
		if winner := last[h.Name]; winner != h.Path {
			warnings = append(warnings, Warning{
				Path:    h.Path,
				Message: "dump " + h.Name + " is overwritten by " + winner,
			})
		}
	}
	return warnings
}
