package main

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sceneprobe/internal/output"
	"github.com/panbanda/sceneprobe/internal/service/analysis"
	"github.com/panbanda/sceneprobe/pkg/analyzer/scene"
	"github.com/panbanda/sceneprobe/pkg/analyzer/usage"
)

// runReports is the root action: analyze <project> and write the reports
// into <output>.
func runReports(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: "+rootUsage, exitUsage)
	}
	project, outDir := c.Args().Get(0), c.Args().Get(1)

	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	defer s.close()

	written, result, err := writeReports(c.Context, s, project, outDir)
	if err != nil {
		return err
	}
	return s.out.Output(runSummary(result, written))
}

// writeReports runs the analysis and writes its reports, printing warnings.
func writeReports(ctx context.Context, s *settings, project, outDir string) (*analysis.Written, *analysis.Result, error) {
	svc := s.service()

	ctx, finish := s.track(ctx, "Analyzing")
	result, err := svc.Run(ctx, project)
	finish(err)
	if err != nil {
		return nil, nil, fail(err)
	}

	written, err := svc.WriteReports(result, outDir)
	if err != nil {
		return nil, nil, fail(err)
	}

	s.warn(append(result.Warnings, written.Warnings...))
	if s.verbose {
		for _, h := range result.Scenes.Scenes {
			warnCycles(s, h)
		}
	}
	return written, result, nil
}

func warnCycles(s *settings, h scene.Hierarchy) {
	for _, cycle := range h.Cycles {
		s.messages.Warning("%s: parent cycle among objects %v", h.Path, cycle)
	}
}

// runSummary renders what a report run produced.
func runSummary(result *analysis.Result, written *analysis.Written) *output.Report {
	files := &output.Listing{Title: "Written to " + written.Dir}
	for _, path := range written.Dumps {
		files.Lines = append(files.Lines, filepath.Base(path))
	}
	files.Lines = append(files.Lines, filepath.Base(written.Unused))

	return &output.Report{
		Title:    "sceneprobe",
		Sections: []output.Renderable{summaryTable(result), files},
		Data: map[string]any{
			"project": result.Project,
			"written": written,
			"scenes":  result.Scenes.Summary,
			"usage":   result.Usage.Summary,
			"index": map[string]any{
				"entries": result.IndexSize,
				"cached":  result.IndexCached,
			},
		},
	}
}

func summaryTable(result *analysis.Result) *output.Table {
	sc, us := result.Scenes.Summary, result.Usage.Summary
	rows := [][]string{
		{"Scenes", strconv.Itoa(sc.TotalScenes)},
		{"Objects", strconv.Itoa(sc.TotalObjects)},
		{"Scripts", strconv.Itoa(us.TotalScripts)},
		{"Used scripts", strconv.Itoa(us.UsedScripts)},
		{"Unused scripts", strconv.Itoa(us.UnusedScripts)},
		{"References", strconv.Itoa(us.ReferencesFound)},
		{"Unresolved references", strconv.Itoa(us.Unresolved)},
		{"Missing sidecars", strconv.Itoa(us.MissingSidecars)},
		{"Index entries", strconv.Itoa(result.IndexSize)},
	}
	if sc.CyclicScenes > 0 {
		rows = append(rows, []string{"Scenes with parent cycles", strconv.Itoa(sc.CyclicScenes)})
	}
	return output.NewTable("Summary", []string{"Metric", "Value"}, rows, nil, nil)
}

func hierarchyCmd() *cli.Command {
	return &cli.Command{
		Name:         "hierarchy",
		Aliases:      []string{"tree"},
		Usage:        "Print the object hierarchy of every scene",
		ArgsUsage:    "<project>",
		OnUsageError: usageError,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "scene",
				Usage: "Only print scenes with this name (repeatable)",
			},
		},
		Action: runHierarchyCmd,
	}
}

func runHierarchyCmd(c *cli.Context) error {
	project, err := projectArg(c)
	if err != nil {
		return err
	}
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, finish := s.track(c.Context, "Rebuilding scenes")
	result, warnings, err := s.service().Hierarchies(ctx, project)
	finish(err)
	if err != nil {
		return fail(err)
	}
	s.warn(warnings)

	result = filterScenes(result, c.StringSlice("scene"))
	if s.verbose {
		for _, h := range result.Scenes {
			warnCycles(s, h)
		}
	}

	if len(result.Scenes) == 0 {
		s.messages.Info("No scenes found")
	}
	return s.out.Output(hierarchyReport(result))
}

// filterScenes keeps the scenes named in names; an empty filter keeps all.
func filterScenes(a *scene.Analysis, names []string) *scene.Analysis {
	if len(names) == 0 {
		return a
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}

	filtered := &scene.Analysis{Scenes: []scene.Hierarchy{}}
	for _, h := range a.Scenes {
		if !keep[h.Name] {
			continue
		}
		filtered.Scenes = append(filtered.Scenes, h)
		filtered.Summary.TotalScenes++
		filtered.Summary.TotalObjects += h.Objects
		filtered.Summary.TotalRoots += len(h.Roots)
		if len(h.Cycles) > 0 {
			filtered.Summary.CyclicScenes++
		}
	}
	return filtered
}

func hierarchyReport(a *scene.Analysis) *output.Report {
	sections := make([]output.Renderable, len(a.Scenes))
	for i, h := range a.Scenes {
		sections[i] = &output.Listing{Title: h.Name, Lines: h.Lines}
	}
	return &output.Report{Title: "Scene Hierarchy", Sections: sections, Data: a}
}

func unusedCmd() *cli.Command {
	return &cli.Command{
		Name:         "unused",
		Usage:        "Print the scripts no scene references",
		ArgsUsage:    "<project>",
		OnUsageError: usageError,
		Action:       runUnusedCmd,
	}
}

func runUnusedCmd(c *cli.Context) error {
	project, err := projectArg(c)
	if err != nil {
		return err
	}
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, finish := s.track(c.Context, "Finding unused scripts")
	result, warnings, err := s.service().Unused(ctx, project)
	finish(err)
	if err != nil {
		return fail(err)
	}
	s.warn(warnings)

	return s.out.Output(unusedTable(result))
}

func unusedTable(a *usage.Analysis) *output.Table {
	rows := make([][]string, len(a.Unused))
	for i, u := range a.Unused {
		rows[i] = []string{u.RelativePath, u.GUID}
	}
	footer := []string{"Total: " + strconv.Itoa(len(a.Unused)) + " of " + strconv.Itoa(a.Summary.TotalScripts), ""}
	return output.NewTable("Unused Scripts", []string{"Relative Path", "GUID"}, rows, footer, a)
}
