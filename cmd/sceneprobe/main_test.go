package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/sceneprobe/internal/testutil"
	"github.com/panbanda/sceneprobe/pkg/analyzer/scene"
	fixture "github.com/panbanda/sceneprobe/pkg/testutil"
)

// runCLI runs the app with captured output. Tests chdir into a temporary
// directory first so the cache and config lookups stay inside it.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"sceneprobe"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func sampleProject(t *testing.T) string {
	t.Helper()
	return testutil.Project(t, map[string]string{
		"Assets/Scenes/Main.unity": fixture.SceneDocument(
			fixture.SceneObject{ID: 1, Name: "Root", Scripts: []string{"aaa1"}},
			fixture.SceneObject{ID: 2, Name: "Child", ParentID: 1},
		),
		"Assets/Scenes/Empty.unity":     "%YAML 1.1\n",
		"Assets/Scripts/Player.cs":      "class Player {}",
		"Assets/Scripts/Player.cs.meta": fixture.MetaFile("aaa1"),
		"Assets/Scripts/Unused.cs":      "class Unused {}",
		"Assets/Scripts/Unused.cs.meta": fixture.MetaFile("bbb2"),
	})
}

func TestRunReports(t *testing.T) {
	t.Chdir(t.TempDir())
	project := sampleProject(t)
	out := filepath.Join(t.TempDir(), "out")

	code, stdout, stderr := runCLI(t, project, out)
	require.Equal(t, exitOK, code, stderr)

	assert.Equal(t, []string{"Empty.unity.dump", "Main.unity.dump", "UnusedScripts.txt"}, testutil.ListFiles(t, out))
	assert.Equal(t, "Root\n--Child\n\n", testutil.ReadFile(t, filepath.Join(out, "Main.unity.dump")))
	assert.Equal(t, "\n", testutil.ReadFile(t, filepath.Join(out, "Empty.unity.dump")))
	assert.Equal(t, "Relative Path,GUID\nAssets/Scripts/Unused.cs,bbb2\n", testutil.ReadFile(t, filepath.Join(out, "UnusedScripts.txt")))

	assert.Contains(t, stdout, "Summary")
	assert.Contains(t, stdout, "UnusedScripts.txt")
	assert.True(t, testutil.FileExists(filepath.Join(".sceneprobe", "cache")))
}

func TestRunReportsJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	project := sampleProject(t)
	out := t.TempDir()

	code, stdout, stderr := runCLI(t, "--format", "json", "--no-cache", project, out)
	require.Equal(t, exitOK, code, stderr)

	var decoded struct {
		Usage struct {
			UnusedScripts int `json:"unused_scripts"`
		} `json:"usage"`
		Index struct {
			Cached bool `json:"cached"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, 1, decoded.Usage.UnusedScripts)
	assert.False(t, decoded.Index.Cached)
	assert.False(t, testutil.FileExists(filepath.Join(".sceneprobe", "cache")))
}

func TestRunExitCodes(t *testing.T) {
	t.Chdir(t.TempDir())
	project := sampleProject(t)

	blocker := filepath.Join(t.TempDir(), "file")
	testutil.WriteFile(t, blocker, "x")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, exitUsage},
		{"one argument", []string{project}, exitUsage},
		{"three arguments", []string{project, "a", "b"}, exitUsage},
		{"unknown flag", []string{"--bogus", project, "out"}, exitUsage},
		{"invalid format", []string{"--format", "xml", project, "out"}, exitUsage},
		{"negative workers", []string{"--workers", "-1", project, "out"}, exitUsage},
		{"missing project", []string{filepath.Join(project, "missing"), "out"}, exitNotFound},
		{"project is a file", []string{blocker, "out"}, exitNotFound},
		{"unwritable output", []string{project, filepath.Join(blocker, "out")}, exitRuntime},
		{"missing config", []string{"--config", "nope.toml", project, "out"}, exitRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, stderr, "ERROR: ")
		})
	}
}

func TestRunCreatesNestedOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	project := sampleProject(t)
	out := filepath.Join(t.TempDir(), "a", "b", "c")

	code, _, stderr := runCLI(t, project, out)
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, testutil.FileExists(filepath.Join(out, "UnusedScripts.txt")))
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	testutil.WriteFile(t, filepath.Join(dir, "sceneprobe.yaml"), "output:\n  unused_report: dead.csv\ncache:\n  enabled: false\n")
	project := sampleProject(t)
	out := t.TempDir()

	code, _, stderr := runCLI(t, project, out)
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, testutil.FileExists(filepath.Join(out, "dead.csv")))
	assert.False(t, testutil.FileExists(filepath.Join(dir, ".sceneprobe", "cache")))
}

func TestHierarchyCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	project := sampleProject(t)

	code, stdout, stderr := runCLI(t, "hierarchy", project)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Scene Hierarchy")
	assert.Contains(t, stdout, "Main\n----\nRoot\n--Child\n")

	code, stdout, stderr = runCLI(t, "--format", "json", "hierarchy", "--scene", "Main", project)
	require.Equal(t, exitOK, code, stderr)

	var decoded scene.Analysis
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Len(t, decoded.Scenes, 1)
	assert.Equal(t, "Main", decoded.Scenes[0].Name)
	require.Len(t, decoded.Scenes[0].Roots, 1)
	assert.Equal(t, "Child", decoded.Scenes[0].Roots[0].Children[0].Name)

	code, _, _ = runCLI(t, "hierarchy")
	assert.Equal(t, exitUsage, code)
}

func TestUnusedCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	project := sampleProject(t)

	code, stdout, stderr := runCLI(t, "unused", project)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Assets/Scripts/Unused.cs")
	assert.NotContains(t, stdout, "Player.cs")

	code, stdout, stderr = runCLI(t, "-f", "toon", "unused", project)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "bbb2")

	code, _, _ = runCLI(t, "unused", filepath.Join(project, "missing"))
	assert.Equal(t, exitNotFound, code)
}

func TestOutputFlagWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	project := sampleProject(t)
	target := filepath.Join(dir, "unused.json")

	code, stdout, stderr := runCLI(t, "-f", "json", "-o", target, "unused", project)
	require.Equal(t, exitOK, code, stderr)
	assert.Empty(t, stdout)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(testutil.ReadFile(t, target)), &decoded))
	assert.Contains(t, testutil.ReadFile(t, target), "Assets/Scripts/Unused.cs")

	code, _, stderr = runCLI(t, "--output", filepath.Join(dir, "missing", "x.txt"), "unused", project)
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "failed to create output file")
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	code, stdout, _ := runCLI(t, "config", "validate")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Default configuration is valid")

	code, _, stderr := runCLI(t, "config", "init")
	require.Equal(t, exitOK, code, stderr)
	content := testutil.ReadFile(t, filepath.Join(dir, "sceneprobe.toml"))
	assert.Contains(t, content, "unused_report")

	code, _, _ = runCLI(t, "config", "init")
	assert.Equal(t, exitRuntime, code, "init must not overwrite without --force")

	code, _, stderr = runCLI(t, "config", "init", "--force")
	assert.Equal(t, exitOK, code, stderr)

	code, stdout, _ = runCLI(t, "config", "validate")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "sceneprobe.toml")

	code, stdout, stderr = runCLI(t, "config", "show", "--format", "yaml")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "scene_ext: .unity")

	code, stdout, stderr = runCLI(t, "config", "show", "--format", "json")
	require.Equal(t, exitOK, code, stderr)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Contains(t, decoded, "scan")

	code, _, _ = runCLI(t, "config", "show", "--format", "ini")
	assert.Equal(t, exitUsage, code)
}

func TestConfigInitFormats(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	for _, name := range []string{"conf/sceneprobe.yaml", "conf/sceneprobe.json"} {
		code, _, stderr := runCLI(t, "config", "init", "-o", name)
		require.Equal(t, exitOK, code, stderr)

		code, _, stderr = runCLI(t, "-c", name, "config", "validate")
		assert.Equal(t, exitOK, code, "%s: %s", name, stderr)
	}
}

func TestConfigValidateInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	testutil.WriteFile(t, filepath.Join(dir, "bad.toml"), "[analysis]\nworkers = -3\n")

	code, _, stderr := runCLI(t, "-c", "bad.toml", "config", "validate")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "analysis.workers")
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	project := sampleProject(t)

	code, _, stderr := runCLI(t, project, t.TempDir())
	require.Equal(t, exitOK, code, stderr)

	code, stdout, stderr := runCLI(t, "-f", "json", "cache", "stats")
	require.Equal(t, exitOK, code, stderr)
	var stats struct {
		Entries int `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Equal(t, 1, stats.Entries)

	code, _, stderr = runCLI(t, "cache", "clear", project)
	require.Equal(t, exitOK, code, stderr)

	code, stdout, _ = runCLI(t, "-f", "json", "cache", "stats")
	require.Equal(t, exitOK, code)
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Equal(t, 0, stats.Entries)

	code, _, stderr = runCLI(t, "cache", "clear")
	require.Equal(t, exitOK, code, stderr)
	_, err := os.Stat(filepath.Join(dir, ".sceneprobe", "cache"))
	assert.True(t, os.IsNotExist(err))
}

func TestWarningsAreCounted(t *testing.T) {
	t.Chdir(t.TempDir())
	project := testutil.Project(t, map[string]string{
		"Assets/Scenes/A/Main.unity": fixture.SceneDocument(fixture.SceneObject{ID: 1, Name: "First"}),
		"Assets/Scenes/B/Main.unity": fixture.SceneDocument(fixture.SceneObject{ID: 1, Name: "Second"}),
	})

	code, _, stderr := runCLI(t, project, t.TempDir())
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "1 warning(s)")

	code, _, stderr = runCLI(t, "--verbose", project, t.TempDir())
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "overwritten by")
	assert.True(t, strings.HasPrefix(stderr, "WARNING: "))
}

func TestFilterScenes(t *testing.T) {
	a := &scene.Analysis{Scenes: []scene.Hierarchy{
		{Name: "Main", Objects: 2, Roots: []*scene.Node{{ID: 1}}},
		{Name: "Boss", Objects: 1, Cycles: [][]int64{{3}}},
	}}

	assert.Same(t, a, filterScenes(a, nil))

	filtered := filterScenes(a, []string{"Boss", "Missing"})
	require.Len(t, filtered.Scenes, 1)
	assert.Equal(t, scene.Summary{TotalScenes: 1, TotalObjects: 1, CyclicScenes: 1}, filtered.Summary)
}
