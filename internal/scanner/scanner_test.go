package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/sceneprobe/pkg/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatalf("Rel(%s) error: %v", p, err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"Assets/Scenes/Main.unity":      "",
		"Assets/Scenes/Main.unity.meta": "guid: 01\n",
		"Assets/Scenes/Boss.UNITY":      "",
		"Assets/Scripts/Player.cs":      "",
		"Assets/Scripts/Player.cs.meta": "guid: 02\n",
		"Assets/Scripts/Enemy.CS":       "",
		"Assets/Scripts/Enemy.CS.META":  "guid: 03\n",
		"Assets/Textures/Logo.png":      "",
		"Assets/Textures/Logo.png.meta": "guid: 04\n",
		"ProjectSettings/Tags.asset":    "",
		"Packages/manifest.json":        "{}",
	})

	layout, err := NewScanner(nil).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if !filepath.IsAbs(layout.Root) {
		t.Errorf("Root = %q, want absolute path", layout.Root)
	}

	scenes := relAll(t, layout.Root, layout.Scenes)
	if want := []string{"Assets/Scenes/Boss.UNITY", "Assets/Scenes/Main.unity"}; !equalStrings(scenes, want) {
		t.Errorf("Scenes = %v, want %v", scenes, want)
	}

	scripts := relAll(t, layout.Root, layout.Scripts)
	if want := []string{"Assets/Scripts/Enemy.CS", "Assets/Scripts/Player.cs"}; !equalStrings(scripts, want) {
		t.Errorf("Scripts = %v, want %v", scripts, want)
	}

	metas := relAll(t, layout.Root, layout.ScriptMetas)
	if want := []string{"Assets/Scripts/Enemy.CS.META", "Assets/Scripts/Player.cs.meta"}; !equalStrings(metas, want) {
		t.Errorf("ScriptMetas = %v, want %v", metas, want)
	}
}

func TestScanRelativeRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"Assets/A.cs": ""})

	t.Chdir(tmpDir)

	layout, err := NewScanner(nil).Scan(".")
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(layout.Scripts) != 1 || !filepath.IsAbs(layout.Scripts[0]) {
		t.Errorf("Scripts = %v, want one absolute path", layout.Scripts)
	}
}

func TestScanExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"Assets/A.cs":        "",
		"Library/Cache.cs":   "",
		".git/hooks/Hook.cs": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Dirs = []string{".git", "Library"}

	layout, err := NewScanner(cfg).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	scripts := relAll(t, layout.Root, layout.Scripts)
	if want := []string{"Assets/A.cs"}; !equalStrings(scripts, want) {
		t.Errorf("Scripts = %v, want %v", scripts, want)
	}
}

func TestScanExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"Assets/A.cs":             "",
		"Assets/Editor/Tool.cs":   "",
		"Assets/Gen/Generated.cs": "",
		"Assets/Gen/Keep.unity":   "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"Editor/", "*Generated.cs"}

	layout, err := NewScanner(cfg).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	scripts := relAll(t, layout.Root, layout.Scripts)
	if want := []string{"Assets/A.cs"}; !equalStrings(scripts, want) {
		t.Errorf("Scripts = %v, want %v", scripts, want)
	}
	if len(layout.Scenes) != 1 {
		t.Errorf("Scenes = %v, want 1 scene", layout.Scenes)
	}
}

func TestScanWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gitignore":            "Temp\n",
		"Assets/A.cs":           "",
		"Temp/Scratch.cs":       "",
		"Assets/Temp/Nested.cs": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = true

	layout, err := NewScanner(cfg).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	scripts := relAll(t, layout.Root, layout.Scripts)
	if want := []string{"Assets/A.cs"}; !equalStrings(scripts, want) {
		t.Errorf("Scripts = %v, want %v", scripts, want)
	}
}

func TestScanDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gitignore":      "Temp\n",
		"Assets/A.cs":     "",
		"Temp/Scratch.cs": "",
	})

	layout, err := NewScanner(nil).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(layout.Scripts) != 2 {
		t.Errorf("Scripts = %v, want 2 when gitignore is disabled", layout.Scripts)
	}
}

func TestScanGitignoreAboveProject(t *testing.T) {
	repo := t.TempDir()
	writeTree(t, repo, map[string]string{
		".gitignore":                "Game/Assets/Vendor/\n",
		"Game/Assets/A.cs":          "",
		"Game/Assets/Vendor/Lib.cs": "",
	})
	if err := os.Mkdir(filepath.Join(repo, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = true

	layout, err := NewScanner(cfg).Scan(filepath.Join(repo, "Game"))
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	scripts := relAll(t, layout.Root, layout.Scripts)
	if want := []string{"Assets/A.cs"}; !equalStrings(scripts, want) {
		t.Errorf("Scripts = %v, want %v", scripts, want)
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	layout, err := NewScanner(nil).Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(layout.Scenes)+len(layout.Scripts)+len(layout.ScriptMetas) != 0 {
		t.Errorf("Scan() of empty dir = %+v", layout)
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := NewScanner(nil).Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Scan() of a missing root should fail")
	}
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"same", "/proj", "/proj", true},
		{"child", "/proj/Assets/A.cs", "/proj", true},
		{"sibling prefix", "/proj2/A.cs", "/proj", false},
		{"parent", "/", "/proj", false},
		{"dot dot", "/proj/../etc/passwd", "/proj", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWithinRoot(tt.path, tt.root); got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	if got := findGitRoot(nested); got != tmpDir {
		t.Errorf("findGitRoot() = %q, want %q", got, tmpDir)
	}
}

func TestScanWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"Assets/Real.cs": ""})

	if err := os.Symlink(filepath.Join(tmpDir, "Assets", "Real.cs"), filepath.Join(tmpDir, "Assets", "Link.cs")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	layout, err := NewScanner(nil).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(layout.Scripts) != 2 {
		t.Errorf("Scripts = %v, want the file and the in-root link", layout.Scripts)
	}
}

func TestScanWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"Assets/Real.cs": ""})

	if err := os.Symlink("/nonexistent/path/Gone.cs", filepath.Join(tmpDir, "Assets", "Dangling.cs")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	layout, err := NewScanner(nil).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(layout.Scripts) != 1 {
		t.Errorf("Scripts = %v, want only the real file", layout.Scripts)
	}
}

func TestScanWithSymlinkOutsideRoot(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"Outside.cs": ""})

	if err := os.Symlink(filepath.Join(outside, "Outside.cs"), filepath.Join(tmpDir, "Outside.cs")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	if err := os.Symlink(outside, filepath.Join(tmpDir, "linked")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	layout, err := NewScanner(nil).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(layout.Scripts) != 0 {
		t.Errorf("Scan() should not follow symlinks outside the root, got %v", layout.Scripts)
	}
}
