package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/sceneprobe/pkg/config"
)

// Layout lists the assets of a project that take part in an analysis. Each
// list holds absolute paths in sorted order.
type Layout struct {
	Root        string
	Scenes      []string
	Scripts     []string
	ScriptMetas []string
}

// Scanner finds scene, script and script sidecar files in a project.
type Scanner struct {
	config *config.Config

	// patterns from config, matched against paths relative to the project root
	configMatcher gitignore.Matcher

	// .gitignore patterns, matched against paths relative to gitBase
	gitMatcher gitignore.Matcher
	gitBase    string
}

// NewScanner creates a new project scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns prepares the config and .gitignore matchers for root.
func (s *Scanner) loadExcludePatterns(root string) {
	s.configMatcher, s.gitMatcher, s.gitBase = nil, nil, ""

	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.configMatcher = gitignore.NewMatcher(patterns)
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	base := findGitRoot(root)
	if base == "" {
		base = root
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(base), nil)
	if err != nil || len(gitPatterns) == 0 {
		return
	}
	s.gitMatcher = gitignore.NewMatcher(gitPatterns)
	s.gitBase = base
}

// isExcluded checks if path (absolute) matches any exclusion pattern.
func (s *Scanner) isExcluded(root, path string, isDir bool) bool {
	if s.configMatcher != nil {
		if rel, err := filepath.Rel(root, path); err == nil && s.configMatcher.Match(splitPath(rel), isDir) {
			return true
		}
	}
	if s.gitMatcher != nil {
		if rel, err := filepath.Rel(s.gitBase, path); err == nil && s.gitMatcher.Match(splitPath(rel), isDir) {
			return true
		}
	}
	return false
}

func splitPath(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}

// Scan walks root and collects the project's scenes, scripts and script
// sidecars. Extensions are matched case-insensitively. Unreadable entries are
// skipped, as are symlinks that resolve outside root.
func (s *Scanner) Scan(root string) (*Layout, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	layout := &Layout{Root: absRoot}
	metaSuffix := strings.ToLower(s.config.ScriptMetaSuffix())
	sceneExt := strings.ToLower(s.config.Scan.SceneExt)
	scriptExt := strings.ToLower(s.config.Scan.ScriptExt)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			if path == absRoot {
				return err
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, resolvedRoot) {
				return nil
			}
			info, err := os.Stat(resolved)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if s.config.IsExcludedDir(d.Name()) || s.isExcluded(absRoot, path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(absRoot, path, false) {
			return nil
		}

		lower := strings.ToLower(d.Name())
		switch {
		case strings.HasSuffix(lower, metaSuffix):
			layout.ScriptMetas = append(layout.ScriptMetas, path)
		case sceneExt != "" && strings.HasSuffix(lower, sceneExt):
			layout.Scenes = append(layout.Scenes, path)
		case scriptExt != "" && strings.HasSuffix(lower, scriptExt):
			layout.Scripts = append(layout.Scripts, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(layout.Scenes)
	sort.Strings(layout.Scripts)
	sort.Strings(layout.ScriptMetas)
	return layout, nil
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// "/root2" must not match "/root".
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
