// Package report writes analysis results to the output folder.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/panbanda/sceneprobe/pkg/analyzer/usage"
)

// Default report file names.
const (
	DefaultDumpSuffix   = ".unity.dump"
	DefaultUnusedReport = "UnusedScripts.txt"

	// UnusedHeader is the first line of the unused-scripts report.
	UnusedHeader = "Relative Path,GUID"
)

// WriteError reports a failure to create or write an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer places report files in one output folder.
type Writer struct {
	dir          string
	dumpSuffix   string
	unusedReport string
}

// Option is a functional option for configuring Writer.
type Option func(*Writer)

// WithDumpSuffix sets the suffix appended to a scene name to name its dump.
func WithDumpSuffix(suffix string) Option {
	return func(w *Writer) {
		if suffix != "" {
			w.dumpSuffix = suffix
		}
	}
}

// WithUnusedReport sets the file name of the unused-scripts report.
func WithUnusedReport(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.unusedReport = name
		}
	}
}

// NewWriter creates a writer for the output folder dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:          dir,
		dumpSuffix:   DefaultDumpSuffix,
		unusedReport: DefaultUnusedReport,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output folder.
func (w *Writer) Dir() string {
	return w.dir
}

// EnsureDir creates the output folder and its parents if needed.
func (w *Writer) EnsureDir() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return &WriteError{Path: w.dir, Err: err}
	}
	return nil
}

// DumpPath names the dump file of a scene.
func (w *Writer) DumpPath(sceneName string) string {
	return filepath.Join(w.dir, sceneName+w.dumpSuffix)
}

// UnusedPath names the unused-scripts report.
func (w *Writer) UnusedPath() string {
	return filepath.Join(w.dir, w.unusedReport)
}

// WriteHierarchy writes the rendered hierarchy of one scene to its dump file,
// replacing any previous dump, and returns the file path.
func (w *Writer) WriteHierarchy(sceneName string, lines []string) (string, error) {
	path := w.DumpPath(sceneName)
	return path, writeFile(path, func(out io.Writer) error {
		return RenderHierarchy(out, lines)
	})
}

// WriteUnused writes the unused-scripts report and returns its path.
func (w *Writer) WriteUnused(entries []usage.UnusedScript) (string, error) {
	path := w.UnusedPath()
	return path, writeFile(path, func(out io.Writer) error {
		return RenderUnused(out, entries)
	})
}

// RenderHierarchy writes each line followed by a newline, then one blank line.
func RenderHierarchy(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(out, line+"\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(out, "\n")
	return err
}

// RenderUnused writes the report header and one "relative path,guid" line per
// entry. A missing guid leaves the second column empty.
func RenderUnused(out io.Writer, entries []usage.UnusedScript) error {
	if _, err := io.WriteString(out, UnusedHeader+"\n"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(out, "%s,%s\n", e.RelativePath, e.GUID); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	buf := bufio.NewWriter(f)
	if err := render(buf); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
