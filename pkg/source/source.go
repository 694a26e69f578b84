package source

import (
	"bufio"
	"bytes"
	"os"

	"github.com/spf13/afero"
)

// maxLineSize bounds a single line in a serialized asset. Scene documents can
// carry long inline arrays on one line.
const maxLineSize = 16 * 1024 * 1024

// ContentSource provides read-only access to project files.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)

	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists implements ContentSource.
func (f *FilesystemSource) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// AferoSource reads files from an afero filesystem.
type AferoSource struct {
	fs afero.Fs
}

// NewAfero creates a source backed by fs.
func NewAfero(fs afero.Fs) *AferoSource {
	return &AferoSource{fs: fs}
}

// Read implements ContentSource.
func (a *AferoSource) Read(path string) ([]byte, error) {
	return afero.ReadFile(a.fs, path)
}

// Exists implements ContentSource.
func (a *AferoSource) Exists(path string) bool {
	info, err := a.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadLines reads a file from src and splits it into lines with line
// terminators ("\n" or "\r\n") removed.
func ReadLines(src ContentSource, path string) ([]string, error) {
	content, err := src.Read(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(content)
}

// SplitLines splits content into lines with line terminators removed.
func SplitLines(content []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
