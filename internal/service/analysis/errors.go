package analysis

import "errors"

// ErrNotDirectory is reported when a project path names a regular file.
var ErrNotDirectory = errors.New("not a directory")

// ProjectNotFoundError indicates that the project path is missing or is not
// a directory.
type ProjectNotFoundError struct {
	Path string
	Err  error
}

func (e *ProjectNotFoundError) Error() string {
	return "project not found: " + e.Path + ": " + e.Err.Error()
}

func (e *ProjectNotFoundError) Unwrap() error {
	return e.Err
}

// ScanError indicates that the project tree could not be enumerated.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "failed to scan " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
