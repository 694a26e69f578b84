// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	out := make([]ProcessingError, len(e.Errors))
	copy(out, e.Errors)
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// The work is I/O bound, so the CPUs are oversubscribed.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed, successfully or not.
type ProgressFunc func(path string)

// ForEachFile processes files in parallel with up to maxWorkers goroutines
// (<= 0 means 2x NumCPU). Successful results are returned in the order of
// files regardless of completion order; failed files are left out of the
// results and reported in the returned ProcessingErrors, which is nil when
// every file succeeded. Files not started before ctx is cancelled are
// reported with the context error.
func ForEachFile[T any](ctx context.Context, files []string, maxWorkers int, fn func(string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if onProgress != nil {
					onProgress(path)
				}
			}()

			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return nil
			default:
			}

			result, err := fn(path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}

			// Each goroutine owns slot i.
			slots[i] = result
			ok[i] = true
			return nil
		})
	}
	_ = p.Wait()

	results := make([]T, 0, len(files))
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
