package analyzer

import (
	"context"
	"sync"
)

// ProgressFunc is called to report analysis progress.
// stage names the running phase, current is the number of items processed
// in that phase, total is the phase size and path is the item just finished.
type ProgressFunc func(stage string, current, total int, path string)

// Tracker tracks progress through the phases of an analysis run.
// It is safe for concurrent use from multiple goroutines.
type Tracker struct {
	mu       sync.Mutex
	stage    string
	total    int
	current  int
	callback ProgressFunc
}

// NewTracker creates a new progress tracker with the given callback.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Stage starts a new phase with a known number of items and resets the count.
func (t *Tracker) Stage(name string, total int) {
	t.mu.Lock()
	t.stage = name
	t.total = total
	t.current = 0
	t.mu.Unlock()
}

// Tick marks one item of the current phase as completed.
func (t *Tracker) Tick(path string) {
	t.mu.Lock()
	t.current++
	stage, current, total := t.stage, t.current, t.total
	t.mu.Unlock()

	if t.callback != nil {
		t.callback(stage, current, total, path)
	}
}

// Current returns the progress count of the current phase.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Total returns the size of the current phase.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// StageName returns the name of the current phase.
func (t *Tracker) StageName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context.
// Returns nil if no tracker was set.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}

// StartStage begins a phase on the context's tracker, if any, and returns a
// tick function that is always safe to call.
func StartStage(ctx context.Context, name string, total int) func(path string) {
	t := TrackerFromContext(ctx)
	if t == nil {
		return func(string) {}
	}
	t.Stage(name, total)
	return t.Tick
}
