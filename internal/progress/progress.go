package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar that follows the stages of an analysis run.
type Tracker struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	label  string
	stage  string
	writer io.Writer
}

// NewTracker creates a progress bar writing to stderr.
func NewTracker(label string) *Tracker {
	return NewTrackerTo(os.Stderr, label)
}

// NewTrackerTo creates a progress bar writing to w.
func NewTrackerTo(w io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, writer: w}
}

// Update moves the bar to current/total, relabelling it when the stage changes.
// Its signature matches analyzer.ProgressFunc. Safe for concurrent use.
func (t *Tracker) Update(stage string, current, total int, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stage != t.stage {
		t.stage = stage
		t.bar.Reset()
		t.bar.ChangeMax(total)
		t.bar.Describe(fmt.Sprintf("%s %s", t.label, stage))
	}
	_ = t.bar.Set(current)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.writer, "  %s error: %v\n", t.label, err)
}
