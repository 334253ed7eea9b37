package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// BatchUI renders progress for a batch of downloads using mpb. On a
// terminal each item gets a bar that is removed on completion; without a
// terminal it falls back to plain per-item text lines.
type BatchUI struct {
	progress   *mpb.Progress
	isTerminal bool
	totalItems int
	completed  int32
}

// ItemBar tracks progress for a single item in the batch.
type ItemBar struct {
	bar       *mpb.Bar
	ui        *BatchUI
	index     int
	name      string
	size      int64
	startTime time.Time
	current   int64
	lastTick  time.Time
}

// NewBatchUI creates a batch UI for the given number of items.
func NewBatchUI(totalItems int) *BatchUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &BatchUI{
		progress:   p,
		isTerminal: isTerminal,
		totalItems: totalItems,
	}
}

// AddItem creates a progress bar for one item. A size of zero renders a
// spinner-style bar driven by Tick calls.
func (u *BatchUI) AddItem(index int, name string, size int64) *ItemBar {
	ib := &ItemBar{
		ui:        u,
		index:     index,
		name:      name,
		size:      size,
		startTime: time.Now(),
		lastTick:  time.Now(),
	}

	if u.isTerminal {
		ib.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(s decor.Statistics) string {
					if u.totalItems > 0 {
						return fmt.Sprintf("[%d/%d] %s", ib.index, u.totalItems, truncateName(ib.name, 40))
					}
					return fmt.Sprintf("[%d] %s", ib.index, truncateName(ib.name, 40))
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		if u.totalItems > 0 {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", index, u.totalItems, name)
		} else {
			fmt.Fprintf(os.Stderr, "[%d] %s\n", index, name)
		}
	}

	return ib
}

// ItemReporter adapts one batch item to the Reporter interface. The bar is
// created lazily on Start because transfer sizes are only known once the
// response headers arrive.
type ItemReporter struct {
	ui    *BatchUI
	index int
	name  string
	bar   *ItemBar
}

// NewItemReporter creates a reporter for the index-th item. An empty name
// is filled from the Start description.
func (u *BatchUI) NewItemReporter(index int, name string) *ItemReporter {
	return &ItemReporter{ui: u, index: index, name: name}
}

// Start creates the item bar.
func (r *ItemReporter) Start(total int64, description string) {
	if r.name == "" {
		r.name = description
	}
	if total < 0 {
		total = 0
	}
	r.bar = r.ui.AddItem(r.index, r.name, total)
}

// Update advances the bar.
func (r *ItemReporter) Update(current int64) {
	if r.bar != nil {
		r.bar.Tick(current)
	}
}

// Finish completes the bar successfully.
func (r *ItemReporter) Finish() {
	if r.bar != nil {
		r.bar.Complete(nil)
		r.bar = nil
	}
}

// Error completes the bar as failed.
func (r *ItemReporter) Error(err error) {
	if r.bar != nil {
		r.bar.Complete(err)
		r.bar = nil
	}
}

// SetDescription renames the item for subsequent bars.
func (r *ItemReporter) SetDescription(desc string) {
	r.name = desc
}

// Tick advances the bar to current bytes, feeding elapsed time into the
// EWMA speed decorator.
func (b *ItemBar) Tick(current int64) {
	if b.bar == nil {
		return
	}
	now := time.Now()
	delta := current - b.current
	b.bar.EwmaIncrBy(int(delta), now.Sub(b.lastTick))
	b.current = current
	b.lastTick = now
}

// Complete marks the item finished and prints a one-line summary above the
// remaining bars.
func (b *ItemBar) Complete(err error) {
	elapsed := time.Since(b.startTime).Round(time.Second)

	var msg string
	if err == nil {
		if b.bar != nil {
			b.bar.SetCurrent(b.size)
			b.bar.SetTotal(b.size, true)
		}
		msg = fmt.Sprintf("✓ %s (%s)\n", b.name, elapsed)
	} else {
		if b.bar != nil {
			b.bar.Abort(true)
		}
		msg = fmt.Sprintf("✗ %s: %v\n", b.name, err)
	}

	// Writing through mpb avoids corrupting the bars mid-redraw.
	if b.ui.isTerminal && b.ui.progress != nil {
		b.ui.progress.Write([]byte(msg))
	} else {
		fmt.Fprint(os.Stderr, msg)
	}

	atomic.AddInt32(&b.ui.completed, 1)
}

// Wait blocks until all bars are finished rendering.
func (u *BatchUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns a writer that safely prints above the progress bars.
func (u *BatchUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// Completed returns the number of completed items.
func (u *BatchUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal reports whether output goes to a terminal.
func (u *BatchUI) IsTerminal() bool {
	return u.isTerminal
}

func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	// Keep the tail; accession suffixes are the distinguishing part.
	return "…" + name[len(name)-max+1:]
}
