// Package diagnostics delivers the periodic odometry status lines.
package diagnostics

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

// Reporter receives status reports.  Report must not block the caller for long; it is called
// from the control loop.
type Reporter interface {
	Report(s odometry.Status)
}

type ReporterFunc func(s odometry.Status)

func (f ReporterFunc) Report(s odometry.Status) {
	f(s)
}

// Format renders a status as the two text lines sent to every sink.
func Format(s odometry.Status) string {
	return fmt.Sprintf("Distance: %.2f mm, Speed: %.2f mm/s\nLeft Dir: %d, Right Dir: %d\n",
		s.DistanceMM, s.SpeedMMPerSec, s.Dir[odometry.LeftWheel], s.Dir[odometry.RightWheel])
}

// WriterReporter writes formatted status lines to an io.Writer.  Write errors are dropped.
type WriterReporter struct {
	W io.Writer
}

func (w *WriterReporter) Report(s odometry.Status) {
	_, _ = io.WriteString(w.W, Format(s))
}

// Fanout queues reports and delivers them to its sinks from its own goroutine, so a slow sink
// (a UART, the LCD) never holds up the caller.  When the queue is full, reports are dropped.
type Fanout struct {
	sinks   []Reporter
	queue   chan odometry.Status
	dropped uint64
}

func NewFanout(queueLen int, sinks ...Reporter) *Fanout {
	return &Fanout{
		sinks: sinks,
		queue: make(chan odometry.Status, queueLen),
	}
}

func (f *Fanout) Report(s odometry.Status) {
	select {
	case f.queue <- s:
	default:
		atomic.AddUint64(&f.dropped, 1)
	}
}

// Dropped returns the number of reports discarded because the queue was full.
func (f *Fanout) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}

// Run delivers queued reports until the context is cancelled.
func (f *Fanout) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-f.queue:
			for _, sink := range f.sinks {
				sink.Report(s)
			}
		}
	}
}
