package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eunmann/s3-cost-report/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// paceWindow bounds how many recent per-file durations feed the ETA.
const paceWindow = 8

// ScanTracker follows a fixed set of inventory data files through a
// concurrent scan: files finished, objects and bytes seen so far, and
// an ETA derived from the recent per-file pace. Safe for concurrent
// use by scan workers.
type ScanTracker struct {
	files   int64
	done    atomic.Int64
	objects atomic.Uint64
	bytes   atomic.Uint64
	started time.Time

	mu   sync.Mutex
	pace []time.Duration
}

// NewScanTracker starts tracking a scan over the given number of files.
func NewScanTracker(files int) *ScanTracker {
	return &ScanTracker{files: int64(files), started: time.Now()}
}

// Record notes one finished file and what it contributed.
func (t *ScanTracker) Record(objects, bytes uint64, elapsed time.Duration) {
	t.done.Add(1)
	t.objects.Add(objects)
	t.bytes.Add(bytes)

	t.mu.Lock()
	if len(t.pace) == paceWindow {
		copy(t.pace, t.pace[1:])
		t.pace = t.pace[:paceWindow-1]
	}
	t.pace = append(t.pace, elapsed)
	t.mu.Unlock()
}

// Done returns how many files have finished.
func (t *ScanTracker) Done() int64 { return t.done.Load() }

// Files returns the total number of files being tracked.
func (t *ScanTracker) Files() int64 { return t.files }

// Objects returns the objects seen across finished files.
func (t *ScanTracker) Objects() uint64 { return t.objects.Load() }

// Bytes returns the bytes seen across finished files.
func (t *ScanTracker) Bytes() uint64 { return t.bytes.Load() }

// Pct returns scan completion as a percentage. An empty scan is done.
func (t *ScanTracker) Pct() float64 {
	if t.files == 0 {
		return 100
	}
	return float64(t.done.Load()) * 100 / float64(t.files)
}

// ETA estimates time to finish the remaining files. It averages the
// last few per-file durations; before any file finishes it returns 0.
func (t *ScanTracker) ETA() time.Duration {
	done := t.done.Load()
	left := t.files - done
	if done == 0 || left <= 0 {
		return 0
	}

	t.mu.Lock()
	var sum time.Duration
	for _, d := range t.pace {
		sum += d
	}
	n := len(t.pace)
	t.mu.Unlock()

	if n == 0 {
		return time.Since(t.started) / time.Duration(done) * time.Duration(left)
	}
	return sum / time.Duration(n) * time.Duration(left)
}

// Elapsed returns time since tracking started.
func (t *ScanTracker) Elapsed() time.Duration {
	return time.Since(t.started)
}

// Event builds one structured completion record. Pretty mode adds
// human-readable companion fields (suffix _h) next to the raw numbers.
type Event struct {
	e       *zerolog.Event
	elapsed time.Duration
}

func newEvent(log zerolog.Logger, level zerolog.Level, kind, phase string, elapsed time.Duration) *Event {
	e := log.WithLevel(level).
		Str("event", kind).
		Str("phase", phase).
		Int64("duration_ms", elapsed.Milliseconds())
	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(elapsed))
	}
	return &Event{e: e, elapsed: elapsed}
}

// TableDone starts an info event for one fully ingested table.
func TableDone(log zerolog.Logger, phase string, elapsed time.Duration) *Event {
	return newEvent(log, zerolog.InfoLevel, "table_done", phase, elapsed)
}

// FileDone starts a debug event for one downloaded or scanned data
// file. Debug keeps per-file noise out of default-level runs.
func FileDone(log zerolog.Logger, phase string, elapsed time.Duration) *Event {
	return newEvent(log, zerolog.DebugLevel, "file_done", phase, elapsed)
}

// PhaseDone starts an info event for a finished pipeline phase.
func PhaseDone(log zerolog.Logger, phase string, elapsed time.Duration) *Event {
	return newEvent(log, zerolog.InfoLevel, "phase_done", phase, elapsed)
}

// Str adds a string field.
func (ev *Event) Str(key, val string) *Event {
	ev.e = ev.e.Str(key, val)
	return ev
}

// Int adds an int field.
func (ev *Event) Int(key string, n int) *Event {
	ev.e = ev.e.Int(key, n)
	return ev
}

// Objects adds an object count.
func (ev *Event) Objects(n uint64) *Event {
	ev.e = ev.e.Uint64("objects", n)
	if IsPrettyMode() {
		ev.e = ev.e.Str("objects_h", humanfmt.Count(n))
	}
	return ev
}

// Bytes adds a byte count.
func (ev *Event) Bytes(n uint64) *Event {
	ev.e = ev.e.Uint64("bytes", n)
	if IsPrettyMode() {
		ev.e = ev.e.Str("bytes_h", humanfmt.Bytes(n))
	}
	return ev
}

// Rows adds a result row count.
func (ev *Event) Rows(n uint64) *Event {
	ev.e = ev.e.Uint64("rows", n)
	if IsPrettyMode() {
		ev.e = ev.e.Str("rows_h", humanfmt.Count(n))
	}
	return ev
}

// Rate adds the byte rate over the event's elapsed time. Zero elapsed
// has no rate and adds nothing.
func (ev *Event) Rate(bytes uint64) *Event {
	if ev.elapsed <= 0 {
		return ev
	}
	ev.e = ev.e.Float64("bytes_per_sec", float64(bytes)/ev.elapsed.Seconds())
	if IsPrettyMode() {
		ev.e = ev.e.Str("rate_h", humanfmt.Rate(bytes, ev.elapsed))
	}
	return ev
}

// Progress adds the tracker's position: files done of total, percent,
// and the ETA when one is available.
func (ev *Event) Progress(t *ScanTracker) *Event {
	ev.e = ev.e.
		Int64("files_done", t.Done()).
		Int64("files_total", t.Files()).
		Float64("progress_pct", t.Pct())
	if eta := t.ETA(); eta > 0 {
		ev.e = ev.e.Int64("eta_ms", eta.Milliseconds())
		if IsPrettyMode() {
			ev.e = ev.e.Str("eta_h", humanfmt.Duration(eta))
		}
	}
	return ev
}

// Msg emits the event.
func (ev *Event) Msg(msg string) {
	ev.e.Msg(msg)
}
