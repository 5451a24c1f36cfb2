package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"routecore/pkg/logger"
)

// TraceOptions tune the trace writer. Zero fields take defaults.
type TraceOptions struct {
	BufferSize    int
	QueueCap      int
	FlushInterval time.Duration
	MaxFileSize   int64
}

func (o TraceOptions) withDefaults() TraceOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 64 << 10
	}
	if o.QueueCap <= 0 {
		o.QueueCap = 1024
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = time.Second
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 16 << 20
	}
	return o
}

// Span is one marked phase of a trace.
type Span struct {
	Name string  `json:"name"`
	MS   float64 `json:"ms"`
}

// Trace times one operation, such as dispatching a request, as a sequence
// of spans. A nil *Trace is valid and records nothing.
type Trace struct {
	Op      string            `json:"op"`
	Start   time.Time         `json:"start"`
	Spans   []Span            `json:"spans"`
	TotalMS float64           `json:"total_ms"`
	Attrs   map[string]string `json:"attrs,omitempty"`

	last time.Time
	w    *TraceWriter
}

// TraceWriter appends finished traces as json lines to <dir>/<op>.jsonl.
// Files over the size cap are truncated on the next flush.
type TraceWriter struct {
	dir     string
	opts    TraceOptions
	queue   chan *Trace
	dropped atomic.Int64

	mu    sync.Mutex
	sinks map[string]*sink

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type sink struct {
	f *os.File
	w *bufio.Writer
}

var global atomic.Pointer[TraceWriter]

// Init installs the process-wide trace writer, replacing any previous one.
func Init(dir string, opts TraceOptions) error {
	w, err := NewTraceWriter(dir, opts)
	if err != nil {
		return err
	}
	if old := global.Swap(w); old != nil {
		old.Close()
	}
	return nil
}

// Track starts a trace on the process-wide writer. Without Init the trace
// still times spans but is never written.
func Track(op string) *Trace {
	return global.Load().Track(op)
}

// Close flushes and stops the process-wide writer.
func Close() {
	if w := global.Swap(nil); w != nil {
		w.Close()
	}
}

// NewTraceWriter creates dir and starts the background writer.
func NewTraceWriter(dir string, opts TraceOptions) (*TraceWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	w := &TraceWriter{
		dir:   dir,
		opts:  opts,
		queue: make(chan *Trace, opts.QueueCap),
		sinks: make(map[string]*sink),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Track starts a trace bound to w. w may be nil.
func (w *TraceWriter) Track(op string) *Trace {
	now := time.Now()
	return &Trace{Op: op, Start: now, last: now, w: w}
}

// Dropped counts traces discarded because the queue was full.
func (w *TraceWriter) Dropped() int64 { return w.dropped.Load() }

// Mark closes the current span under name.
func (tr *Trace) Mark(name string) {
	if tr == nil {
		return
	}
	now := time.Now()
	tr.Spans = append(tr.Spans, Span{Name: name, MS: ms(now.Sub(tr.last))})
	tr.last = now
}

// Set attaches a string attribute, e.g. the matched handler.
func (tr *Trace) Set(key, value string) {
	if tr == nil {
		return
	}
	if tr.Attrs == nil {
		tr.Attrs = make(map[string]string, 4)
	}
	tr.Attrs[key] = value
}

// Finish queues the trace for writing. Time after the last Mark becomes an
// "unmarked" span. Later calls do nothing.
func (tr *Trace) Finish() {
	if tr == nil || tr.w == nil {
		return
	}
	w := tr.w
	tr.w = nil
	now := time.Now()
	tr.TotalMS = ms(now.Sub(tr.Start))
	if rest := now.Sub(tr.last); rest > time.Microsecond {
		tr.Spans = append(tr.Spans, Span{Name: "unmarked", MS: ms(rest)})
	}
	select {
	case w.queue <- tr:
	default:
		w.dropped.Add(1)
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (w *TraceWriter) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case tr := <-w.queue:
			w.append(tr)
		case <-ticker.C:
			w.flush(true)
		case <-w.stop:
			for {
				select {
				case tr := <-w.queue:
					w.append(tr)
					continue
				default:
				}
				break
			}
			w.flush(false)
			w.mu.Lock()
			for _, s := range w.sinks {
				_ = s.f.Sync()
				_ = s.f.Close()
			}
			w.sinks = nil
			w.mu.Unlock()
			return
		}
	}
}

func (w *TraceWriter) append(tr *Trace) {
	data, err := json.Marshal(tr)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.sinkFor(tr.Op)
	if s == nil {
		return
	}
	_, _ = s.w.Write(append(data, '\n'))
}

// flush writes buffered lines; with capCheck it truncates oversized files.
func (w *TraceWriter) flush(capCheck bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for op, s := range w.sinks {
		_ = s.w.Flush()
		if !capCheck {
			continue
		}
		fi, err := s.f.Stat()
		if err != nil || fi.Size() <= w.opts.MaxFileSize {
			continue
		}
		if err := s.f.Truncate(0); err != nil {
			logger.Error("telemetry_truncate_failed", "op", op, "error", err)
			continue
		}
		_, _ = s.f.Seek(0, 0)
		logger.Warn("telemetry_file_truncated", "op", op, "max_bytes", w.opts.MaxFileSize)
	}
}

// sinkFor must be called with mu held.
func (w *TraceWriter) sinkFor(op string) *sink {
	if s, ok := w.sinks[op]; ok {
		return s
	}
	path := filepath.Join(w.dir, op+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Error("telemetry_open_failed", "path", path, "error", err)
		return nil
	}
	s := &sink{f: f, w: bufio.NewWriterSize(f, w.opts.BufferSize)}
	w.sinks[op] = s
	return s
}

// Close drains the queue, flushes, and closes every file. Safe to call
// more than once.
func (w *TraceWriter) Close() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
	})
}
