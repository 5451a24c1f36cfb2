// Package logger holds the process-wide slog logger. The helpers are no-ops
// until Init or InitWriter runs, so library code may log unconditionally.
package logger

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var Log *slog.Logger

// Options select level, sink and format. Empty fields fall back to
// ROUTECORE_LOG_LEVEL, ROUTECORE_LOG_SINK and ROUTECORE_LOG_FORMAT.
type Options struct {
	Level string
	// Sink is "stdout", "stderr" or "file:<path>".
	Sink string
	// Format is "text" or "json".
	Format string
}

func (o Options) withEnv() Options {
	if strings.TrimSpace(o.Level) == "" {
		o.Level = os.Getenv("ROUTECORE_LOG_LEVEL")
	}
	if strings.TrimSpace(o.Sink) == "" {
		o.Sink = os.Getenv("ROUTECORE_LOG_SINK")
	}
	if strings.TrimSpace(o.Format) == "" {
		o.Format = os.Getenv("ROUTECORE_LOG_FORMAT")
	}
	return o
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// asyncSink decouples callers from sink I/O. Lines are dropped, and
// counted, when the queue is full.
type asyncSink struct {
	ch      chan []byte
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func (a *asyncSink) Write(p []byte) (int, error) {
	select {
	case a.ch <- append([]byte(nil), p...):
	default:
		a.dropped.Add(1)
	}
	return len(p), nil
}

func (a *asyncSink) run(out io.Writer, closer io.Closer) {
	defer close(a.done)
	buf := bufio.NewWriterSize(out, 8192)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case b := <-a.ch:
			_, _ = buf.Write(b)
		case <-ticker.C:
			_ = buf.Flush()
		case <-a.stop:
			for drained := false; !drained; {
				select {
				case b := <-a.ch:
					_, _ = buf.Write(b)
				default:
					drained = true
				}
			}
			_ = buf.Flush()
			if closer != nil {
				_ = closer.Close()
			}
			return
		}
	}
}

func (a *asyncSink) close() {
	a.once.Do(func() {
		close(a.stop)
		<-a.done
	})
}

var current atomic.Pointer[asyncSink]

func openSink(sink string) (io.Writer, io.Closer) {
	switch {
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
			return os.Stdout, nil
		}
		return f, f
	case sink == "stderr":
		return os.Stderr, nil
	default:
		return os.Stdout, nil
	}
}

// Init installs the global logger behind an async buffered sink, replacing
// and flushing any previous one.
func Init(opts Options) {
	opts = opts.withEnv()
	out, closer := openSink(strings.TrimSpace(opts.Sink))
	a := &asyncSink{
		ch:   make(chan []byte, 10000),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go a.run(out, closer)
	Log = slog.New(newHandler(a, opts.Level, opts.Format))
	if old := current.Swap(a); old != nil {
		old.close()
	}
}

// InitWriter installs a synchronous text logger writing to w. Used by tests
// and the CLI, where buffering gets in the way.
func InitWriter(w io.Writer, level string) {
	Log = slog.New(newHandler(w, level, "text"))
}

// Sync flushes and stops the async sink, if any.
func Sync() {
	if a := current.Swap(nil); a != nil {
		a.close()
	}
}

// Dropped reports how many lines the async sink discarded.
func Dropped() int64 {
	if a := current.Load(); a != nil {
		return a.dropped.Load()
	}
	return 0
}

func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
