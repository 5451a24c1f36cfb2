package httpx

import (
	"errors"
	"iter"
	"strings"
	"sync/atomic"
)

// ErrStreamConsumed is returned when a stream is drained a second time.
var ErrStreamConsumed = errors.New("stream already consumed")

// Stream is a single-pass producer of body chunks. It cannot be rewound;
// build a new Stream to send the same content again.
type Stream struct {
	seq  iter.Seq[string]
	used atomic.Bool
}

func NewStream(seq iter.Seq[string]) *Stream {
	return &Stream{seq: seq}
}

// StreamOf yields the given chunks in order.
func StreamOf(chunks ...string) *Stream {
	return NewStream(func(yield func(string) bool) {
		for _, c := range chunks {
			if !yield(c) {
				return
			}
		}
	})
}

// Drain feeds every chunk to fn until fn returns false or the producer ends.
func (s *Stream) Drain(fn func(chunk string) bool) error {
	if s == nil || s.seq == nil {
		return nil
	}
	if !s.used.CompareAndSwap(false, true) {
		return ErrStreamConsumed
	}
	for chunk := range s.seq {
		if !fn(chunk) {
			break
		}
	}
	return nil
}

// String materializes the whole stream.
func (s *Stream) String() (string, error) {
	var b strings.Builder
	err := s.Drain(func(chunk string) bool {
		b.WriteString(chunk)
		return true
	})
	return b.String(), err
}

// Consumed reports whether Drain was already called.
func (s *Stream) Consumed() bool { return s != nil && s.used.Load() }
