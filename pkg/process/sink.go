package process

import (
	"bytes"
	"io"
	"strings"
)

// sink drains one output stream of a running process.
type sink interface {
	pump(r io.Reader)
	String() string
	Err() error
}

// lineSink reads one output stream, splits it into lines, forwards each line
// to an optional channel and, unless discard is set, accumulates it. The
// separator is appended after every newline-terminated line; a trailing
// fragment without a newline is accumulated as is, so the default separator
// reproduces the stream exactly.
type lineSink struct {
	sep     string
	discard bool
	lines   chan<- string
	stop    <-chan struct{}
	buf     strings.Builder
	partial []byte
}

func newLineSink(sep string, discard bool, lines chan<- string, stop <-chan struct{}) *lineSink {
	return &lineSink{sep: sep, discard: discard, lines: lines, stop: stop}
}

// pump copies r until EOF or until r is closed underneath it.
func (s *lineSink) pump(r io.Reader) {
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			s.write(chunk[:n])
		}
		if err != nil {
			break
		}
	}
	if len(s.partial) > 0 {
		s.emit(string(s.partial), false)
		s.partial = nil
	}
}

func (s *lineSink) write(p []byte) {
	s.partial = append(s.partial, p...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := string(s.partial[:i])
		s.partial = s.partial[i+1:]
		s.emit(line, true)
	}
	if len(s.partial) == 0 {
		s.partial = nil
	}
}

func (s *lineSink) emit(line string, terminated bool) {
	if !s.discard {
		s.buf.WriteString(line)
		if terminated {
			s.buf.WriteString(s.sep)
		}
	}

	if s.lines == nil {
		return
	}
	select {
	case s.lines <- line:
	case <-s.stop:
	}
}

func (s *lineSink) String() string {
	return s.buf.String()
}

func (s *lineSink) Err() error { return nil }

// writerSink copies a stream to w byte for byte. After the first failed
// write the rest of the stream is drained and dropped so the child never
// blocks on a full pipe.
type writerSink struct {
	w   io.Writer
	err error
}

func (s *writerSink) pump(r io.Reader) {
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 && s.err == nil {
			_, s.err = s.w.Write(chunk[:n])
		}
		if err != nil {
			return
		}
	}
}

func (s *writerSink) String() string { return "" }

func (s *writerSink) Err() error { return s.err }
