package httpapi

import (
	"encoding/json"
	"io"

	"proassistd/internal/llm"
)

// streamSink delivers engine events to the client as NDJSON lines, flushing
// after every line so tokens arrive as they are produced.
type streamSink struct {
	w     io.Writer
	flush func()
	wrote bool
}

func newStreamSink(w io.Writer, flush func()) *streamSink {
	return &streamSink{w: w, flush: flush}
}

func (s *streamSink) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.wrote = true
	if s.flush != nil {
		s.flush()
	}
	return nil
}

func (s *streamSink) Status(e llm.StatusEvent) error { return s.writeLine(e) }

func (s *streamSink) Token(e llm.TokenEvent) error { return s.writeLine(e) }

// done terminates a successful stream. content is omitted for load streams.
func (s *streamSink) done(content *string) error {
	line := map[string]any{"done": true}
	if content != nil {
		line["content"] = *content
	}
	return s.writeLine(line)
}

// fail reports an error on an already-started stream, where HTTP status
// headers have long been sent.
func (s *streamSink) fail(status int, msg string) {
	_ = s.writeLine(map[string]any{"error": msg, "code": status})
}
