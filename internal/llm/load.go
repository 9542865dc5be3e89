package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"proassistd/internal/tokenizer"
)

// tokenizerFileName is expected next to the model file.
const tokenizerFileName = "tokenizer.json"

// smallTokenizerBytes is the size below which a tokenizer.json is suspect;
// truncated downloads are usually tiny but not empty.
const smallTokenizerBytes = 1000

// Load resolves ref, reads the model file, loads the adjacent tokenizer and
// atomically installs the new session. On any failure the previously loaded
// session stays in place. Loading the already-loaded path is a no-op that
// only re-emits a ready status.
func (s *Service) Load(ctx context.Context, ref string, sink EventSink) error {
	if sink == nil {
		sink = noopSink{}
	}
	resolved, err := resolveModelPath(ref, s.baseDir)
	if err != nil {
		return err
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if cur := s.snapshot(); cur != nil && cur.path == resolved {
		if err := sink.Status(StatusEvent{Status: StatusReady, Message: "model already loaded", Device: cur.device}); err != nil {
			return eventDeliveryError{cause: err}
		}
		return nil
	}

	start := time.Now()
	if err := s.doLoad(resolved, sink); err != nil {
		loadsTotal.WithLabelValues("error").Inc()
		s.log.Error().Str("path", resolved).Err(err).Msg("model load failed")
		return err
	}
	loadsTotal.WithLabelValues("ok").Inc()
	loadDuration.Observe(time.Since(start).Seconds())
	s.log.Info().Str("path", resolved).Dur("dur", time.Since(start)).Msg("model loaded")
	return nil
}

// doLoad runs the fallible part of the pipeline. The caller holds the gate.
func (s *Service) doLoad(resolved string, sink EventSink) error {
	if err := sink.Status(StatusEvent{Status: StatusLoading, Message: "loading model..."}); err != nil {
		return eventDeliveryError{cause: err}
	}

	providers := executionProviders()
	device := "cpu"
	if len(providers) > 0 {
		device = providers[0]
	}
	if err := sink.Status(StatusEvent{Status: StatusLoading, Message: fmt.Sprintf("using %s execution provider", device)}); err != nil {
		return eventDeliveryError{cause: err}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return modelReadError{path: resolved, cause: err}
	}
	graph, err := s.runtime.LoadGraph(resolved, data)
	if err != nil {
		if IsRuntimeUnavailable(err) {
			return err
		}
		return modelLoadError{path: resolved, cause: err}
	}

	tok, err := s.loadTokenizer(filepath.Dir(resolved), sink)
	if err != nil {
		_ = graph.Close()
		// Surface tokenizer failures on the event channel too; UIs show this
		// message verbatim. Best effort: the call already fails.
		_ = sink.Status(StatusEvent{Status: StatusError, Message: err.Error()})
		return err
	}

	s.mu.Lock()
	old := s.sess
	s.sess = &session{graph: graph, tok: tok, path: resolved, device: device}
	s.mu.Unlock()
	if old != nil {
		_ = old.graph.Close()
	}

	if err := sink.Status(StatusEvent{Status: StatusReady, Message: "model loaded successfully", Device: device}); err != nil {
		return eventDeliveryError{cause: err}
	}
	return nil
}

// loadTokenizer probes and parses tokenizer.json in dir. The tokenizer is
// behaviorally mandatory: every failure here aborts the whole load.
func (s *Service) loadTokenizer(dir string, sink EventSink) (Tokenizer, error) {
	path := filepath.Join(dir, tokenizerFileName)
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tokenizerMissingError{path: path}
		}
		return nil, tokenizerCorruptError{path: path, reason: err.Error()}
	}
	if fi.Size() == 0 {
		return nil, tokenizerCorruptError{path: path, reason: "file is empty"}
	}
	if fi.Size() < smallTokenizerBytes {
		// Warning only; tiny files sometimes parse fine. Best effort.
		_ = sink.Status(StatusEvent{
			Status:  StatusLoading,
			Message: fmt.Sprintf("warning: tokenizer file is very small (%d bytes), it may be corrupted", fi.Size()),
		})
	}
	tok, err := tokenizer.Load(path)
	if err != nil {
		return nil, tokenizerCorruptError{path: path, reason: err.Error()}
	}
	// Best effort, confirmation only.
	_ = sink.Status(StatusEvent{Status: StatusLoading, Message: "tokenizer loaded successfully"})
	return tok, nil
}
