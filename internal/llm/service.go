// Package llm implements the single-model text-generation service: loading a
// model graph and its tokenizer, greedy autoregressive decoding with per-token
// events, and cooperative mid-generation interruption.
package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"proassistd/pkg/types"
)

// session is the loaded state of the service. The graph, tokenizer, path and
// device always travel together: either the whole session exists or none of
// it does, so "model loaded but tokenizer absent" is unrepresentable.
type session struct {
	graph  Graph
	tok    Tokenizer
	path   string
	device string
}

// Tokenizer is the slice of the tokenizer adapter the engine needs.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int, skipSpecial bool) (string, error)
}

// Service owns at most one loaded model at a time and runs at most one
// generation at a time.
//
// Synchronization is split across two independent primitives:
//   - gate is the state lock: it serializes load pipelines and generation
//     loops, which both need exclusive access to the model graph.
//   - interrupted is a plain atomic so Interrupt never blocks behind a
//     long-running generation holding the gate.
//
// mu only guards the sess pointer so Status can snapshot it without queueing
// behind the gate.
type Service struct {
	gate chan struct{}

	mu   sync.Mutex
	sess *session

	interrupted atomic.Bool
	generating  atomic.Bool

	runtime      Runtime
	baseDir      BaseDirFunc
	maxNewTokens int
	log          zerolog.Logger
	started      time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMaxNewTokens overrides the per-generation token cap.
func WithMaxNewTokens(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxNewTokens = n
		}
	}
}

// New constructs an unloaded Service backed by the given runtime and
// base-directory provider.
func New(rt Runtime, baseDir BaseDirFunc, opts ...Option) *Service {
	s := &Service{
		gate:         make(chan struct{}, 1),
		runtime:      rt,
		baseDir:      baseDir,
		maxNewTokens: defaultMaxNewTokens,
		log:          zerolog.Nop(),
		started:      time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// acquire takes the state lock, respecting context cancellation while queued.
func (s *Service) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() { <-s.gate }

// snapshot reads the current session pointer without touching the gate.
func (s *Service) snapshot() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Interrupt requests the in-flight generation, if any, to stop at the next
// token boundary. It never blocks.
func (s *Service) Interrupt() { s.interrupted.Store(true) }

// Reset clears a pending interrupt without waiting for the next generation's
// own reset.
func (s *Service) Reset() { s.interrupted.Store(false) }

// Status reports a read-only view of the service state.
func (s *Service) Status() types.StatusResponse {
	resp := types.StatusResponse{
		Device:         "cpu",
		Generating:     s.generating.Load(),
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	if sess := s.snapshot(); sess != nil {
		resp.Loaded = true
		resp.ModelPath = sess.path
		resp.Device = sess.device
	}
	return resp
}

// Ready reports whether a model is loaded and generation can proceed.
func (s *Service) Ready() bool { return s.snapshot() != nil }
