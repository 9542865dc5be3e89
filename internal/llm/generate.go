package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"proassistd/pkg/types"
)

const (
	// defaultMaxNewTokens is the hard bound on a single generation; there is
	// no timeout, so this is the only built-in termination guarantee.
	defaultMaxNewTokens = 1024

	// eosTokenID and padTokenID follow the Llama-family convention. They are
	// not read from tokenizer metadata, so models with different reserved ids
	// will never hit the stop condition before the token cap.
	eosTokenID = 2
	padTokenID = 0

	// inputName is the graph input the token sequence is fed under.
	inputName = "input_ids"
)

// Generate runs one greedy autoregressive generation. When messages is empty
// the raw prompt is wrapped as a single user turn. An interrupt ends the loop
// early and the partial text is returned as a success.
func (s *Service) Generate(ctx context.Context, prompt string, messages []types.ChatMessage, sink EventSink) (string, error) {
	if sink == nil {
		sink = noopSink{}
	}
	s.interrupted.Store(false)

	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	sess := s.snapshot()
	if sess == nil {
		return "", modelNotLoadedError{}
	}
	if sess.tok == nil {
		// Unreachable by construction (a session always carries a tokenizer),
		// kept as a defensive mirror of the load invariant.
		return "", tokenizerUnavailableError{}
	}

	if err := sink.Status(StatusEvent{Status: StatusStart, Message: "starting generation..."}); err != nil {
		return "", eventDeliveryError{cause: err}
	}

	if len(messages) == 0 {
		messages = []types.ChatMessage{{Role: "user", Content: prompt}}
	}
	formatted := formatMessages(messages)

	text, err := s.run(sess, formatted, sink)
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		// Best effort: the call already fails with the same message.
		_ = sink.Status(StatusEvent{Status: StatusError, Message: err.Error()})
		return "", err
	}

	if err := sink.Status(StatusEvent{Status: StatusComplete, Message: "generation complete"}); err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		return "", eventDeliveryError{cause: err}
	}
	generationsTotal.WithLabelValues("ok").Inc()
	return text, nil
}

// run encodes the prompt, drives the decode loop with the sink as the token
// consumer and bulk-decodes the final answer.
func (s *Service) run(sess *session, formatted string, sink EventSink) (string, error) {
	genID := uuid.NewString()

	promptIDs, err := sess.tok.Encode(formatted)
	if err != nil {
		return "", tokenizeError{cause: err}
	}
	s.log.Debug().Str("gen_id", genID).Int("prompt_tokens", len(promptIDs)).Msg("generation start")

	s.generating.Store(true)
	defer s.generating.Store(false)

	start := time.Now()
	generated, err := s.decodeLoop(sess, promptIDs, func(tokenText string, tps float64, n int) error {
		if err := sink.Token(TokenEvent{Token: tokenText, TPS: tps, NumTokens: n}); err != nil {
			return eventDeliveryError{cause: err}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	tokensGenerated.Add(float64(len(generated)))
	if elapsed := time.Since(start).Seconds(); elapsed > 0 && len(generated) > 0 {
		generationTPS.Observe(float64(len(generated)) / elapsed)
	}
	s.log.Debug().
		Str("gen_id", genID).
		Int("tokens", len(generated)).
		Dur("dur", time.Since(start)).
		Msg("generation done")

	// The authoritative answer is the bulk decode of the whole sequence;
	// per-token decodes can disagree on multi-token merges.
	text, err := sess.tok.Decode(generated, true)
	if err != nil {
		return "", tokenizeError{cause: err}
	}
	return text, nil
}

// decodeLoop performs greedy argmax decoding, reporting each produced token
// through onToken. The interrupt flag is observed only between iterations,
// never mid-forward-pass, and ends the loop without error.
func (s *Service) decodeLoop(sess *session, promptIDs []int, onToken func(text string, tps float64, n int) error) ([]int, error) {
	input := make([]int64, len(promptIDs))
	for i, id := range promptIDs {
		input[i] = int64(id)
	}
	var generated []int
	start := time.Now()

	for i := 0; i < s.maxNewTokens; i++ {
		if s.interrupted.Load() {
			break
		}

		outputs, err := sess.graph.Run([]NamedTensor{{
			Name:  inputName,
			Shape: []int64{1, int64(len(input))},
			Data:  input,
		}})
		if err != nil {
			return nil, inferenceError{cause: err}
		}
		if len(outputs) == 0 {
			return nil, logitsExtractionError{reason: "model produced no outputs"}
		}
		logits := outputs[0].Data
		if len(logits) == 0 {
			return nil, logitsExtractionError{reason: "first output tensor is empty"}
		}

		// Logits are [1, seqLen, vocab] flattened; keep only the last row.
		seqLen := len(input)
		vocab := len(logits) / seqLen
		row := logits[(seqLen-1)*vocab : seqLen*vocab]
		next, err := argMax(row)
		if err != nil {
			return nil, err
		}

		if next == eosTokenID || next == padTokenID {
			break
		}

		generated = append(generated, next)
		input = append(input, int64(next))

		tokenText, err := sess.tok.Decode([]int{next}, true)
		if err != nil {
			return nil, tokenizeError{cause: err}
		}
		elapsed := time.Since(start).Seconds()
		tps := 0.0
		if elapsed > 0 {
			tps = float64(len(generated)) / elapsed
		}
		if err := onToken(tokenText, tps, len(generated)); err != nil {
			return nil, err
		}
	}
	return generated, nil
}

// argMax returns the index of the maximum value; ties go to the first
// occurrence so decoding stays deterministic.
func argMax(row []float32) (int, error) {
	if len(row) == 0 {
		return 0, selectionError{reason: "empty logits row"}
	}
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best, nil
}

// formatMessages flattens a conversation into the plain transcript prompt the
// offline models were validated against. Order is preserved, nothing is
// merged or reordered.
func formatMessages(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "system":
			b.WriteString("System: ")
		case "user":
			b.WriteString("User: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			b.WriteString(m.Role)
			b.WriteString(": ")
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
