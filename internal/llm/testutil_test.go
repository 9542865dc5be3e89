package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fixtureAlphabet enumerates the single-character vocab entries of the test
// tokenizer, in id order starting at id 3. Ġ and Ċ are the byte-level forms
// of space and newline.
const fixtureAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789:.,!?'-ĠĊ"

// fixtureVocab maps vocab entries to ids: 0-2 are reserved control slots, the
// alphabet starts at 3.
func fixtureVocab() map[string]int {
	vocab := map[string]int{"<|pad|>": 0, "<|unused|>": 1, "<|eos|>": 2}
	next := 3
	for _, r := range fixtureAlphabet {
		vocab[string(r)] = next
		next++
	}
	return vocab
}

// fixtureID returns the token id of a single vocab character.
func fixtureID(t *testing.T, ch string) int {
	t.Helper()
	id, ok := fixtureVocab()[ch]
	if !ok {
		t.Fatalf("char %q not in fixture vocab", ch)
	}
	return id
}

// fixtureTokenizerJSON renders the test tokenizer definition. When pad is
// true the document is whitespace-padded past the small-file warning
// threshold.
func fixtureTokenizerJSON(t *testing.T, pad bool) []byte {
	t.Helper()
	doc := map[string]any{
		"model": map[string]any{
			"type":   "BPE",
			"vocab":  fixtureVocab(),
			"merges": []string{},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if pad {
		for len(b) < 2*smallTokenizerBytes {
			b = append(b, ' ')
		}
	} else if len(b) >= smallTokenizerBytes {
		t.Fatalf("unpadded fixture unexpectedly large: %d bytes", len(b))
	}
	return b
}

// writeModelDir creates <dir>/model.onnx plus tokenizer.json and returns the
// model path.
func writeModelDir(t *testing.T, dir string, padTokenizer bool) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	modelPath := filepath.Join(dir, "model.onnx")
	if err := os.WriteFile(modelPath, []byte("fake-onnx-graph"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tokenizer.json"), fixtureTokenizerJSON(t, padTokenizer), 0o644); err != nil {
		t.Fatalf("write tokenizer: %v", err)
	}
	return modelPath
}

// fakeGraph scripts one max-logit token id per forward pass.
type fakeGraph struct {
	vocabSize   int
	pick        func(step, seqLen int) int
	fail        error
	noOutputs   bool
	emptyLogits bool
	runs        int
	closed      bool
	lastShape   []int64
}

func (g *fakeGraph) Run(inputs []NamedTensor) ([]OutputTensor, error) {
	step := g.runs
	g.runs++
	if g.fail != nil {
		return nil, g.fail
	}
	if g.noOutputs {
		return nil, nil
	}
	if len(inputs) != 1 || inputs[0].Name != inputName {
		return nil, fmt.Errorf("unexpected inputs: %+v", inputs)
	}
	if len(inputs[0].Shape) != 2 || inputs[0].Shape[0] != 1 {
		return nil, fmt.Errorf("unexpected input shape: %v", inputs[0].Shape)
	}
	seqLen := len(inputs[0].Data)
	if inputs[0].Shape[1] != int64(seqLen) {
		return nil, fmt.Errorf("shape %v disagrees with data length %d", inputs[0].Shape, seqLen)
	}
	g.lastShape = append([]int64(nil), inputs[0].Shape...)
	if g.emptyLogits {
		return []OutputTensor{{Name: "logits"}}, nil
	}
	logits := make([]float32, seqLen*g.vocabSize)
	logits[(seqLen-1)*g.vocabSize+g.pick(step, seqLen)] = 1
	return []OutputTensor{{
		Name:  "logits",
		Shape: []int64{1, int64(seqLen), int64(g.vocabSize)},
		Data:  logits,
	}}, nil
}

func (g *fakeGraph) Close() error {
	g.closed = true
	return nil
}

// constGraph returns a fakeGraph that always elects the same token id.
func constGraph(id int) *fakeGraph {
	return &fakeGraph{vocabSize: 80, pick: func(int, int) int { return id }}
}

// scriptGraph returns a fakeGraph electing ids in order, then EOS forever.
func scriptGraph(ids ...int) *fakeGraph {
	return &fakeGraph{vocabSize: 80, pick: func(step, _ int) int {
		if step < len(ids) {
			return ids[step]
		}
		return eosTokenID
	}}
}

// fakeRuntime hands out scripted graphs and counts loads.
type fakeRuntime struct {
	next  func(path string, data []byte) (Graph, error)
	loads int
}

func (r *fakeRuntime) LoadGraph(path string, data []byte) (Graph, error) {
	r.loads++
	if r.next == nil {
		return nil, fmt.Errorf("fakeRuntime has no graph to hand out")
	}
	return r.next(path, data)
}

func graphRuntime(g Graph) *fakeRuntime {
	return &fakeRuntime{next: func(string, []byte) (Graph, error) { return g, nil }}
}

// newTestService wires a Service over a temp base dir and the given runtime.
// Model references resolve under <base>/offline-models/.
func newTestService(t *testing.T, rt Runtime) (*Service, string) {
	t.Helper()
	base := t.TempDir()
	svc := New(rt, func() (string, error) { return base, nil })
	return svc, base
}

// loadFixtureModel loads a padded fixture model into svc and returns its
// absolute path.
func loadFixtureModel(t *testing.T, svc *Service, base string) string {
	t.Helper()
	modelPath := writeModelDir(t, filepath.Join(base, modelsSubdir, "m"), true)
	if err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	return modelPath
}

// errorSink fails status or token delivery on demand.
type errorSink struct {
	failStatus bool
	failToken  bool
}

func (s errorSink) Status(StatusEvent) error {
	if s.failStatus {
		return fmt.Errorf("status channel closed")
	}
	return nil
}

func (s errorSink) Token(TokenEvent) error {
	if s.failToken {
		return fmt.Errorf("token channel closed")
	}
	return nil
}
