package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSuccessEventSequence(t *testing.T) {
	g := constGraph(eosTokenID)
	rt := graphRuntime(g)
	svc, base := newTestService(t, rt)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "m"), true)

	sink := NewMemorySink()
	if err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), sink); err != nil {
		t.Fatalf("load: %v", err)
	}
	statuses := sink.Statuses()
	want := []string{StatusLoading, StatusLoading, StatusLoading, StatusReady}
	if len(statuses) != len(want) {
		t.Fatalf("expected %d statuses, got %+v", len(want), statuses)
	}
	for i, st := range want {
		if statuses[i].Status != st {
			t.Fatalf("status %d: expected %s, got %+v", i, st, statuses[i])
		}
	}
	if statuses[len(statuses)-1].Device != "cpu" {
		t.Fatalf("ready event should carry device, got %+v", statuses[len(statuses)-1])
	}
	if rt.loads != 1 {
		t.Fatalf("expected 1 runtime load, got %d", rt.loads)
	}
	if !svc.Ready() {
		t.Fatalf("expected service ready")
	}
}

func TestLoadIdempotentReload(t *testing.T) {
	rt := graphRuntime(constGraph(eosTokenID))
	svc, base := newTestService(t, rt)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "m"), true)
	ref := filepath.Join("m", "model.onnx")

	if err := svc.Load(context.Background(), ref, nil); err != nil {
		t.Fatalf("first load: %v", err)
	}
	sink := NewMemorySink()
	if err := svc.Load(context.Background(), ref, sink); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if rt.loads != 1 {
		t.Fatalf("second load must not hit the runtime, loads=%d", rt.loads)
	}
	statuses := sink.Statuses()
	if len(statuses) != 1 || statuses[0].Status != StatusReady {
		t.Fatalf("expected exactly one ready status, got %+v", statuses)
	}
	if statuses[0].Device != "cpu" {
		t.Fatalf("ready status should include device, got %+v", statuses[0])
	}
}

func TestLoadReplacesPreviousModel(t *testing.T) {
	g1 := constGraph(eosTokenID)
	g2 := constGraph(eosTokenID)
	graphs := []Graph{g1, g2}
	rt := &fakeRuntime{next: func(string, []byte) (Graph, error) {
		g := graphs[0]
		graphs = graphs[1:]
		return g, nil
	}}
	svc, base := newTestService(t, rt)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "a"), true)
	p2 := writeModelDir(t, filepath.Join(base, modelsSubdir, "b"), true)

	if err := svc.Load(context.Background(), filepath.Join("a", "model.onnx"), nil); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := svc.Load(context.Background(), filepath.Join("b", "model.onnx"), nil); err != nil {
		t.Fatalf("load b: %v", err)
	}
	if !g1.closed {
		t.Fatalf("previous graph should be closed after replacement")
	}
	if g2.closed {
		t.Fatalf("active graph must stay open")
	}
	if st := svc.Status(); st.ModelPath != p2 {
		t.Fatalf("expected active path %q, got %q", p2, st.ModelPath)
	}
}

func TestLoadMissingModelFile(t *testing.T) {
	rt := graphRuntime(constGraph(eosTokenID))
	svc, _ := newTestService(t, rt)
	err := svc.Load(context.Background(), "nope/model.onnx", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsModelRead(err) {
		t.Fatalf("expected model-read error, got %v", err)
	}
	if svc.Ready() {
		t.Fatalf("service must stay unloaded")
	}
}

func TestLoadMalformedGraphKeepsPreviousModel(t *testing.T) {
	good := constGraph(eosTokenID)
	calls := 0
	rt := &fakeRuntime{next: func(string, []byte) (Graph, error) {
		calls++
		if calls == 1 {
			return good, nil
		}
		return nil, fmt.Errorf("not an onnx graph")
	}}
	svc, base := newTestService(t, rt)
	p1 := writeModelDir(t, filepath.Join(base, modelsSubdir, "a"), true)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "b"), true)

	if err := svc.Load(context.Background(), filepath.Join("a", "model.onnx"), nil); err != nil {
		t.Fatalf("load a: %v", err)
	}
	err := svc.Load(context.Background(), filepath.Join("b", "model.onnx"), nil)
	if !IsModelLoad(err) {
		t.Fatalf("expected model-load error, got %v", err)
	}
	if good.closed {
		t.Fatalf("previous graph must survive a failed load")
	}
	if st := svc.Status(); !st.Loaded || st.ModelPath != p1 {
		t.Fatalf("previous session must stay active, got %+v", st)
	}
}

func TestLoadTokenizerMissing(t *testing.T) {
	rt := graphRuntime(constGraph(eosTokenID))
	svc, base := newTestService(t, rt)
	dir := filepath.Join(base, modelsSubdir, "m")
	writeModelDir(t, dir, true)
	if err := os.Remove(filepath.Join(dir, "tokenizer.json")); err != nil {
		t.Fatalf("remove tokenizer: %v", err)
	}
	err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), nil)
	if !IsTokenizerMissing(err) {
		t.Fatalf("expected tokenizer-missing error, got %v", err)
	}
	if svc.Ready() {
		t.Fatalf("service must stay unloaded")
	}
}

func TestLoadTokenizerEmptyIsDistinctFromMissing(t *testing.T) {
	gGood := constGraph(eosTokenID)
	rt := graphRuntime(gGood)
	svc, base := newTestService(t, rt)
	p1 := writeModelDir(t, filepath.Join(base, modelsSubdir, "a"), true)
	if err := svc.Load(context.Background(), filepath.Join("a", "model.onnx"), nil); err != nil {
		t.Fatalf("load a: %v", err)
	}

	dir := filepath.Join(base, modelsSubdir, "b")
	writeModelDir(t, dir, true)
	if err := os.WriteFile(filepath.Join(dir, "tokenizer.json"), nil, 0o644); err != nil {
		t.Fatalf("truncate tokenizer: %v", err)
	}
	err := svc.Load(context.Background(), filepath.Join("b", "model.onnx"), nil)
	if !IsTokenizerCorrupt(err) {
		t.Fatalf("expected tokenizer-corrupt error, got %v", err)
	}
	if IsTokenizerMissing(err) {
		t.Fatalf("empty tokenizer must not be reported as missing")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected message to mention emptiness, got %q", err.Error())
	}
	if st := svc.Status(); !st.Loaded || st.ModelPath != p1 {
		t.Fatalf("previously loaded model must stay intact, got %+v", st)
	}
}

func TestLoadTokenizerUnparseable(t *testing.T) {
	rt := graphRuntime(constGraph(eosTokenID))
	svc, base := newTestService(t, rt)
	dir := filepath.Join(base, modelsSubdir, "m")
	writeModelDir(t, dir, true)
	junk := strings.Repeat("not json at all ", 100)
	if err := os.WriteFile(filepath.Join(dir, "tokenizer.json"), []byte(junk), 0o644); err != nil {
		t.Fatalf("write junk tokenizer: %v", err)
	}
	sink := NewMemorySink()
	err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), sink)
	if !IsTokenizerCorrupt(err) {
		t.Fatalf("expected tokenizer-corrupt error, got %v", err)
	}
	// The failure also travels the event channel for the UI.
	var sawError bool
	for _, st := range sink.Statuses() {
		if st.Status == StatusError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected an error status event, got %+v", sink.Statuses())
	}
}

func TestLoadSmallTokenizerWarnsButLoads(t *testing.T) {
	rt := graphRuntime(constGraph(eosTokenID))
	svc, base := newTestService(t, rt)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "m"), false) // unpadded, < 1000 bytes

	sink := NewMemorySink()
	if err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), sink); err != nil {
		t.Fatalf("load: %v", err)
	}
	var sawWarning bool
	for _, st := range sink.Statuses() {
		if st.Status == StatusLoading && strings.Contains(st.Message, "very small") {
			sawWarning = true
		}
	}
	if !sawWarning {
		t.Fatalf("expected small-tokenizer warning, got %+v", sink.Statuses())
	}
	if !svc.Ready() {
		t.Fatalf("small but valid tokenizer should still load")
	}
}

func TestLoadRuntimeUnavailablePassesThrough(t *testing.T) {
	rt := &fakeRuntime{next: func(string, []byte) (Graph, error) {
		return nil, ErrRuntimeUnavailable("onnx runtime support not built")
	}}
	svc, base := newTestService(t, rt)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "m"), true)
	err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), nil)
	if !IsRuntimeUnavailable(err) {
		t.Fatalf("expected runtime-unavailable error, got %v", err)
	}
}

func TestLoadEventDeliveryFailure(t *testing.T) {
	rt := graphRuntime(constGraph(eosTokenID))
	svc, base := newTestService(t, rt)
	writeModelDir(t, filepath.Join(base, modelsSubdir, "m"), true)
	err := svc.Load(context.Background(), filepath.Join("m", "model.onnx"), errorSink{failStatus: true})
	if !IsEventDelivery(err) {
		t.Fatalf("expected event-delivery error, got %v", err)
	}
}
