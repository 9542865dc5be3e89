package llm

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestResolveAbsolutePassesThrough(t *testing.T) {
	p, err := resolveModelPath("/models/m.onnx", func() (string, error) {
		t.Fatalf("base dir must not be consulted for absolute refs")
		return "", nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != "/models/m.onnx" {
		t.Fatalf("expected unchanged path, got %q", p)
	}
}

func TestResolveRelativeJoinsBase(t *testing.T) {
	p, err := resolveModelPath(filepath.Join("qwen", "model.onnx"), func() (string, error) {
		return "/data/proassist", nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := filepath.Join("/data/proassist", modelsSubdir, "qwen", "model.onnx")
	if p != want {
		t.Fatalf("expected %q, got %q", want, p)
	}
}

func TestResolveBaseDirFailure(t *testing.T) {
	_, err := resolveModelPath("m.onnx", func() (string, error) {
		return "", fmt.Errorf("no data dir on this platform")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsPathResolution(err) {
		t.Fatalf("expected path-resolution error, got %v", err)
	}
}
