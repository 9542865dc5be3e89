//go:build !ort

// This file provides a no-CGO stub for the ONNX Runtime backend. It is
// compiled when the 'ort' build tag is NOT set, keeping default builds and CI
// CGO-free. The real runtime lives in ort.go (tagged 'ort').
package ort

import "proassistd/internal/llm"

// ortBuilt indicates this binary was compiled without real ONNX Runtime support.
var ortBuilt = false

type runtime struct{}

// New returns a stub llm.Runtime that refuses to load graphs without the
// 'ort' build tag. This avoids any mocked inference in production binaries.
func New() llm.Runtime { return runtime{} }

func (runtime) LoadGraph(path string, data []byte) (llm.Graph, error) {
	return nil, llm.ErrRuntimeUnavailable("onnx runtime support not built (missing 'ort' build tag)")
}
