//go:build ort

// Package ort provides the ONNX Runtime-backed graph runtime. It is compiled
// only with the 'ort' build tag so default builds stay CGO-free; without the
// tag the stub in this package fails fast instead of mocking inference.
package ort

import (
	"errors"
	"fmt"
	"os"
	"sync"

	onnx "github.com/yalue/onnxruntime_go"

	"proassistd/internal/llm"
)

// ortBuilt indicates this binary was compiled with real ONNX Runtime support.
var ortBuilt = true

var initOnce sync.Once
var initErr error

// initEnvironment sets up the shared ONNX Runtime environment once per
// process. ORT_SHARED_LIB overrides the shared library location.
func initEnvironment() error {
	initOnce.Do(func() {
		if p := os.Getenv("ORT_SHARED_LIB"); p != "" {
			onnx.SetSharedLibraryPath(p)
		}
		initErr = onnx.InitializeEnvironment()
	})
	return initErr
}

type runtime struct{}

// New returns an llm.Runtime backed by ONNX Runtime.
func New() llm.Runtime { return runtime{} }

type graph struct {
	session     *onnx.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func (runtime) LoadGraph(path string, data []byte) (llm.Graph, error) {
	if err := initEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	inputs, outputs, err := onnx.GetInputOutputInfoWithONNXData(data)
	if err != nil {
		return nil, fmt.Errorf("inspect graph %s: %w", path, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("graph declares no inputs or no outputs")
	}
	inNames := make([]string, len(inputs))
	for i, in := range inputs {
		inNames[i] = in.Name
	}
	outNames := make([]string, len(outputs))
	for i, out := range outputs {
		outNames[i] = out.Name
	}
	sess, err := onnx.NewDynamicAdvancedSessionWithONNXData(data, inNames, outNames, nil)
	if err != nil {
		return nil, err
	}
	return &graph{session: sess, inputNames: inNames, outputNames: outNames}, nil
}

func (g *graph) Run(inputs []llm.NamedTensor) ([]llm.OutputTensor, error) {
	values := make([]onnx.Value, len(g.inputNames))
	defer func() {
		for _, v := range values {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	for _, in := range inputs {
		idx := -1
		for i, name := range g.inputNames {
			if name == in.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("graph has no input named %q (inputs: %v)", in.Name, g.inputNames)
		}
		t, err := onnx.NewTensor(onnx.NewShape(in.Shape...), in.Data)
		if err != nil {
			return nil, fmt.Errorf("create tensor %q: %w", in.Name, err)
		}
		values[idx] = t
	}
	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("graph input %q not supplied", g.inputNames[i])
		}
	}

	outputs := make([]onnx.Value, len(g.outputNames))
	if err := g.session.Run(values, outputs); err != nil {
		return nil, err
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	result := make([]llm.OutputTensor, 0, len(outputs))
	for i, v := range outputs {
		t, ok := v.(*onnx.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %q is not a float32 tensor", g.outputNames[i])
		}
		result = append(result, llm.OutputTensor{
			Name:  g.outputNames[i],
			Shape: append([]int64(nil), t.GetShape()...),
			Data:  append([]float32(nil), t.GetData()...),
		})
	}
	return result, nil
}

func (g *graph) Close() error {
	if g.session == nil {
		return nil
	}
	err := g.session.Destroy()
	g.session = nil
	return err
}
