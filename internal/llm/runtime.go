package llm

// NamedTensor is an integer tensor fed to a Graph under a specific input name.
type NamedTensor struct {
	Name  string
	Shape []int64
	Data  []int64
}

// OutputTensor is one floating-point output of a forward pass, flattened.
type OutputTensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Graph is a loaded, ready-to-execute inference graph. Run is not safe for
// concurrent use; the service guarantees a single caller at a time.
type Graph interface {
	Run(inputs []NamedTensor) ([]OutputTensor, error)
	Close() error
}

// Runtime constructs Graphs from in-memory model bytes. Concrete
// implementations (e.g., ONNX Runtime) satisfy this interface; path is
// supplied for diagnostics only.
type Runtime interface {
	LoadGraph(path string, data []byte) (Graph, error)
}
