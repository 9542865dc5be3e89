package types

// Model represents a discoverable model directory entry on disk.
type Model struct {
	// Stable identifier, the path relative to the offline-models directory.
	// example: qwen2.5-0.5b/model.onnx
	ID string `json:"id" example:"qwen2.5-0.5b/model.onnx"`
	// Human-friendly name derived from the containing directory.
	// example: qwen2.5-0.5b
	Name string `json:"name" example:"qwen2.5-0.5b"`
	// Absolute path to the model file.
	// example: /home/user/.config/proassist/offline-models/qwen2.5-0.5b/model.onnx
	Path string `json:"path"`
	// Whether a tokenizer.json sits next to the model file.
	// example: true
	HasTokenizer bool `json:"has_tokenizer" example:"true"`
	// Size of the model file in bytes.
	// example: 494032384
	SizeBytes int64 `json:"size_bytes" example:"494032384"`
}
