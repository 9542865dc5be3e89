package types

// ChatMessage is one turn of a conversation supplied by the caller.
type ChatMessage struct {
	// Role of the speaker: "system", "user", "assistant", or a custom label.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Summarize the last meeting.
	Content string `json:"content" example:"Summarize the last meeting."`
}

// LoadRequest asks the service to load a model.
type LoadRequest struct {
	// Model file reference. Absolute paths are used as-is; relative references
	// are resolved under <data-dir>/offline-models/.
	// example: qwen2.5-0.5b/model.onnx
	Model string `json:"model" example:"qwen2.5-0.5b/model.onnx"`
}

// GenerateRequest asks the service to generate a completion.
type GenerateRequest struct {
	// Raw prompt used when messages is empty; wrapped as a single user turn.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt,omitempty" example:"Write a haiku about the ocean."`
	// Ordered conversation; when present it is formatted as-is.
	Messages []ChatMessage `json:"messages,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// Models discovered under the offline-models directory.
	Models []Model `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Whether a model is currently loaded.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Absolute path of the loaded model, empty when unloaded.
	// example: /home/user/.config/proassist/offline-models/qwen2.5-0.5b/model.onnx
	ModelPath string `json:"model_path,omitempty"`
	// Active execution device label.
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// Whether a generation is currently in flight.
	// example: false
	Generating bool `json:"generating" example:"false"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
