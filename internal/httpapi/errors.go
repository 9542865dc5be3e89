package httpapi

import (
	"encoding/json"
	"net/http"

	"proassistd/internal/llm"
	"proassistd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps engine errors to HTTP status codes. Request-shaped
// failures (bad model file, broken tokenizer, nothing loaded yet) get 4xx;
// environment failures get 5xx.
func statusForError(err error) int {
	switch {
	case llm.IsModelNotLoaded(err):
		return http.StatusConflict
	case llm.IsModelRead(err), llm.IsModelLoad(err):
		return http.StatusUnprocessableEntity
	case llm.IsTokenizerMissing(err), llm.IsTokenizerCorrupt(err),
		llm.IsTokenizerUnavailable(err), llm.IsTokenize(err):
		return http.StatusUnprocessableEntity
	case llm.IsRuntimeUnavailable(err):
		return http.StatusServiceUnavailable
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	// Path resolution, inference, logits extraction and token selection are
	// all server-side faults.
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
