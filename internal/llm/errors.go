package llm

import "fmt"

// pathResolutionError signals the base data directory could not be determined.
type pathResolutionError struct{ cause error }

func (e pathResolutionError) Error() string {
	return fmt.Sprintf("resolve base data directory: %v", e.cause)
}
func (e pathResolutionError) Unwrap() error { return e.cause }

// IsPathResolution reports whether err indicates a base-directory lookup failure.
func IsPathResolution(err error) bool {
	_, ok := err.(pathResolutionError)
	return ok
}

// modelReadError signals the model file could not be read from disk.
type modelReadError struct {
	path  string
	cause error
}

func (e modelReadError) Error() string {
	return fmt.Sprintf("read model file %s: %v", e.path, e.cause)
}
func (e modelReadError) Unwrap() error { return e.cause }

// IsModelRead reports whether err indicates an unreadable model file.
func IsModelRead(err error) bool {
	_, ok := err.(modelReadError)
	return ok
}

// modelLoadError signals the model bytes did not form a loadable graph.
type modelLoadError struct {
	path  string
	cause error
}

func (e modelLoadError) Error() string {
	return fmt.Sprintf("load model from %s: %v", e.path, e.cause)
}
func (e modelLoadError) Unwrap() error { return e.cause }

// IsModelLoad reports whether err indicates a malformed or unsupported graph.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}

// tokenizerMissingError signals there is no tokenizer.json next to the model.
type tokenizerMissingError struct{ path string }

func (e tokenizerMissingError) Error() string {
	return fmt.Sprintf("tokenizer file not found at %s: ensure the model download completed", e.path)
}

// IsTokenizerMissing reports whether err indicates an absent tokenizer.json.
func IsTokenizerMissing(err error) bool {
	_, ok := err.(tokenizerMissingError)
	return ok
}

// tokenizerCorruptError signals an unusable tokenizer.json.
type tokenizerCorruptError struct {
	path   string
	reason string
}

func (e tokenizerCorruptError) Error() string {
	return fmt.Sprintf("tokenizer file %s is unusable (%s): delete the model files and re-download them", e.path, e.reason)
}

// IsTokenizerCorrupt reports whether err indicates a corrupt tokenizer.json.
func IsTokenizerCorrupt(err error) bool {
	_, ok := err.(tokenizerCorruptError)
	return ok
}

// modelNotLoadedError signals generate was called before any successful load.
type modelNotLoadedError struct{}

func (modelNotLoadedError) Error() string {
	return "model not loaded: load a model first"
}

// IsModelNotLoaded reports whether err indicates the generate precondition failed.
func IsModelNotLoaded(err error) bool {
	_, ok := err.(modelNotLoadedError)
	return ok
}

// tokenizerUnavailableError mirrors the load invariant; it should be
// unreachable because a session always carries a tokenizer.
type tokenizerUnavailableError struct{}

func (tokenizerUnavailableError) Error() string {
	return "tokenizer not available: ensure tokenizer.json is downloaded and valid"
}

// IsTokenizerUnavailable reports whether err indicates a missing tokenizer handle.
func IsTokenizerUnavailable(err error) bool {
	_, ok := err.(tokenizerUnavailableError)
	return ok
}

// tokenizeError signals an encode or decode failure during generation.
type tokenizeError struct{ cause error }

func (e tokenizeError) Error() string { return fmt.Sprintf("tokenize: %v", e.cause) }
func (e tokenizeError) Unwrap() error { return e.cause }

// IsTokenize reports whether err is an encode/decode failure.
func IsTokenize(err error) bool {
	_, ok := err.(tokenizeError)
	return ok
}

// inferenceError signals a failed forward pass.
type inferenceError struct{ cause error }

func (e inferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v (the model may use different input/output tensor names; this service feeds a single %q input)", e.cause, inputName)
}
func (e inferenceError) Unwrap() error { return e.cause }

// IsInference reports whether err is a forward-pass failure.
func IsInference(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}

// logitsExtractionError signals the model output could not be read as logits.
type logitsExtractionError struct{ reason string }

func (e logitsExtractionError) Error() string { return "extract logits: " + e.reason }

// IsLogitsExtraction reports whether err is a logits extraction failure.
func IsLogitsExtraction(err error) bool {
	_, ok := err.(logitsExtractionError)
	return ok
}

// selectionError signals next-token selection failed.
type selectionError struct{ reason string }

func (e selectionError) Error() string { return "select next token: " + e.reason }

// IsSelection reports whether err is a next-token selection failure.
func IsSelection(err error) bool {
	_, ok := err.(selectionError)
	return ok
}

// eventDeliveryError signals a status or token event could not be delivered.
type eventDeliveryError struct{ cause error }

func (e eventDeliveryError) Error() string { return fmt.Sprintf("deliver event: %v", e.cause) }
func (e eventDeliveryError) Unwrap() error { return e.cause }

// IsEventDelivery reports whether err indicates the event consumer is unreachable.
func IsEventDelivery(err error) bool {
	_, ok := err.(eventDeliveryError)
	return ok
}

// runtimeUnavailableError signals the inference runtime is not present in this
// build (e.g., compiled without the native backend).
type runtimeUnavailableError struct{ msg string }

func (e runtimeUnavailableError) Error() string { return e.msg }

// ErrRuntimeUnavailable constructs a runtimeUnavailableError.
func ErrRuntimeUnavailable(msg string) error { return runtimeUnavailableError{msg: msg} }

// IsRuntimeUnavailable reports whether err indicates a missing inference runtime.
func IsRuntimeUnavailable(err error) bool {
	_, ok := err.(runtimeUnavailableError)
	return ok
}
