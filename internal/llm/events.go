package llm

// Status values carried by StatusEvent.
const (
	StatusLoading  = "loading"
	StatusStart    = "start"
	StatusReady    = "ready"
	StatusError    = "error"
	StatusComplete = "complete"
)

// StatusEvent reports a lifecycle transition of a load or generate call.
type StatusEvent struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Device  string `json:"device,omitempty"`
}

// TokenEvent reports one produced token during generation.
type TokenEvent struct {
	Token     string  `json:"token"`
	TPS       float64 `json:"tps"`
	NumTokens int     `json:"numTokens"`
}

// EventSink receives status and token events from the service. A returned
// error means the consumer is unreachable and aborts the call that emitted
// the event.
type EventSink interface {
	Status(StatusEvent) error
	Token(TokenEvent) error
}

// noopSink is substituted when the caller passes a nil sink.
type noopSink struct{}

func (noopSink) Status(StatusEvent) error { return nil }
func (noopSink) Token(TokenEvent) error   { return nil }
