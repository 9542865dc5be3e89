// Package httpapi exposes the generation service over HTTP: JSON control
// endpoints plus NDJSON event streams for load and generate.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proassistd/internal/llm"
	"proassistd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Load(ctx context.Context, ref string, sink llm.EventSink) error
	Generate(ctx context.Context, prompt string, messages []types.ChatMessage, sink llm.EventSink) (string, error)
	Interrupt()
	Reset()
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Post("/load", func(w http.ResponseWriter, r *http.Request) {
		var req types.LoadRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}

		sink, lvl, start := startStream(w, r)
		if lvl >= LevelInfo {
			logStart(r, "load start", "model", req.Model)
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		err := svc.Load(ctx, req.Model, sink)
		finishStream(w, r, sink, lvl, start, "load end", err, nil)
	})

	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" && len(req.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "prompt or messages is required")
			return
		}

		sink, lvl, start := startStream(w, r)
		if lvl >= LevelInfo {
			logStart(r, "generate start", "messages", itoa(len(req.Messages)))
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		text, err := svc.Generate(ctx, req.Prompt, req.Messages, sink)
		finishStream(w, r, sink, lvl, start, "generate end", err, &text)
	})

	r.Post("/interrupt", func(w http.ResponseWriter, r *http.Request) {
		svc.Interrupt()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"interrupting"}` + "\n"))
	})

	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		svc.Reset()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"reset"}` + "\n"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no model loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeJSONBody enforces the content type and size limit, then decodes the
// body into dst. It writes the error response itself and reports success.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// Oversized bodies surface here too; report 400 without size details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// startStream switches the response to NDJSON and builds the event sink. At
// debug level the stream is echoed to the process log line by line.
func startStream(w http.ResponseWriter, r *http.Request) (*streamSink, LogLevel, time.Time) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	lvl := requestLogLevel(r)
	sink := newStreamSink(w, flush)
	if lvl >= LevelDebug {
		sink.w = withLineLog(sink.w)
	}
	return sink, lvl, time.Now()
}

// finishStream terminates an event stream: a done line on success, a mapped
// error otherwise. Errors that arrive before any event was streamed still get
// a proper HTTP status; after that the status line is already on the wire and
// the error goes out as a trailing NDJSON line.
func finishStream(w http.ResponseWriter, r *http.Request, sink *streamSink, lvl LogLevel, start time.Time, msg string, err error, content *string) {
	if err != nil {
		// Client disconnect or shutdown: nothing useful left to write.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusForError(err)
		if sink.wrote {
			sink.fail(status, err.Error())
		} else {
			writeJSONError(w, status, err.Error())
		}
		if lvl >= LevelInfo {
			logEnd(r, msg, status, start, err)
		}
		return
	}
	if err := sink.done(content); err != nil {
		return
	}
	if lvl >= LevelInfo {
		logEnd(r, msg, http.StatusOK, start, nil)
	}
}
