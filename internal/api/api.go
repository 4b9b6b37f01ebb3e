// Package api serves the voice design HTTP endpoints:
//
//	POST /v1/voices/design    design candidates for a free-text description
//	GET  /v1/voices           list the catalog roster
//	GET  /v1/voices/{id}      fetch one catalog voice
//	POST /v1/voices/settings  derive delivery settings from traits or text
//	POST /v1/voices/render    speak text with a resolved voice
//
// Request and response bodies are JSON except for render, which streams audio.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrWong99/vocalis/internal/catalog"
	"github.com/MrWong99/vocalis/internal/designer"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/pkg/provider/tts"
	"github.com/MrWong99/vocalis/pkg/voice"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// retryAfterSeconds is sent with 503 responses for retryable provider failures.
const retryAfterSeconds = 5

// Designer runs the design pipeline. [designer.Engine] satisfies it.
type Designer interface {
	Design(ctx context.Context, req designer.Request) (*designer.Response, error)
}

// Catalog reads the voice roster. [catalog.Repository] satisfies it.
type Catalog interface {
	List(ctx context.Context) ([]voice.CatalogVoice, error)
	Get(ctx context.Context, id string) (voice.CatalogVoice, error)
}

// Compile-time assertions.
var (
	_ Designer = (*designer.Engine)(nil)
	_ Catalog  = (*catalog.Repository)(nil)
)

// Server holds the handler dependencies. It is safe for concurrent use.
type Server struct {
	designer Designer
	catalog  Catalog
	metrics  *observe.Metrics

	renderer     tts.Provider
	rendererName string
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithRenderer enables POST /v1/voices/render using p. name is reported as
// the voice profile provider.
func WithRenderer(p tts.Provider, name string) Option {
	return func(s *Server) {
		s.renderer = p
		s.rendererName = name
	}
}

// WithMetrics sets the metrics sink. Default is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a [Server].
func New(d Designer, c Catalog, opts ...Option) *Server {
	s := &Server{designer: d, catalog: c}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/voices/design", s.handleDesign)
	mux.HandleFunc("GET /v1/voices", s.handleListVoices)
	mux.HandleFunc("GET /v1/voices/{id}", s.handleGetVoice)
	mux.HandleFunc("POST /v1/voices/settings", s.handleSettings)
	mux.HandleFunc("POST /v1/voices/render", s.handleRender)
}

// Handler returns a mux serving only the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error       string   `json:"error"`
	Retryable   bool     `json:"retryable,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// writeError maps err onto a status code and writes the error body.
//
//	*voice.ValidationError        400
//	catalog.ErrVoiceNotFound      404
//	*voice.ContentPolicyError     422 with suggestions
//	voice.ErrNoUsableCandidate    502
//	retryable provider failures   503 with Retry-After
//	anything else                 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *voice.ValidationError
		perr *voice.ContentPolicyError
		body = errorBody{Error: err.Error()}
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body.Error = verr.Message
	case errors.Is(err, catalog.ErrVoiceNotFound):
		status = http.StatusNotFound
	case errors.As(err, &perr):
		status = http.StatusUnprocessableEntity
		body.Error = "description was refused by the voice generation provider"
		body.Suggestions = perr.Suggestions
	case errors.Is(err, voice.ErrNoUsableCandidate):
		status = http.StatusBadGateway
	case voice.IsRetryable(err):
		status = http.StatusServiceUnavailable
		body.Retryable = true
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("err", err),
		)
	}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

// badRequest writes a 400 with a fixed message.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// decode reads a size-limited JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
