// Package httpapi exposes a TemplateRenderer over HTTP for previews and for
// services that cannot link the renderer directly.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeCompilationFailed  = "TEMPLATE_COMPILATION_FAILED"
	CodeExecutionFailed    = "TEMPLATE_EXECUTION_FAILED"
	CodeRenderTimeout      = "RENDER_TIMEOUT"
	CodeRenderFailed       = "RENDER_FAILED"
	CodeRenderCanceled     = "RENDER_CANCELED"
	defaultTimeout         = 5 * time.Second
	defaultMaxRequestBytes = 1 << 20

	// StatusClientClosedRequest is reported when the request context is
	// canceled before the render finishes.
	StatusClientClosedRequest = 499
)

// RenderRequest is the body of POST /render. HTML defaults to true.
type RenderRequest struct {
	Template *string `json:"template"`
	Model    any     `json:"model"`
	HTML     *bool   `json:"html,omitempty"`
}

// RenderResponse is the body of a successful render.
type RenderResponse struct {
	Output string `json:"output"`
	HTML   bool   `json:"html"`
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithTimeout bounds how long a request waits for its render. Zero disables
// the bound.
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d >= 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithBackendName is reported by the health endpoint.
func WithBackendName(name string) HandlerOption {
	return func(h *Handler) {
		h.backend = name
	}
}

// Handler serves render requests.
type Handler struct {
	renderer template.TemplateRenderer
	timeout  time.Duration
	maxBody  int64
	backend  string
	logger   zerolog.Logger
}

// NewHandler builds a Handler around renderer.
func NewHandler(renderer template.TemplateRenderer, opts ...HandlerOption) *Handler {
	h := &Handler{
		renderer: renderer,
		timeout:  defaultTimeout,
		maxBody:  defaultMaxRequestBytes,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the handler's routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/render", h.render)
	r.Get("/health", h.health)
}

// Router returns a chi router with the routes mounted at the root.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest

	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrorDetail{Code: CodeInvalidRequest, Message: "Invalid request body: " + err.Error()})
		return
	}
	if req.Template == nil {
		respondWithError(w, http.StatusBadRequest, ErrorDetail{Code: CodeInvalidRequest, Message: "template is required"})
		return
	}

	isHTML := true
	if req.HTML != nil {
		isHTML = *req.HTML
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	output, err := h.renderer.ParseAsync(ctx, *req.Template, req.Model, isHTML).Await(ctx)
	if err != nil {
		h.respondRenderError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, RenderResponse{Output: output, HTML: isHTML})
}

func (h *Handler) respondRenderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		compErr *template.CompilationError
		execErr *template.ExecutionError
	)

	switch {
	case errors.As(err, &compErr):
		respondWithError(w, http.StatusUnprocessableEntity, ErrorDetail{
			Code:    CodeCompilationFailed,
			Message: err.Error(),
			Line:    compErr.Line,
			Column:  compErr.Column,
		})
	case errors.As(err, &execErr):
		respondWithError(w, http.StatusUnprocessableEntity, ErrorDetail{Code: CodeExecutionFailed, Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, ErrorDetail{Code: CodeRenderTimeout, Message: "render did not finish in time"})
	case errors.Is(err, context.Canceled):
		h.logger.Debug().Str("path", r.URL.Path).Msg("client went away before render finished")
		respondWithError(w, StatusClientClosedRequest, ErrorDetail{Code: CodeRenderCanceled, Message: "render canceled"})
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("render failed")
		respondWithError(w, http.StatusInternalServerError, ErrorDetail{Code: CodeRenderFailed, Message: "Failed to render template: " + err.Error()})
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.backend,
	})
}
