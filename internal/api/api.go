// Package api serves the extraction pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// CodeInvalidRequest reports a request body that could not be decoded.
const CodeInvalidRequest = "ERR_INVALID_REQUEST"

// uploadSlack covers multipart framing on top of the image size limit.
const uploadSlack = 1 << 20

// Pipeline is the subset of *extract.Pipeline the handlers need.
type Pipeline interface {
	ExtractURL(ctx context.Context, rawURL string) recipe.ExtractionResult
	ExtractImage(ctx context.Context, declared string, data []byte) recipe.ExtractionResult
}

// Server holds handler dependencies.
type Server struct {
	Pipeline      Pipeline
	MaxImageBytes int64
	Version       string
	Commit        string
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/parseRecipe", s.parseRecipe)
		r.Post("/parseRecipeFromImage", s.parseRecipeFromImage)
		r.Post("/scale", s.scale)
	})
	return r
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, retryAfter int64) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message, RetryAfter: retryAfter}})
}

// writeFailure maps a pipeline error onto the HTTP error shape.
func writeFailure(w http.ResponseWriter, e *recipe.Error) {
	code := e.Code()
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	writeError(w, StatusFor(code), code, msg, e.RetryAfter)
}

// StatusFor maps a stable error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case recipe.CodeInvalidURL, CodeInvalidRequest:
		return http.StatusBadRequest
	case recipe.CodeNoRecipeFound, recipe.CodeUnsupportedDocument:
		return http.StatusUnprocessableEntity
	case recipe.CodeFetchFailed, recipe.CodeAIParseFailed:
		return http.StatusBadGateway
	case recipe.CodeTimeout:
		return http.StatusGatewayTimeout
	case recipe.CodeRateLimit:
		return http.StatusTooManyRequests
	case recipe.CodeAPIUnavailable:
		return http.StatusServiceUnavailable
	case recipe.CodeInvalidFileType:
		return http.StatusUnsupportedMediaType
	case recipe.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

type ctxKey struct{}

// requestID honors an incoming X-Request-ID or mints one, echoes it back and
// attaches it to the request logger.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		logger := log.With().Str("request_id", id).Logger()
		ctx := logger.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request ID set by the middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
