// Package httpapp serves the recommendation API.
package httpapp

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/cesargomez89/mias/internal/app"
	"github.com/cesargomez89/mias/internal/features"
	"github.com/cesargomez89/mias/internal/http/dto"
	"github.com/cesargomez89/mias/internal/logger"
	"github.com/cesargomez89/mias/internal/metrics"
	"github.com/cesargomez89/mias/internal/similarity"
	"github.com/cesargomez89/mias/internal/spotify"
	"github.com/cesargomez89/mias/internal/store"
)

type Handler struct {
	Recommender *app.Recommender
	Logger      *logger.Logger
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string
	// RateLimit caps recommendation requests per client IP and minute.
	RateLimit int
}

func NewHandler(rec *app.Recommender, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Recommender: rec,
		Logger:      log.WithComponent("http"),
	}
}

// NewRouter builds the router with the shared middleware stack and every
// route registered.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	if len(h.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         86400,
		}))
	}
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(h.rateLimit()).Post("/recommendations", h.CreateRecommendations)
		r.Get("/submissions", h.ListSubmissions)
		r.Get("/submissions/{id}", h.GetSubmission)
		r.Get("/growth", h.Growth)
		r.Get("/tracks", h.ListTracks)
		r.Get("/tracks/count", h.CountTracks)
	})
}

// rateLimit limits recommendation requests per client IP.
func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	if h.RateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(h.RateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			h.respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}),
	)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		h.Logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.Logger.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	h.respondJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) respondValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *spotify.APIError
	switch {
	case errors.Is(err, app.ErrInvalidRequest),
		errors.Is(err, similarity.ErrInvalidArgument),
		errors.Is(err, spotify.ErrInvalidURL),
		errors.Is(err, spotify.ErrEmptyPlaylist):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), spotify.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, features.ErrEmptyVocabulary),
		errors.Is(err, similarity.ErrUndefinedSimilarity),
		errors.Is(err, similarity.ErrEmptyPlaylist):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// instrument records API metrics labelled by route pattern rather than raw
// path so ids do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		metrics.RecordAPIRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
