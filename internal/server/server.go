// Package server exposes segmentation, extraction and matching over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matsen/refmatch/internal/candidate"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/logging"
	"github.com/matsen/refmatch/internal/match"
	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/orcid"
	"github.com/matsen/refmatch/internal/pipeline"
	"github.com/matsen/refmatch/internal/reference"
	"github.com/matsen/refmatch/internal/segment"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// ProfileFetcher fetches ORCID profiles, usually through the cache.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id string) (*orcid.Profile, error)
}

// Config wires the server's collaborators. Extractor may be nil when no
// backend is available; Profiles may be nil when ORCID lookups are off.
type Config struct {
	Logger       *zap.Logger
	Extractor    extract.Extractor
	Backends     []extract.Backend
	Profiles     ProfileFetcher
	Defaults     pipeline.Options
	MaxBodyBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	cfg Config
}

// New creates a server. A nil logger logs nothing.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{cfg: cfg}
}

// Handler returns the routed handler with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/backends", s.backends)
		r.Post("/segment", s.segment)
		r.Post("/extract", s.extract)
		r.Post("/match", s.match)
	})
	return r
}

type segmentRequest struct {
	Text string `json:"text"`
}

type segmentResponse struct {
	References []reference.Span `json:"references"`
}

type extractRequest struct {
	Text      string `json:"text"`
	Prescreen *bool  `json:"prescreen,omitempty"`
}

type extractResponse struct {
	Backend    string                `json:"backend"`
	References []reference.Reference `json:"references"`
	Rejected   []reference.Span      `json:"rejected,omitempty"`
}

type matchRequest struct {
	Text          string             `json:"text"`
	Works         []candidate.Record `json:"works,omitempty"`
	ORCID         string             `json:"orcid,omitempty"`
	MinConfidence *float64           `json:"min_confidence,omitempty"`
	Prescreen     *bool              `json:"prescreen,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Extractor == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no_backend"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Backend: s.cfg.Extractor.Name()})
}

func (s *Server) backends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, extract.ProbeAll(r.Context(), s.cfg.Backends...))
}

func (s *Server) segment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	spans := segment.Segment(req.Text)
	if spans == nil {
		spans = []reference.Span{}
	}
	writeJSON(w, http.StatusOK, segmentResponse{References: spans})
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.cfg.Extractor == nil {
		s.handleError(w, r, extract.ErrNoBackend)
		return
	}

	spans := segment.Segment(req.Text)
	resp := extractResponse{Backend: s.cfg.Extractor.Name()}
	if prescreen(req.Prescreen, s.cfg.Defaults.Prescreen) {
		spans, resp.Rejected = pipeline.Prescreen(spans, s.cfg.Defaults.MinLength)
	}

	refs, err := pipeline.Extract(r.Context(), s.cfg.Extractor, spans, extract.BatchOptions{Workers: s.cfg.Defaults.Workers})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp.References = refs
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.cfg.Extractor == nil {
		s.handleError(w, r, extract.ErrNoBackend)
		return
	}

	opts := s.cfg.Defaults
	opts.Progress = nil
	if req.MinConfidence != nil {
		opts.MinConfidence = *req.MinConfidence
	}
	opts.Prescreen = prescreen(req.Prescreen, opts.Prescreen)

	records := req.Works
	if req.ORCID != "" {
		if s.cfg.Profiles == nil {
			writeError(w, http.StatusBadRequest, "bad_request", "ORCID lookups are not enabled")
			return
		}
		profile, err := s.cfg.Profiles.FetchProfile(r.Context(), req.ORCID)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		records = append(records, profile.Records()...)
	}

	report, err := pipeline.Run(r.Context(), s.cfg.Extractor, req.Text, records, opts)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func prescreen(requested *bool, fallback bool) bool {
	if requested != nil {
		return *requested
	}
	return fallback
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// handleError maps domain errors to statuses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, extract.ErrNoBackend):
		writeError(w, http.StatusServiceUnavailable, "no_backend", extract.ErrNoBackend.Error())
	case errors.Is(err, match.ErrInvalidThreshold):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, orcid.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case orcid.IsRateLimited(err):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "ORCID rate limit exceeded")
	case orcid.IsAuthError(err), errors.Is(err, orcid.ErrNetworkError), errors.Is(err, orcid.ErrInvalidResponse):
		logger.Warn("ORCID request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_error", "ORCID request failed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
	default:
		var apiErr *orcid.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, "upstream_error", "ORCID request failed")
			return
		}
		logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// recoverer turns handler panics into a JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.cfg.Logger.Error("panic recovered",
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"))
				writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// requestID propagates X-Request-ID, generating a UUID when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger emits one log line per request and puts a request-scoped
// logger in the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id, _ := r.Context().Value(requestIDKey{}).(string)
		reqLogger := s.cfg.Logger.With(zap.String("request_id", id))
		ctx := logging.WithContext(r.Context(), reqLogger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		reqLogger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_bytes", ww.BytesWritten()))
	})
}
