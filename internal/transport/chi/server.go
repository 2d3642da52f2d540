// Package chi exposes the HTTP API: pipeline run triggers on the write
// side, cached location reads on the read side.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
	healthuc "github.com/wildpath/naturescout/internal/usecase/health"
	lookupuc "github.com/wildpath/naturescout/internal/usecase/lookup"
	pipelineuc "github.com/wildpath/naturescout/internal/usecase/pipeline"
)

// ErrorCode identifies a machine-readable error class in responses.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeNotFound         ErrorCode = "not_found"
	CodeCityNotFound     ErrorCode = "city_not_found"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeUpstreamError    ErrorCode = "upstream_error"
	CodeCacheUnavailable ErrorCode = "cache_unavailable"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	pipeline      *pipelineuc.Service
	lookup        *lookupuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	pipeline *pipelineuc.Service,
	lookup *lookupuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline: pipeline,
		lookup:   lookup,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrCityNotFound, http.StatusNotFound, CodeCityNotFound),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrSourceNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrSourceRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrVerifierRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrSourceUnavailable, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrExtractionUnavailable, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrVerifierUnavailable, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrCacheUnavailable, http.StatusServiceUnavailable, CodeCacheUnavailable),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pipeline/runs", s.RunPipeline)
		r.Get("/locations/detail", s.LocationDetail)
		r.Get("/locations/{city}/{category}", s.Locations)
		r.Get("/places/{placeID}/locations/{category}", s.LocationsByPlace)
		r.Get("/cities", s.Cities)
		r.Get("/cache/summary", s.CacheSummary)
	})
}

// RunPipeline handles POST /api/v1/pipeline/runs.
func (s *Server) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := s.pipeline.Run(r.Context(), pipelineuc.RunRequest{
		City:       req.City,
		Category:   req.Category,
		ThreadRefs: req.ThreadRefs,
		Force:      req.Force,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordToResponse(rec))
}

// Locations handles GET /api/v1/locations/{city}/{category}.
func (s *Server) Locations(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	category := chi.URLParam(r, "category")

	rec, err := s.lookup.Locations(r.Context(), city, category)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordToResponse(rec))
}

// LocationsByPlace handles GET /api/v1/places/{placeID}/locations/{category}.
func (s *Server) LocationsByPlace(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")
	category := chi.URLParam(r, "category")

	rec, err := s.lookup.ByPlace(r.Context(), placeID, category)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordToResponse(rec))
}

// Cities handles GET /api/v1/cities.
func (s *Server) Cities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.lookup.Cities(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, citiesToResponse(cities))
}

// LocationDetail handles GET /api/v1/locations/detail?name=&city=&category=.
func (s *Server) LocationDetail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	loc, err := s.lookup.Detail(r.Context(), q.Get("name"), q.Get("city"), q.Get("category"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, locationToResponse(loc))
}

// CacheSummary handles GET /api/v1/cache/summary.
func (s *Server) CacheSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.lookup.CacheSummary(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrCityNotFound,
		domain.ErrRecordNotFound,
		domain.ErrSourceNotFound,
		domain.ErrSourceRateLimited,
		domain.ErrVerifierRateLimited,
		domain.ErrSourceUnavailable,
		domain.ErrExtractionUnavailable,
		domain.ErrExtractionFailed,
		domain.ErrVerifierUnavailable,
		domain.ErrCacheUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
