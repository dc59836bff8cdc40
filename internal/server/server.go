package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bankops/retail-analytics/internal/adapters/database"
	"github.com/bankops/retail-analytics/internal/segmentation"
	"github.com/bankops/retail-analytics/internal/service"
	"github.com/bankops/retail-analytics/pkg/logger"
	"github.com/bankops/retail-analytics/pkg/models"
)

// Server exposes the three analytics query operations plus health checks
type Server struct {
	server  *http.Server
	svc     *service.Service
	db      *database.DB
	started time.Time
}

// errorBody is the uniform error payload. Code is stable per error class so
// callers can branch on it.
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// New creates the HTTP server
func New(port int, svc *service.Service, db *database.DB) *Server {
	s := &Server{
		svc:     svc,
		db:      db,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/segmentation", s.handleSegmentation)
	mux.HandleFunc("/api/loan-risk", s.handleLoanRisk)
	mux.HandleFunc("/api/fee-optimization", s.handleFeeOptimization)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

// Start begins serving; blocks until the server stops
func (s *Server) Start() error {
	logger.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status := http.StatusOK
	if err := s.db.Health(); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"uptime": time.Since(s.started).String(),
		"checks": checks,
	})
}

func (s *Server) handleSegmentation(w http.ResponseWriter, r *http.Request) {
	k := segmentation.DefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Error: "k must be a positive integer"})
			return
		}
		k = parsed
	}

	result, err := s.svc.SegmentCustomers(r.Context(), k)
	if err != nil {
		s.writeError(w, "segmentation", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoanRisk(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.ScoreLoanRisk(r.Context())
	if err != nil {
		s.writeError(w, "loan_risk", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFeeOptimization(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.OptimizeFees(r.Context())
	if err != nil {
		s.writeError(w, "fee_optimization", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError maps the error taxonomy to distinct caller-visible statuses.
// Unexpected errors report generically; internals never leak.
func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	var insufficient *models.InsufficientDataError
	var schemaErr *models.FeatureSchemaError

	switch {
	case errors.Is(err, models.ErrNoData):
		writeJSON(w, http.StatusNotFound, errorBody{
			Code:  "no_data",
			Error: "no data available; load source data first",
		})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Code:  "insufficient_data",
			Error: insufficient.Error(),
		})
	case errors.Is(err, models.ErrArtifactMissing):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Code:  "artifact_missing",
			Error: "no trained model available; run training first",
		})
	case errors.As(err, &schemaErr):
		// Train/serve skew is a bug; log loudly but keep the payload clean
		logger.Error("feature schema mismatch",
			zap.String("operation", operation),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:  "feature_schema_mismatch",
			Error: schemaErr.Error(),
		})
	default:
		logger.Error("operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:  "internal_error",
			Error: "internal error",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
