// Package api provides the HTTP API server for proposal cost estimation
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"proposal-cost/db/clickhouse"
	"proposal-cost/db/postgres"
	"proposal-cost/decision/catalog"
	"proposal-cost/decision/estimation"
	"proposal-cost/decision/policy"
	perrors "proposal-cost/pkg/errors"
	"proposal-cost/pkg/platform"
)

// RateSnapshots lists persisted rate cards.
type RateSnapshots interface {
	ListSnapshots(ctx context.Context, alias string) ([]*clickhouse.RateSnapshot, error)
	Ping(ctx context.Context) error
}

// RateRefresher installs the active persisted rate card into the holder.
type RateRefresher interface {
	Apply(ctx context.Context, alias string, holder *catalog.Holder) (*clickhouse.RateSnapshot, error)
}

// VersionStore persists proposal versions.
type VersionStore interface {
	SaveVersion(ctx context.Context, v *postgres.ProposalVersion) error
	GetVersion(ctx context.Context, proposalID uuid.UUID, version int) (*postgres.ProposalVersion, error)
	ListVersions(ctx context.Context, proposalID uuid.UUID) ([]*postgres.ProposalVersion, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP API server
type Server struct {
	httpServer   *http.Server
	holder       *catalog.Holder
	rateStore    RateSnapshots
	refresher    RateRefresher
	versions     VersionStore
	policyEngine *policy.Engine
	config       *Config
	logger       *slog.Logger
}

// Config holds server configuration
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
	CORSOrigins    []string
	RateAlias      string
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: int64(platform.GetEnvInt("PROPOSALCOST_MAX_REQUEST_BYTES", 1<<20)),
		CORSOrigins:    []string{"*"},
		RateAlias:      "default",
	}
}

// NewServer creates a new API server over the given catalog holder
func NewServer(holder *catalog.Holder, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		holder:       holder,
		policyEngine: policy.NewEngine(),
		config:       config,
		logger:       slog.Default(),
	}
}

// WithRateStore enables the persisted rate-card endpoints.
func (s *Server) WithRateStore(store RateSnapshots, refresher RateRefresher) *Server {
	s.rateStore = store
	s.refresher = refresher
	return s
}

// WithVersionStore enables the proposal version endpoints.
func (s *Server) WithVersionStore(store VersionStore) *Server {
	s.versions = store
	return s
}

func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /api/v1/modules", s.handleModules)
	mux.HandleFunc("POST /api/v1/calculate", s.handleCalculate)
	mux.HandleFunc("POST /api/v1/validate", s.handleValidate)
	mux.HandleFunc("GET /api/v1/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/v1/snapshots/refresh", s.handleRefreshRates)
	mux.HandleFunc("POST /api/v1/proposals/{id}/versions", s.handleSaveVersion)
	mux.HandleFunc("GET /api/v1/proposals/{id}/versions", s.handleListVersions)
	mux.HandleFunc("GET /api/v1/proposals/{id}/diff", s.handleDiff)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("api server starting", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.logger.Info("shutting down api server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Load()
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":          "healthy",
		"catalog_version": snap.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.rateStore != nil {
		if err := s.rateStore.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "rate store not ready")
			return
		}
	}
	if s.versions != nil {
		if err := s.versions.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "version store not ready")
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// =============================================================================
// CATALOG ENDPOINT
// =============================================================================

// ModulesResponse lists what can be estimated with the current snapshot
type ModulesResponse struct {
	CatalogVersion string           `json:"catalog_version"`
	FocusAreas     []string         `json:"focus_areas"`
	Modules        []catalog.Module `json:"modules"`
	Roles          []catalog.Role   `json:"roles"`
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Load()
	modules := snap.Catalog.Modules()

	if focus := r.URL.Query().Get("focus_area"); focus != "" {
		filtered := modules[:0]
		for _, m := range modules {
			if m.FocusArea == focus {
				filtered = append(filtered, m)
			}
		}
		modules = filtered
	}

	s.jsonResponse(w, http.StatusOK, ModulesResponse{
		CatalogVersion: snap.Version,
		FocusAreas:     snap.Catalog.FocusAreas(),
		Modules:        modules,
		Roles:          snap.Rates.Roles(),
	})
}

// =============================================================================
// ESTIMATE ENDPOINTS
// =============================================================================

// CalculateRequest is the API request for an estimate. Sites defaults to 1 when omitted.
type CalculateRequest struct {
	estimation.Input
	Sites     *int     `json:"sites,omitempty"`
	CostLimit *float64 `json:"cost_limit,omitempty"`
}

// ToInput resolves request defaults.
func (req CalculateRequest) ToInput() estimation.Input {
	in := req.Input
	in.Sites = 1
	if req.Sites != nil {
		in.Sites = *req.Sites
	}
	return in
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.calculate(r.Context(), req)
	if err != nil {
		s.estimationError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// calculate runs the engine against one consistent snapshot and evaluates guardrails
func (s *Server) calculate(ctx context.Context, req CalculateRequest) (*EstimateResponse, error) {
	snap := s.holder.Load()
	in := req.ToInput()

	result, err := estimation.NewEngineFromSnapshot(snap).WithLogger(s.logger).Estimate(in, snap.Catalog, snap.Rates)
	if err != nil {
		return nil, err
	}

	policyReq := policy.EvaluationRequest{Estimation: result}
	if req.CostLimit != nil {
		policyReq.CustomPolicies = append(policyReq.CustomPolicies, policy.Policy{
			ID:        "api-cost-limit",
			Name:      "Cost Limit",
			Type:      policy.PolicyTypeCostLimit,
			Severity:  policy.SeverityError,
			Threshold: *req.CostLimit,
			Enabled:   true,
		})
	}

	policyResult, err := s.policyEngine.Evaluate(ctx, policyReq)
	if err != nil {
		// Policy evaluation is non-fatal
		policyResult = &policy.EvaluationResult{
			Decision: policy.DecisionPass,
			Warnings: []policy.Warning{{Message: fmt.Sprintf("policy evaluation failed: %v", err)}},
		}
	}

	return NewEstimateResponse(result, policyResult, snap), nil
}

// ValidateResponse reports whether a request would produce an estimate
type ValidateResponse struct {
	Valid    bool                       `json:"valid"`
	Errors   []*perrors.EstimationError `json:"errors"`
	Warnings []string                   `json:"warnings"`
	Decision string                     `json:"policy_result,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp := ValidateResponse{
		Valid:    true,
		Errors:   make([]*perrors.EstimationError, 0),
		Warnings: make([]string, 0),
	}

	est, err := s.calculate(r.Context(), req)
	if err != nil {
		var ee *perrors.EstimationError
		if !perrors.IsUserError(err) || !errors.As(err, &ee) {
			s.estimationError(w, err)
			return
		}
		resp.Valid = false
		resp.Errors = append(resp.Errors, ee)
		s.jsonResponse(w, http.StatusOK, resp)
		return
	}

	resp.Warnings = append(resp.Warnings, est.Warnings...)
	for _, pw := range est.Policy.Warnings {
		resp.Warnings = append(resp.Warnings, pw.Message)
	}
	for _, v := range est.Policy.Violations {
		resp.Warnings = append(resp.Warnings, v.Message)
	}
	resp.Decision = string(est.Policy.Decision)
	s.jsonResponse(w, http.StatusOK, resp)
}

// =============================================================================
// SNAPSHOT ENDPOINTS
// =============================================================================

// SnapshotResponse describes a catalog or rate-card snapshot
type SnapshotResponse struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Source    string `json:"source"`
	Hash      string `json:"hash"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.rateStore == nil {
		snap := s.holder.Load()
		s.jsonResponse(w, http.StatusOK, []SnapshotResponse{{
			ID:        snap.ID.String(),
			Version:   snap.Version,
			Source:    snap.Source,
			Hash:      shortHash(snap.Hash),
			IsActive:  true,
			CreatedAt: snap.LoadedAt.Format(time.RFC3339),
		}})
		return
	}

	alias := r.URL.Query().Get("alias")
	if alias == "" {
		alias = s.config.RateAlias
	}

	snapshots, err := s.rateStore.ListSnapshots(r.Context(), alias)
	if err != nil {
		s.logger.Error("failed to list snapshots", "error", err, "alias", alias)
		s.jsonError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}

	resp := make([]SnapshotResponse, len(snapshots))
	for i, snap := range snapshots {
		resp[i] = SnapshotResponse{
			ID:        snap.ID.String(),
			Version:   snap.Version,
			Source:    snap.Source,
			Hash:      shortHash(snap.Hash),
			IsActive:  snap.IsActive,
			CreatedAt: snap.CreatedAt.Format(time.RFC3339),
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		s.jsonError(w, http.StatusNotImplemented, "rate store not configured")
		return
	}

	applied, err := s.refresher.Apply(r.Context(), s.config.RateAlias, s.holder)
	if err != nil {
		s.logger.Error("rate refresh failed", "error", err)
		s.jsonError(w, http.StatusInternalServerError, fmt.Sprintf("rate refresh failed: %v", err))
		return
	}
	if applied == nil {
		s.jsonError(w, http.StatusNotFound, "no active rate snapshot")
		return
	}

	snap := s.holder.Load()
	s.logger.Info("rate card applied", "rate_snapshot_id", applied.ID.String(), "snapshot_id", snap.ID.String())
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"rate_snapshot_id": applied.ID.String(),
		"snapshot_id":      snap.ID.String(),
		"hash":             shortHash(snap.Hash),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}
	return true
}

// estimationError maps engine errors: bad input is the caller's fault, a failed
// reconciliation is ours.
func (s *Server) estimationError(w http.ResponseWriter, err error) {
	var ee *perrors.EstimationError
	switch {
	case perrors.IsUserError(err) && errors.As(err, &ee):
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{
			"error": ee.Message,
			"code":  ee.Code,
			"field": ee.Field,
		})
	case perrors.IsInvariantError(err):
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"error": "estimate failed internal reconciliation",
			"code":  perrors.ErrCodeInternalInvariant,
		})
	default:
		s.logger.Error("estimation failed", "error", err)
		s.jsonError(w, http.StatusInternalServerError, "estimation failed")
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}
