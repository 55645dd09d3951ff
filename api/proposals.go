package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"proposal-cost/db/postgres"
	"proposal-cost/pkg/jsondiff"
)

// SaveVersionRequest estimates a request and stores it as the next proposal version
type SaveVersionRequest struct {
	Label   string           `json:"label"`
	Request CalculateRequest `json:"request"`
}

// VersionSummary describes a stored version without its payloads
type VersionSummary struct {
	ProposalID string   `json:"proposal_id"`
	Version    int      `json:"version"`
	Label      string   `json:"label,omitempty"`
	Modules    []string `json:"modules"`
	TotalCost  float64  `json:"total_cost"`
	CreatedAt  string   `json:"created_at"`
}

// DiffResponse lists what changed between two versions
type DiffResponse struct {
	ProposalID    string            `json:"proposal_id"`
	From          int               `json:"from"`
	To            int               `json:"to"`
	InputChanges  []jsondiff.Change `json:"input_changes"`
	ResultChanges []jsondiff.Change `json:"result_changes"`
}

func summarize(v *postgres.ProposalVersion) VersionSummary {
	return VersionSummary{
		ProposalID: v.ProposalID.String(),
		Version:    v.Version,
		Label:      v.Label,
		Modules:    v.Modules,
		TotalCost:  v.TotalCost.InexactFloat64(),
		CreatedAt:  v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// proposalID parses the path id; it writes the error response itself on failure.
func (s *Server) proposalID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if s.versions == nil {
		s.jsonError(w, http.StatusNotImplemented, "version store not configured")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "proposal id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleSaveVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := s.proposalID(w, r)
	if !ok {
		return
	}

	var req SaveVersionRequest
	if !s.decode(w, r, &req) {
		return
	}

	est, err := s.calculate(r.Context(), req.Request)
	if err != nil {
		s.estimationError(w, err)
		return
	}

	input, err := json.Marshal(req.Request.ToInput())
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to encode input")
		return
	}
	// the estimated_at stamp would show up in every diff
	stable := *est
	stable.Snapshot.EstimateAt = ""
	result, err := json.Marshal(stable)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to encode result")
		return
	}

	v := &postgres.ProposalVersion{
		ProposalID: id,
		Label:      req.Label,
		Modules:    req.Request.Modules,
		Input:      input,
		Result:     result,
		TotalCost:  decimal.NewFromFloat(est.TotalCost),
	}

	if err := s.versions.SaveVersion(r.Context(), v); err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			s.jsonError(w, http.StatusConflict, "concurrent version write, retry")
			return
		}
		s.logger.Error("failed to save version", "error", err, "proposal_id", id.String())
		s.jsonError(w, http.StatusInternalServerError, "failed to save version")
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]interface{}{
		"version":  summarize(v),
		"estimate": est,
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.proposalID(w, r)
	if !ok {
		return
	}

	versions, err := s.versions.ListVersions(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list versions", "error", err, "proposal_id", id.String())
		s.jsonError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}

	resp := make([]VersionSummary, len(versions))
	for i, v := range versions {
		resp[i] = summarize(v)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	id, ok := s.proposalID(w, r)
	if !ok {
		return
	}

	from, errFrom := strconv.Atoi(r.URL.Query().Get("from"))
	to, errTo := strconv.Atoi(r.URL.Query().Get("to"))
	if errFrom != nil || errTo != nil || from < 1 || to < 1 {
		s.jsonError(w, http.StatusBadRequest, "from and to must be positive version numbers")
		return
	}

	left, err := s.versions.GetVersion(r.Context(), id, from)
	if err != nil {
		s.versionError(w, err, from)
		return
	}
	right, err := s.versions.GetVersion(r.Context(), id, to)
	if err != nil {
		s.versionError(w, err, to)
		return
	}

	inputChanges, err := jsondiff.Diff(left.Input, right.Input)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "stored input is not valid JSON")
		return
	}
	resultChanges, err := jsondiff.Diff(left.Result, right.Result)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "stored result is not valid JSON")
		return
	}

	s.jsonResponse(w, http.StatusOK, DiffResponse{
		ProposalID:    id.String(),
		From:          from,
		To:            to,
		InputChanges:  inputChanges,
		ResultChanges: resultChanges,
	})
}

func (s *Server) versionError(w http.ResponseWriter, err error, version int) {
	if errors.Is(err, postgres.ErrNotFound) {
		s.jsonError(w, http.StatusNotFound, "version "+strconv.Itoa(version)+" not found")
		return
	}
	s.logger.Error("failed to load version", "error", err, "version", version)
	s.jsonError(w, http.StatusInternalServerError, "failed to load version")
}
