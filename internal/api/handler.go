// Package api exposes the pipeline service over HTTP.
package api

import (
	"context"
	"net/http"

	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/validation"
	"hiring-pipeline/internal/models"
)

// PipelineService is the subset of *pipeline.Service the handlers call.
type PipelineService interface {
	GetCandidate(ctx context.Context, tenantID, id string) (*models.Candidate, error)
	ListCandidates(ctx context.Context, tenantID string, filter models.CandidateFilter) ([]*models.Candidate, error)
	SearchCandidates(ctx context.Context, tenantID, query string) ([]*models.Candidate, error)
	NextStages(ctx context.Context, tenantID, id string) ([]models.Stage, error)
	CreateCandidate(ctx context.Context, tenantID string, input models.CandidateInput, actorID string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, tenantID, id string, patch models.CandidatePatch, actorID string) (*models.Candidate, error)
	DeleteCandidate(ctx context.Context, tenantID, id, actorID string) error
	UpdateStage(ctx context.Context, tenantID, id, stage, actorID string) (*models.Candidate, error)
	RecordScore(ctx context.Context, tenantID, id string, score models.ScoreEntry) (*models.Candidate, error)
	AddNote(ctx context.Context, tenantID, id, text, authorID string) (*models.Candidate, error)
	BulkImport(ctx context.Context, tenantID string, records []models.CandidateInput, actorID string) (*models.BulkImportResult, error)
	Ping(ctx context.Context) error
}

type API struct {
	svc    PipelineService
	logger logger.Logger
}

func NewAPI(svc PipelineService, log logger.Logger) *API {
	return &API{svc: svc, logger: logger.ForComponent(log, "http-api")}
}

// StageRequest moves a candidate to another stage.
type StageRequest struct {
	Stage string `json:"stage" example:"screening"`
}

// NoteRequest adds a free-text note.
type NoteRequest struct {
	Text string `json:"text" example:"Strong systems design answers"`
}

// ScoreRequest records one reviewer's rubric score. The reviewer is the caller.
type ScoreRequest struct {
	RubricID   string                 `json:"rubricId" example:"backend-v2"`
	Values     map[string]interface{} `json:"values,omitempty"`
	FinalScore float64                `json:"finalScore" example:"4"`
	Comments   string                 `json:"comments,omitempty"`
}

// NextStagesResponse lists the legal next stages.
type NextStagesResponse struct {
	CandidateID string         `json:"candidateId"`
	Next        []models.Stage `json:"next"`
}

func identity(r *http.Request) Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

// ListCandidates lists the organisation's candidates
// @Summary List candidates
// @Description Newest first, optionally filtered by job and stage
// @Tags candidates
// @Produce json
// @Param jobId query string false "Position applied for"
// @Param stage query string false "Pipeline stage"
// @Success 200 {array} models.Candidate
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /candidates [get]
func (a *API) ListCandidates(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	filter := models.CandidateFilter{
		JobID: r.URL.Query().Get("jobId"),
		Stage: models.Stage(r.URL.Query().Get("stage")),
	}

	list, err := a.svc.ListCandidates(r.Context(), id.OrgID, filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateCandidate adds a candidate in the applied stage
// @Summary Create candidate
// @Tags candidates
// @Accept json
// @Produce json
// @Param candidate body models.CandidateInput true "Candidate profile"
// @Success 201 {object} models.Candidate
// @Failure 400 {object} ErrorResponse
// @Router /candidates [post]
func (a *API) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	var input models.CandidateInput
	if err := decodeBody(w, r, maxBodyBytes, validation.SchemaCandidateInput, &input); err != nil {
		a.writeError(w, r, err)
		return
	}

	c, err := a.svc.CreateCandidate(r.Context(), id.OrgID, input, id.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// BulkImport creates many candidates and reports each record's outcome
// @Summary Bulk import candidates
// @Tags candidates
// @Accept json
// @Produce json
// @Param candidates body []models.CandidateInput true "Candidate profiles"
// @Success 200 {object} models.BulkImportResult
// @Failure 400 {object} ErrorResponse
// @Router /candidates/bulk [post]
func (a *API) BulkImport(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	var records []models.CandidateInput
	if err := decodeBody(w, r, maxBulkBodyBytes, "", &records); err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.svc.BulkImport(r.Context(), id.OrgID, records, id.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchCandidates full-text searches the organisation's candidates
// @Summary Search candidates
// @Tags candidates
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {array} models.Candidate
// @Failure 400 {object} ErrorResponse
// @Router /candidates/search [get]
func (a *API) SearchCandidates(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	found, err := a.svc.SearchCandidates(r.Context(), id.OrgID, r.URL.Query().Get("q"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// GetCandidate returns one candidate
// @Summary Get candidate
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} models.Candidate
// @Failure 404 {object} ErrorResponse
// @Router /candidates/{id} [get]
func (a *API) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	c, err := a.svc.GetCandidate(r.Context(), id.OrgID, r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCandidate patches profile fields
// @Summary Update candidate profile
// @Description Stage, scores, timeline and notes cannot be patched. Emails and phones are appended.
// @Tags candidates
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param patch body models.CandidatePatch true "Fields to change"
// @Success 200 {object} models.Candidate
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /candidates/{id} [put]
func (a *API) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	var patch models.CandidatePatch
	if err := decodeBody(w, r, maxBodyBytes, validation.SchemaCandidatePatch, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}

	c, err := a.svc.UpdateCandidate(r.Context(), id.OrgID, r.PathValue("id"), patch, id.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCandidate permanently removes a candidate
// @Summary Delete candidate
// @Tags candidates
// @Param id path string true "Candidate ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /candidates/{id} [delete]
func (a *API) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	if err := a.svc.DeleteCandidate(r.Context(), id.OrgID, r.PathValue("id"), id.UserID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStage moves a candidate through the pipeline
// @Summary Change candidate stage
// @Description Requires role recruiter, manager or admin
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param stage body StageRequest true "Target stage"
// @Success 200 {object} models.Candidate
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /candidates/{id}/stage [put]
func (a *API) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := requireRole(id, stageRoles); err != nil {
		a.writeError(w, r, err)
		return
	}

	var req StageRequest
	if err := decodeBody(w, r, maxBodyBytes, validation.SchemaStageUpdate, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	c, err := a.svc.UpdateStage(r.Context(), id.OrgID, r.PathValue("id"), req.Stage, id.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// NextStages lists where a candidate can move next
// @Summary Legal next stages
// @Tags pipeline
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} NextStagesResponse
// @Failure 404 {object} ErrorResponse
// @Router /candidates/{id}/next-stages [get]
func (a *API) NextStages(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	candidateID := r.PathValue("id")

	next, err := a.svc.NextStages(r.Context(), id.OrgID, candidateID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NextStagesResponse{CandidateID: candidateID, Next: next})
}

// AddNote appends a note to the candidate
// @Summary Add note
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param note body NoteRequest true "Note"
// @Success 201 {object} models.Candidate
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /candidates/{id}/notes [post]
func (a *API) AddNote(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	var req NoteRequest
	if err := decodeBody(w, r, maxBodyBytes, validation.SchemaNote, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	c, err := a.svc.AddNote(r.Context(), id.OrgID, r.PathValue("id"), req.Text, id.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// RecordScore adds the caller's rubric score
// @Summary Record score
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param score body ScoreRequest true "Score"
// @Success 201 {object} models.Candidate
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /candidates/{id}/scores [post]
func (a *API) RecordScore(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	var req ScoreRequest
	if err := decodeBody(w, r, maxBodyBytes, validation.SchemaScore, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	c, err := a.svc.RecordScore(r.Context(), id.OrgID, r.PathValue("id"), models.ScoreEntry{
		UserID:     id.UserID,
		RubricID:   req.RubricID,
		Values:     req.Values,
		FinalScore: req.FinalScore,
		Comments:   req.Comments,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Ready reports whether the store answers
// @Summary Readiness probe
// @Tags ops
// @Success 200
// @Failure 503 {object} ErrorResponse
// @Router /ready [get]
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Ping(r.Context()); err != nil {
		a.writeError(w, r, errors.NewStorageError("ping", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
