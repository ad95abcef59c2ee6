package updatecandidatestage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/common/observability"
	"hiring-pipeline/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-candidate-stage"
)

// StageUpdater is the slice of the pipeline service the worker drives.
type StageUpdater interface {
	UpdateStage(ctx context.Context, tenantID, id, stage, actorID string) (*models.Candidate, error)
}

type Handler struct {
	config       *Config
	svc          StageUpdater
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, svc StageUpdater, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = observability.NewNoop()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		svc:          svc,
		errorHandler: errors.NewErrorHandler(l),
		obs:          obs,
		logger:       l,
	}
}

// Handle moves the candidate named in the job variables to the requested
// stage. Business failures are thrown as BPMN errors; storage and timeout
// failures fail the job so Zeebe retries it.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.fail(ctx, client, job, start, errors.NewValidationError("parse input: "+err.Error(), nil))
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		return h.fail(ctx, client, job, start, err)
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return h.fail(ctx, client, job, start, errors.NewInternalError(err))
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return fmt.Errorf("complete job %d: %w", job.Key, err)
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":        job.Key,
		"candidateId":   output.CandidateID,
		"previousStage": output.PreviousStage,
		"stage":         output.Stage,
	})
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) error {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errorHandler.HandleJobError(context.WithoutCancel(ctx), client, job, stdErr)
	return stdErr
}

// Execute validates the input and applies the transition.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateStage(ctx, input.TenantID, input.CandidateID, input.Stage, input.ActorID)
	if err != nil {
		return nil, err
	}

	return &Output{
		CandidateID:    updated.ID,
		PreviousStage:  string(previousStage(updated)),
		Stage:          string(updated.Stage),
		TimelineLength: len(updated.Timeline),
		UpdatedAt:      updated.UpdatedAt,
	}, nil
}

// previousStage reads the origin of the transition just appended.
func previousStage(c *models.Candidate) models.Stage {
	for i := len(c.Timeline) - 1; i >= 0; i-- {
		if c.Timeline[i].Action == models.ActionStatusChange {
			return c.Timeline[i].From
		}
	}
	return ""
}

func validateInput(input *Input) error {
	var missing []string
	if strings.TrimSpace(input.TenantID) == "" {
		missing = append(missing, "tenantId is required")
	}
	if strings.TrimSpace(input.CandidateID) == "" {
		missing = append(missing, "candidateId is required")
	}
	if strings.TrimSpace(input.Stage) == "" {
		missing = append(missing, "stage is required")
	}
	if strings.TrimSpace(input.ActorID) == "" {
		missing = append(missing, "actorId is required")
	}
	if len(missing) > 0 {
		return errors.NewValidationError("invalid job input", missing)
	}
	return nil
}
