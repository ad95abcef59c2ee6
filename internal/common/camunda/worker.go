package camunda

import (
	"context"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler processes one activated job. The handler completes or fails the
// job itself; a returned error is only logged.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// WorkerOptions configures a job worker subscription.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// NewWorker opens a job worker subscription for opts.TaskType.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	builder := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			metrics.WorkerJobsActive.WithLabelValues(opts.TaskType).Inc()
			defer metrics.WorkerJobsActive.WithLabelValues(opts.TaskType).Dec()

			if err := handler.Handle(jc, job); err != nil {
				log.Error("job handler returned error", map[string]interface{}{
					"taskType": opts.TaskType,
					"jobKey":   job.Key,
					"error":    err.Error(),
				})
			}
		}).
		MaxJobsActive(opts.MaxJobsActive)

	if opts.Timeout > 0 {
		builder = builder.Timeout(opts.Timeout)
	}

	return &CamundaWorker{
		worker:   builder.Open(),
		logger:   log,
		taskType: opts.TaskType,
	}
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", map[string]interface{}{"taskType": w.taskType})
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})

	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop before deadline", map[string]interface{}{"taskType": w.taskType})
	}
}
