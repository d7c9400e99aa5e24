// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"dispatch-workers/internal/common/errors"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/metrics"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobRunner does the bookkeeping shared by every handler: metrics, timeout, input validation,
// completion and error reporting.
type JobRunner struct {
	TaskType string
	Timeout  time.Duration
	Logger   logger.Logger
	Obs      *observability.Observability

	errorHandler *errors.ErrorHandler
}

func NewJobRunner(taskType string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JobRunner{
		TaskType:     taskType,
		Timeout:      timeout,
		Logger:       log,
		Obs:          obs,
		errorHandler: errors.NewErrorHandler(log),
	}
}

// Run validates the job variables against schema, runs execute and completes or fails the job.
func (r *JobRunner) Run(client worker.JobClient, job entities.Job, schema validation.JSONSchema, execute func(ctx context.Context, variables string) (interface{}, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	r.Logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"retries":            job.GetRetries(),
	})

	output, err := r.execute(ctx, job, schema, execute)
	if err != nil {
		r.fail(ctx, client, job, err, start)
		return
	}

	if err := CompleteJob(ctx, client, job, output); err != nil {
		r.Logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		r.record(ctx, "complete_failed", start)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(time.Since(start).Seconds())
	r.record(ctx, "completed", start)
	r.Logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func (r *JobRunner) execute(ctx context.Context, job entities.Job, schema validation.JSONSchema, execute func(ctx context.Context, variables string) (interface{}, error)) (interface{}, error) {
	variables := job.GetVariables()
	if variables == "" {
		variables = "{}"
	}
	if result := validation.ValidateJSON(variables, schema); !result.Valid {
		return nil, errors.NewInvalidInputError(result.Error())
	}
	return execute(ctx, variables)
}

func (r *JobRunner) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, ErrorCode(err)).Inc()
	r.errorHandler.HandleJobError(ctx, client, job, err)
	r.record(ctx, "failed", start)
}

func (r *JobRunner) record(ctx context.Context, status string, start time.Time) {
	r.Obs.RecordJobProcessed(ctx, r.TaskType, status)
	r.Obs.RecordJobDuration(ctx, r.TaskType, time.Since(start), status)
}

// ErrorCode returns the StandardError code carried by err, or INTERNAL_ERROR.
func ErrorCode(err error) string {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return string(errors.ErrCodeInternal)
}

// DecodeVariables unmarshals validated job variables into target.
func DecodeVariables(variables string, target interface{}) error {
	if err := json.Unmarshal([]byte(variables), target); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return nil
}
