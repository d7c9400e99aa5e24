// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports a failed job back to Zeebe. Retryable codes fail the job with a
// backoff so the engine re-activates it; everything else is thrown as a BPMN error.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// RetryBackoff is how long Zeebe waits before re-activating a job that failed with code.
func RetryBackoff(code ErrorCode) time.Duration {
	switch code {
	case ErrCodeLockUnavailable, ErrCodeAssignmentConflict:
		// the competing operation holds its locks for milliseconds
		return 500 * time.Millisecond
	case ErrCodeNotificationSendFailed, ErrCodeExternalService, ErrCodeTimeout:
		return 5 * time.Second
	default:
		return 2 * time.Second
	}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := h.normalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	fields := jobFields(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 && job.Retries > 1 {
		retries := remainingRetries(job, bpmnErr.Retries)
		backoff := RetryBackoff(stdErr.Code)
		fields["retriesLeft"] = retries
		fields["backoff"] = backoff.String()
		h.logger.Warn("job failed, retrying", fields)

		if sendErr := h.failJob(ctx, client, job, bpmnErr, retries, backoff); sendErr != nil {
			fields["sendError"] = sendErr.Error()
			h.logger.Error("fail job command rejected", fields)
		}
		return
	}

	h.logger.Error("job failed, throwing BPMN error", fields)
	if sendErr := h.throwBPMNError(ctx, client, job, bpmnErr); sendErr != nil {
		fields["sendError"] = sendErr.Error()
		h.logger.Error("throw error command rejected", fields)
	}
}

// normalizeError ensures we always have a StandardError, unwrapping where needed.
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// remainingRetries caps the suggested retry count by what the job has left. job.Retries
// includes the attempt that just failed.
func remainingRetries(job entities.Job, suggested int) int {
	if left := int(job.Retries) - 1; left < suggested {
		return left
	}
	return suggested
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int, backoff time.Duration) error {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		RetryBackoff(backoff).
		ErrorMessage(incidentMessage(bpmnErr))

	if vars := encodeVariables(bpmnErr); vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			return err
		}
	}
	_, err := cmd.Send(ctx)
	return err
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) error {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(incidentMessage(bpmnErr))

	if vars := encodeVariables(bpmnErr); vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			return err
		}
	}
	_, err := cmd.Send(ctx)
	return err
}

// incidentMessage is what operators see in Operate, so it carries the details too.
func incidentMessage(bpmnErr *BPMNError) string {
	if bpmnErr.Details == "" {
		return bpmnErr.Message
	}
	return bpmnErr.Message + ": " + bpmnErr.Details
}

func encodeVariables(bpmnErr *BPMNError) string {
	vars := bpmnErr.ToErrorVariables()
	if len(vars) == 0 {
		return ""
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return ""
	}
	return string(raw)
}

func jobFields(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) map[string]interface{} {
	fields := map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"processInstanceKey": job.ProcessInstanceKey,
		"errorCode":          string(stdErr.Code),
		"errorCategory":      GetErrorCategory(stdErr.Code),
		"message":            stdErr.Message,
		"details":            stdErr.Details,
	}
	// dispatch context attached by the dispatcher, e.g. appointmentId and operation
	for k, v := range stdErr.Metadata {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	if bpmnErr.Code != string(stdErr.Code) {
		fields["bpmnErrorCode"] = bpmnErr.Code
	}
	return fields
}
