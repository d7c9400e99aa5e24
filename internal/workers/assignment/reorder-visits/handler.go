package reordervisits

import (
	"context"
	"fmt"

	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/common/validation"
	"dispatch-workers/internal/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "reorder-visits"

type Reorderer interface {
	Reorder(ctx context.Context, doctorName, appointmentID string, newOrder int) (*dispatch.Result, error)
}

type Handler struct {
	reorderer Reorderer
	logger    logger.Logger
	runner    *camunda.JobRunner
}

func NewHandler(cfg *Config, reorderer Reorderer, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration for %s: timeout must be positive", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		reorderer: reorderer,
		logger:    log,
		runner:    camunda.NewJobRunner(TaskType, cfg.Timeout, log, obs),
	}, nil
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"doctorName", "appointmentId", "newOrder"},
		Properties: map[string]validation.Property{
			"doctorName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"appointmentId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"newOrder": {
				Type:        "integer",
				Description: "1-based target position in the doctor's visit list",
				Minimum:     validation.FloatPtr(1),
			},
		},
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, GetInputSchema(), func(ctx context.Context, variables string) (interface{}, error) {
		var input Input
		if err := camunda.DecodeVariables(variables, &input); err != nil {
			return nil, err
		}
		output, err := h.Execute(ctx, &input)
		if err != nil {
			return nil, err
		}
		return output, nil
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.reorderer.Reorder(ctx, input.DoctorName, input.AppointmentID, input.NewOrder)
	if err != nil {
		return nil, err
	}

	list := res.VisitList(input.DoctorName)
	sequence := make([]SequenceEntry, 0, len(list))
	for _, a := range list {
		sequence = append(sequence, SequenceEntry{
			AppointmentID: a.ID,
			OrderNumber:   a.OrderNumber,
			CustomerName:  a.CustomerName,
			VisitDate:     a.VisitDate,
		})
	}

	h.logger.Info("visits reordered", map[string]interface{}{
		"doctorName":    input.DoctorName,
		"appointmentId": input.AppointmentID,
		"newOrder":      input.NewOrder,
		"changed":       len(res.Plan.Patches),
	})
	return &Output{
		DoctorName: input.DoctorName,
		Patches:    res.Plan.Patches,
		Sequence:   sequence,
	}, nil
}
