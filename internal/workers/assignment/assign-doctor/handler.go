package assigndoctor

import (
	"context"
	"fmt"

	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/errors"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/dispatch/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "assign-doctor"

type Assigner interface {
	Assign(ctx context.Context, appointmentID, doctorName string) (*dispatch.Result, error)
	AutoAssign(ctx context.Context, appointmentID string, overrides *scoring.WeightOverrides) (*dispatch.Result, *scoring.DoctorScore, error)
}

type Handler struct {
	config   *Config
	assigner Assigner
	logger   logger.Logger
	runner   *camunda.JobRunner
}

func NewHandler(cfg *Config, assigner Assigner, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		assigner: assigner,
		logger:   log,
		runner:   camunda.NewJobRunner(TaskType, cfg.Timeout, log, obs),
	}, nil
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
	if input.AutoSelect && input.DoctorName != "" {
		return nil, errors.NewInvalidInputError("doctorName and autoSelect are mutually exclusive")
	}

	var (
		res        *dispatch.Result
		suggestion *scoring.DoctorScore
		err        error
	)
	if input.AutoSelect {
		res, suggestion, err = h.assigner.AutoAssign(ctx, input.AppointmentID, input.Weights)
	} else {
		res, err = h.assigner.Assign(ctx, input.AppointmentID, input.DoctorName)
	}
	if err != nil {
		return nil, err
	}

	out := &Output{
		AppointmentID:  input.AppointmentID,
		PreviousDoctor: res.Previous.DoctorName,
		Patches:        res.Plan.Patches,
		Suggestion:     suggestion,
	}
	for _, a := range res.Appointments {
		if a.ID == input.AppointmentID {
			out.DoctorName = a.DoctorName
			out.OrderNumber = a.OrderNumber
			break
		}
	}

	h.logger.Info("appointment assigned", map[string]interface{}{
		"appointmentId":  out.AppointmentID,
		"doctorName":     out.DoctorName,
		"orderNumber":    out.OrderNumber,
		"previousDoctor": out.PreviousDoctor,
		"autoSelect":     input.AutoSelect,
		"patches":        len(out.Patches),
	})
	return out, nil
}
