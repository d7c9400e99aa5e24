package unassigndoctor

import (
	"context"
	"fmt"
	"time"

	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/config"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/common/validation"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "unassign-doctor"

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func NewConfig(appCfg *config.Config) *Config {
	wc := config.GetWorkerConfig(appCfg, TaskType)
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	}
}

type Input struct {
	AppointmentID string `json:"appointmentId"`
}

type Output struct {
	AppointmentID  string         `json:"appointmentId"`
	PreviousDoctor string         `json:"previousDoctor"`
	Patches        []models.Patch `json:"patches"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"appointmentId"},
		Properties: map[string]validation.Property{
			"appointmentId": {
				Type:        "string",
				Description: "Appointment to take off its doctor's visit list",
				MinLength:   validation.IntPtr(1),
			},
		},
	}
}

type Unassigner interface {
	Unassign(ctx context.Context, appointmentID string) (*dispatch.Result, error)
}

type Handler struct {
	unassigner Unassigner
	logger     logger.Logger
	runner     *camunda.JobRunner
}

func NewHandler(cfg *Config, unassigner Unassigner, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration for %s: timeout must be positive", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		unassigner: unassigner,
		logger:     log,
		runner:     camunda.NewJobRunner(TaskType, cfg.Timeout, log, obs),
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
	res, err := h.unassigner.Unassign(ctx, input.AppointmentID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("appointment unassigned", map[string]interface{}{
		"appointmentId":  input.AppointmentID,
		"previousDoctor": res.Previous.DoctorName,
		"patches":        len(res.Plan.Patches),
	})
	return &Output{
		AppointmentID:  input.AppointmentID,
		PreviousDoctor: res.Previous.DoctorName,
		Patches:        res.Plan.Patches,
	}, nil
}
