package releasedoctor

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

const TaskType = "release-doctor"

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
	DoctorName string `json:"doctorName"`
}

type Output struct {
	DoctorName     string         `json:"doctorName"`
	Patches        []models.Patch `json:"patches"`
	ReleasedCount  int            `json:"releasedCount"`
	AppointmentIDs []string       `json:"appointmentIds"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"doctorName"},
		Properties: map[string]validation.Property{
			"doctorName": {
				Type:        "string",
				Description: "Doctor leaving the roster; all of their visits are unassigned",
				MinLength:   validation.IntPtr(1),
			},
		},
	}
}

type Releaser interface {
	Release(ctx context.Context, doctorName string) (*dispatch.Result, error)
}

// Handler frees every appointment of a doctor who is removed from the roster. Removing the
// doctor record itself is left to the roster service.
type Handler struct {
	releaser Releaser
	logger   logger.Logger
	runner   *camunda.JobRunner
}

func NewHandler(cfg *Config, releaser Releaser, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration for %s: timeout must be positive", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		releaser: releaser,
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
	res, err := h.releaser.Release(ctx, input.DoctorName)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Plan.Patches))
	for _, p := range res.Plan.Patches {
		ids = append(ids, p.AppointmentID)
	}

	h.logger.Info("doctor released", map[string]interface{}{
		"doctorName": input.DoctorName,
		"released":   len(ids),
	})
	return &Output{
		DoctorName:     input.DoctorName,
		Patches:        res.Plan.Patches,
		ReleasedCount:  len(ids),
		AppointmentIDs: ids,
	}, nil
}
