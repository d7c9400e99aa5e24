package doctorschedule

import (
	"context"
	"fmt"
	"math"

	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/common/validation"
	"dispatch-workers/internal/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "doctor-schedule"

type Scheduler interface {
	Schedule(ctx context.Context, doctorName, visitDate string) (*dispatch.Schedule, error)
}

type Handler struct {
	scheduler Scheduler
	logger    logger.Logger
	runner    *camunda.JobRunner
}

func NewHandler(cfg *Config, scheduler Scheduler, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration for %s: timeout must be positive", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		scheduler: scheduler,
		logger:    log,
		runner:    camunda.NewJobRunner(TaskType, cfg.Timeout, log, obs),
	}, nil
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"doctorName"},
		Properties: map[string]validation.Property{
			"doctorName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"visitDate": {
				Type:        "string",
				Description: "Only include visits on this date (YYYY-MM-DD)",
				Pattern:     validation.StringPtr(`^\d{4}-\d{2}-\d{2}$`),
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
	sched, err := h.scheduler.Schedule(ctx, input.DoctorName, input.VisitDate)
	if err != nil {
		return nil, err
	}

	out := &Output{
		DoctorName:      sched.Doctor.Name,
		Color:           sched.Color,
		StartLocation:   sched.Doctor.StartLocation,
		Visits:          make([]VisitOutput, 0, len(sched.Visits)),
		VisitCount:      len(sched.Visits),
		TotalDistanceKm: round2(sched.TotalDistanceKm),
		TotalMinutes:    sched.TotalMinutes,
	}
	for _, v := range sched.Visits {
		a := v.Appointment
		vo := VisitOutput{
			AppointmentID: a.ID,
			OrderNumber:   a.OrderNumber,
			CustomerName:  a.CustomerName,
			PetType:       a.PetType,
			Issue:         a.Issue,
			Location:      a.Location,
			VisitDate:     a.VisitDate,
			VisitTime:     a.VisitTime,
			Status:        string(a.Status),
		}
		if v.HasLeg {
			km := round2(v.LegDistanceKm)
			minutes := v.LegMinutes
			vo.LegDistanceKm = &km
			vo.LegMinutes = &minutes
		}
		out.Visits = append(out.Visits, vo)
	}

	h.logger.Debug("schedule built", map[string]interface{}{
		"doctorName": input.DoctorName,
		"visitDate":  input.VisitDate,
		"visits":     out.VisitCount,
	})
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
