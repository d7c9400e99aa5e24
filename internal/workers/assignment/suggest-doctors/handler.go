package suggestdoctors

import (
	"context"
	"fmt"

	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/dispatch/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "suggest-doctors"

type Suggester interface {
	Suggest(ctx context.Context, appointmentID string, topK int, overrides *scoring.WeightOverrides) (*dispatch.SuggestResult, error)
}

type Handler struct {
	config    *Config
	suggester Suggester
	logger    logger.Logger
	runner    *camunda.JobRunner
}

func NewHandler(cfg *Config, suggester Suggester, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    cfg,
		suggester: suggester,
		logger:    log,
		runner:    camunda.NewJobRunner(TaskType, cfg.Timeout, log, obs),
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

// resolveTopK fills in the default before capping, so an omitted topK is capped too.
func (h *Handler) resolveTopK(requested int) int {
	topK := requested
	if topK <= 0 {
		topK = h.config.DefaultTopK
	}
	if topK <= 0 || topK > h.config.MaxTopK {
		topK = h.config.MaxTopK
	}
	return topK
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	topK := h.resolveTopK(input.TopK)

	res, err := h.suggester.Suggest(ctx, input.AppointmentID, topK, input.Weights)
	if err != nil {
		return nil, err
	}

	if len(res.Suggestions) == 0 {
		h.logger.Info("no doctors suggested", map[string]interface{}{
			"appointmentId": input.AppointmentID,
			"reason":        res.Reason,
		})
	} else {
		h.logger.Info("doctors suggested", map[string]interface{}{
			"appointmentId": input.AppointmentID,
			"count":         len(res.Suggestions),
			"top":           res.Suggestions[0].Doctor.Name,
			"topScore":      res.Suggestions[0].TotalScore,
		})
	}

	return &Output{
		AppointmentID:   input.AppointmentID,
		Suggestions:     res.Suggestions,
		SuggestionCount: len(res.Suggestions),
		Reason:          res.Reason,
	}, nil
}
