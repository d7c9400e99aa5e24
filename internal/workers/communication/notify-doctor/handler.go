package notifydoctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dispatch-workers/internal/common/camunda"
	"dispatch-workers/internal/common/errors"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/observability"
	"dispatch-workers/internal/common/validation"
	"dispatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "notify-doctor"

type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// SMSSender is satisfied by aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	store  SnapshotLoader
	sms    SMSSender
	logger logger.Logger
	runner *camunda.JobRunner
}

func NewHandler(cfg *Config, store SnapshotLoader, sms SMSSender, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if cfg.SMSEnabled && sms == nil {
		return nil, fmt.Errorf("invalid configuration for %s: sms enabled without a sender", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: cfg,
		store:  store,
		sms:    sms,
		logger: log,
		runner: camunda.NewJobRunner(TaskType, cfg.Timeout, log, obs),
	}, nil
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"appointmentId"},
		Properties: map[string]validation.Property{
			"appointmentId": {
				Type:        "string",
				Description: "Assigned appointment whose doctor is notified",
				MinLength:   validation.IntPtr(1),
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
	snap, err := h.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, errors.NewSnapshotLoadFailedError(err)
	}

	appt, ok := snap.FindAppointment(input.AppointmentID)
	if !ok {
		return nil, errors.NewAppointmentNotFoundError(input.AppointmentID)
	}
	if !appt.IsAssigned() {
		return nil, errors.NewAppointmentNotAssignedError(appt.ID, "")
	}
	doctor, ok := snap.FindDoctor(appt.DoctorName)
	if !ok {
		return nil, errors.NewDoctorNotFoundError(appt.DoctorName)
	}

	out := &Output{
		NotificationID: uuid.NewString(),
		Status:         StatusSkipped,
		DoctorName:     doctor.Name,
		OrderNumber:    appt.OrderNumber,
		SentAt:         time.Now().UTC(),
	}

	if !h.config.SMSEnabled {
		h.logger.Info("sms disabled, notification skipped", map[string]interface{}{
			"appointmentId":  appt.ID,
			"notificationId": out.NotificationID,
		})
		return out, nil
	}

	if !validation.ValidatePhone(doctor.Phone) {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("doctor %s has no valid E.164 phone number", doctor.Name))
	}

	messageID, err := h.sms.SendSMS(ctx, doctor.Phone, BuildMessage(doctor, appt))
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("sms", err)
	}

	out.MessageID = messageID
	out.Status = StatusSent
	h.logger.Info("doctor notified", map[string]interface{}{
		"appointmentId":  appt.ID,
		"doctorName":     doctor.Name,
		"notificationId": out.NotificationID,
		"messageId":      messageID,
	})
	return out, nil
}

// BuildMessage renders the SMS text for a newly assigned visit.
func BuildMessage(doctor models.Doctor, appt models.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, new visit #%d on %s", doctor.Name, appt.OrderNumber, appt.VisitDate)
	if appt.VisitTime != "" {
		fmt.Fprintf(&b, " %s", appt.VisitTime)
	}
	b.WriteString(":")
	if appt.CustomerName != "" {
		fmt.Fprintf(&b, " %s", appt.CustomerName)
	}
	fmt.Fprintf(&b, " (%s, %s)", appt.PetType, appt.Issue)
	if appt.Location != "" {
		fmt.Fprintf(&b, " at %s", appt.Location)
	}
	b.WriteString(".")
	return b.String()
}
