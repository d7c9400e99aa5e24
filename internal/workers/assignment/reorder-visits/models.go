package reordervisits

import (
	"time"

	"dispatch-workers/internal/common/config"
	"dispatch-workers/internal/models"
)

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
	DoctorName    string `json:"doctorName"`
	AppointmentID string `json:"appointmentId"`
	NewOrder      int    `json:"newOrder"`
}

// SequenceEntry is one stop of the doctor's list after the move.
type SequenceEntry struct {
	AppointmentID string `json:"appointmentId"`
	OrderNumber   int    `json:"orderNumber"`
	CustomerName  string `json:"customerName,omitempty"`
	VisitDate     string `json:"visitDate,omitempty"`
}

type Output struct {
	DoctorName string          `json:"doctorName"`
	Patches    []models.Patch  `json:"patches"`
	Sequence   []SequenceEntry `json:"sequence"`
}
