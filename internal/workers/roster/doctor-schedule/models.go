package doctorschedule

import (
	"time"

	"dispatch-workers/internal/common/config"
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
	DoctorName string `json:"doctorName"`
	VisitDate  string `json:"visitDate,omitempty"`
}

// VisitOutput is one stop. Leg fields are absent when the leg could not be measured.
type VisitOutput struct {
	AppointmentID string   `json:"appointmentId"`
	OrderNumber   int      `json:"orderNumber"`
	CustomerName  string   `json:"customerName,omitempty"`
	PetType       string   `json:"petType,omitempty"`
	Issue         string   `json:"issue,omitempty"`
	Location      string   `json:"location,omitempty"`
	VisitDate     string   `json:"visitDate"`
	VisitTime     string   `json:"visitTime,omitempty"`
	Status        string   `json:"status,omitempty"`
	LegDistanceKm *float64 `json:"legDistanceKm,omitempty"`
	LegMinutes    *int     `json:"legMinutes,omitempty"`
}

type Output struct {
	DoctorName      string        `json:"doctorName"`
	Color           string        `json:"color"`
	StartLocation   string        `json:"startLocation,omitempty"`
	Visits          []VisitOutput `json:"visits"`
	VisitCount      int           `json:"visitCount"`
	TotalDistanceKm float64       `json:"totalDistanceKm"`
	TotalMinutes    int           `json:"totalMinutes"`
}
