package assigndoctor

import (
	"dispatch-workers/internal/dispatch/scoring"
	"dispatch-workers/internal/models"
)

// Input names the target doctor explicitly, or sets AutoSelect to take the top suggestion.
// Neither means the appointment is unassigned.
type Input struct {
	AppointmentID string                   `json:"appointmentId"`
	DoctorName    string                   `json:"doctorName,omitempty"`
	AutoSelect    bool                     `json:"autoSelect,omitempty"`
	Weights       *scoring.WeightOverrides `json:"weights,omitempty"`
}

type Output struct {
	AppointmentID  string               `json:"appointmentId"`
	DoctorName     string               `json:"doctorName"`
	OrderNumber    int                  `json:"orderNumber"`
	PreviousDoctor string               `json:"previousDoctor,omitempty"`
	Patches        []models.Patch       `json:"patches"`
	Suggestion     *scoring.DoctorScore `json:"suggestion,omitempty"`
}
