package suggestdoctors

import "dispatch-workers/internal/dispatch/scoring"

type Input struct {
	AppointmentID string                   `json:"appointmentId"`
	TopK          int                      `json:"topK,omitempty"`
	Weights       *scoring.WeightOverrides `json:"weights,omitempty"`
}

type Output struct {
	AppointmentID   string                `json:"appointmentId"`
	Suggestions     []scoring.DoctorScore `json:"suggestions"`
	SuggestionCount int                   `json:"suggestionCount"`
	Reason          string                `json:"reason,omitempty"`
}
