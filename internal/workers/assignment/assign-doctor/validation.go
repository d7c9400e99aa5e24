package assigndoctor

import (
	"dispatch-workers/internal/common/validation"
	suggestdoctors "dispatch-workers/internal/workers/assignment/suggest-doctors"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"appointmentId"},
		Properties: map[string]validation.Property{
			"appointmentId": {
				Type:        "string",
				Description: "Appointment to assign",
				MinLength:   validation.IntPtr(1),
			},
			"doctorName": {
				Type:        "string",
				Description: "Doctor to assign to; empty unassigns",
				MaxLength:   validation.IntPtr(200),
			},
			"autoSelect": {
				Type:        "boolean",
				Description: "Assign to the best suggested doctor",
			},
			"weights": suggestdoctors.WeightsProperty(),
		},
	}
}
