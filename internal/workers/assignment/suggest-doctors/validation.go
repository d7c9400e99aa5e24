package suggestdoctors

import "dispatch-workers/internal/common/validation"

func weightProperty(description string) validation.Property {
	return validation.Property{
		Type:        "number",
		Description: description,
		Minimum:     validation.FloatPtr(0),
	}
}

// WeightsProperty is shared with assign-doctor.
func WeightsProperty() validation.Property {
	return validation.Property{
		Type:        "object",
		Description: "Partial override of the scoring weights",
		Properties: map[string]validation.Property{
			"availability": weightProperty("Weight of the cases-today availability score"),
			"distance":     weightProperty("Weight of the distance score"),
			"skillMatch":   weightProperty("Weight of the specialty match score"),
			"loadBalance":  weightProperty("Weight of the load balance score"),
			"performance":  weightProperty("Weight of the performance score"),
		},
	}
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"appointmentId"},
		Properties: map[string]validation.Property{
			"appointmentId": {
				Type:        "string",
				Description: "Appointment to find doctors for",
				MinLength:   validation.IntPtr(1),
			},
			"topK": {
				Type:        "integer",
				Description: "Maximum number of suggestions; defaults to the dispatch top_k setting",
				Minimum:     validation.FloatPtr(1),
			},
			"weights": WeightsProperty(),
		},
	}
}
