package suggestdoctors

import (
	"context"
	"testing"
	"time"

	"dispatch-workers/internal/common/config"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/validation"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/dispatch/scoring"
	"dispatch-workers/internal/models"
	"dispatch-workers/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func createTestHandler(t *testing.T) *Handler {
	appointments := []models.Appointment{
		{ID: "a1", VisitDate: "2024-01-10", PetType: "Dog", Issue: "Skin rash", Latitude: f(12.9806), Longitude: f(77.5946)},
		{ID: "a2", VisitDate: "2024-01-10"},
	}
	doctors := []models.Doctor{
		{Name: "Dr. Far", Latitude: f(13.1), Longitude: f(77.5946)},
		{Name: "Dr. Near", Specialty: "Dogs", Latitude: f(12.9716), Longitude: f(77.5946)},
		{Name: "Dr. Mid", Latitude: f(13.02), Longitude: f(77.5946)},
	}
	d := dispatch.New(store.NewMemoryStore(appointments, doctors), store.NewMemoryLocker(), logger.NewNoOpLogger(), dispatch.Options{TopK: 5})

	h, err := NewHandler(&Config{Enabled: true, MaxJobsActive: 1, Timeout: 5 * time.Second, MaxTopK: 2}, d, logger.NewTestLogger(t), nil)
	require.NoError(t, err)
	return h
}

func TestHandler_Execute(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{AppointmentID: "a1"})
	require.NoError(t, err)

	// The dispatcher default of 5 is still capped by MaxTopK.
	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, 2, out.SuggestionCount)
	assert.Equal(t, "Dr. Near", out.Suggestions[0].Doctor.Name)
	assert.Equal(t, 100, out.Suggestions[0].Breakdown.SkillMatch)
	assert.GreaterOrEqual(t, out.Suggestions[0].TotalScore, out.Suggestions[1].TotalScore)
	assert.Empty(t, out.Reason)
}

func TestHandler_Execute_TopK(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{AppointmentID: "a1", TopK: 1})
	require.NoError(t, err)
	assert.Len(t, out.Suggestions, 1)
}

func TestHandler_ResolveTopK(t *testing.T) {
	h := &Handler{config: &Config{DefaultTopK: 5, MaxTopK: 10}}

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"omitted uses default", 0, 5},
		{"explicit", 3, 3},
		{"above cap", 40, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.resolveTopK(tt.requested))
		})
	}

	h.config = &Config{DefaultTopK: 20, MaxTopK: 10}
	assert.Equal(t, 10, h.resolveTopK(0))
}

func TestNewConfig_ReadsDispatchLimits(t *testing.T) {
	appCfg := &config.Config{Dispatch: config.DispatchConfig{TopK: 4, MaxTopK: 12}}

	cfg := NewConfig(appCfg)
	assert.Equal(t, 4, cfg.DefaultTopK)
	assert.Equal(t, 12, cfg.MaxTopK)
}

func TestHandler_Execute_NoCoordinates(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{AppointmentID: "a2"})
	require.NoError(t, err)
	assert.Empty(t, out.Suggestions)
	assert.Zero(t, out.SuggestionCount)
	assert.Equal(t, dispatch.ReasonNoCoordinates, out.Reason)
}

func TestHandler_Execute_Weights(t *testing.T) {
	h := createTestHandler(t)
	zero, one := 0.0, 1.0

	out, err := h.Execute(context.Background(), &Input{
		AppointmentID: "a1",
		Weights:       &scoring.WeightOverrides{Distance: &zero, SkillMatch: &one, Availability: &zero, LoadBalance: &zero, Performance: &zero},
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Suggestions)
	assert.Equal(t, 100.0, out.Suggestions[0].TotalScore)
}

func TestHandler_Execute_UnknownAppointment(t *testing.T) {
	h := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{AppointmentID: "ghost"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "APPOINTMENT_NOT_FOUND")
}

func TestGetInputSchema(t *testing.T) {
	tests := []struct {
		name  string
		vars  map[string]interface{}
		valid bool
	}{
		{"minimal", map[string]interface{}{"appointmentId": "a1"}, true},
		{"with topK and weights", map[string]interface{}{
			"appointmentId": "a1", "topK": 3.0, "weights": map[string]interface{}{"distance": 0.5},
		}, true},
		{"extra process variables", map[string]interface{}{"appointmentId": "a1", "customer": "x"}, true},
		{"missing id", map[string]interface{}{}, false},
		{"empty id", map[string]interface{}{"appointmentId": ""}, false},
		{"zero topK", map[string]interface{}{"appointmentId": "a1", "topK": 0.0}, false},
		{"fractional topK", map[string]interface{}{"appointmentId": "a1", "topK": 1.5}, false},
		{"negative weight", map[string]interface{}{
			"appointmentId": "a1", "weights": map[string]interface{}{"distance": -1.0},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validation.ValidateInput(tt.vars, GetInputSchema())
			assert.Equal(t, tt.valid, result.Valid, result.GetErrorMessages())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{Timeout: 0, MaxTopK: 1}).Validate())
	assert.Error(t, (&Config{Timeout: time.Second}).Validate())
	assert.NoError(t, (&Config{Timeout: time.Second, MaxTopK: 1}).Validate())
}
