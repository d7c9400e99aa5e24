package unassigndoctor

import (
	"context"
	"testing"
	"time"

	"dispatch-workers/internal/common/config"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/dispatch"
	"dispatch-workers/internal/dispatch/sequencing"
	"dispatch-workers/internal/models"
	"dispatch-workers/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestHandler(t *testing.T) (*Handler, *store.MemoryStore) {
	mem := store.NewMemoryStore([]models.Appointment{
		{ID: "a1", DoctorName: "Dr. Rao", OrderNumber: 1},
		{ID: "a2", DoctorName: "Dr. Rao", OrderNumber: 2},
		{ID: "a3", DoctorName: "Dr. Rao", OrderNumber: 3},
		{ID: "free"},
	}, []models.Doctor{{Name: "Dr. Rao"}})
	d := dispatch.New(mem, store.NewMemoryLocker(), logger.NewNoOpLogger(), dispatch.Options{})

	h, err := NewHandler(&Config{Enabled: true, Timeout: 5 * time.Second}, d, logger.NewTestLogger(t), nil)
	require.NoError(t, err)
	return h, mem
}

// The middle of three visits is removed; the last one moves up.
func TestHandler_Execute_ClosesGap(t *testing.T) {
	h, mem := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{AppointmentID: "a2"})
	require.NoError(t, err)

	assert.Equal(t, "Dr. Rao", out.PreviousDoctor)
	assert.Equal(t, []models.Patch{models.ClearPatch("a2"), models.RenumberPatch("a3", 2)}, out.Patches)

	after := mem.Appointments()
	require.NoError(t, sequencing.CheckSequence(after))
	a1, _ := mem.LoadAppointment(context.Background(), "a1")
	assert.Equal(t, 1, a1.OrderNumber)
}

func TestHandler_Execute_AlreadyFree(t *testing.T) {
	h, _ := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{AppointmentID: "free"})
	require.NoError(t, err)
	assert.Empty(t, out.PreviousDoctor)
	assert.Equal(t, []models.Patch{models.ClearPatch("free")}, out.Patches)
}

func TestHandler_Execute_Unknown(t *testing.T) {
	h, _ := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{AppointmentID: "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APPOINTMENT_NOT_FOUND")
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig(&config.Config{})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	_, err := NewHandler(&Config{}, nil, logger.NewNoOpLogger(), nil)
	assert.Error(t, err)
}
