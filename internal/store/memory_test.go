package store

import (
	"context"
	"errors"
	"testing"

	"dispatch-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ApplyPatchesAllOrNothing(t *testing.T) {
	s := NewMemoryStore([]models.Appointment{
		{ID: "a1", DoctorName: "Dr. Rao", OrderNumber: 1},
		{ID: "a2"},
	}, []models.Doctor{{Name: "Dr. Rao"}})

	err := s.ApplyPatches(context.Background(), []models.Patch{
		models.AssignPatch("a2", "Dr. Rao", 2),
		models.ClearPatch("ghost"),
	})
	require.ErrorIs(t, err, ErrPatchNoRowMatch)

	a2, err := s.LoadAppointment(context.Background(), "a2")
	require.NoError(t, err)
	assert.False(t, a2.IsAssigned())

	require.NoError(t, s.ApplyPatches(context.Background(), []models.Patch{models.AssignPatch("a2", "Dr. Rao", 2)}))
	a2, _ = s.LoadAppointment(context.Background(), "a2")
	assert.Equal(t, 2, a2.OrderNumber)
}

func TestMemoryStore_SnapshotIsCopy(t *testing.T) {
	s := NewMemoryStore([]models.Appointment{{ID: "a1"}}, nil)

	snap, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	snap.Appointments[0].DoctorName = "mutated"

	assert.Empty(t, s.Appointments()[0].DoctorName)
}

func TestMemoryStore_FailApplyOnce(t *testing.T) {
	s := NewMemoryStore([]models.Appointment{{ID: "a1"}}, nil)
	s.FailApply = errors.New("disk full")

	assert.Error(t, s.ApplyPatches(context.Background(), []models.Patch{models.RenumberPatch("a1", 1)}))
	assert.NoError(t, s.ApplyPatches(context.Background(), []models.Patch{models.RenumberPatch("a1", 1)}))
}

func TestMemoryStore_LoadAppointmentNotFound(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	_, err := s.LoadAppointment(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()

	release, err := l.Acquire(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, l.Acquired)

	_, err = l.Acquire(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrLockUnavailable)

	release()
	release2, err := l.Acquire(context.Background(), []string{"a"})
	require.NoError(t, err)
	release2()

	l.Hold("c")
	_, err = l.Acquire(context.Background(), []string{"c"})
	assert.ErrorIs(t, err, ErrLockUnavailable)
}
