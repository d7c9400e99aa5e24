// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"

	"dispatch-workers/internal/models"
)

// MemoryStore keeps a snapshot in process. It backs the dispatcher and worker tests.
type MemoryStore struct {
	mu   sync.Mutex
	snap models.Snapshot

	// FailApply makes the next ApplyPatches call return this error once.
	FailApply error
}

func NewMemoryStore(appointments []models.Appointment, doctors []models.Doctor) *MemoryStore {
	return &MemoryStore{snap: copySnapshot(models.Snapshot{Appointments: appointments, Doctors: doctors})}
}

func (m *MemoryStore) LoadSnapshot(_ context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := copySnapshot(m.snap)
	return &snap, nil
}

func (m *MemoryStore) LoadAppointment(_ context.Context, id string) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.snap.FindAppointment(id); ok {
		return a, nil
	}
	return models.Appointment{}, ErrNotFound
}

// ApplyPatches is all-or-nothing like the Postgres version.
func (m *MemoryStore) ApplyPatches(_ context.Context, patches []models.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailApply != nil {
		err := m.FailApply
		m.FailApply = nil
		return err
	}

	next := copySnapshot(m.snap)
	index := make(map[string]int, len(next.Appointments))
	for i, a := range next.Appointments {
		index[a.ID] = i
	}
	for i, p := range patches {
		pos, ok := index[p.AppointmentID]
		if !ok {
			return fmt.Errorf("patch %d (%s %s): %w", i, p.Kind, p.AppointmentID, ErrPatchNoRowMatch)
		}
		next.Appointments[pos] = p.ApplyTo(next.Appointments[pos])
	}
	m.snap = next
	return nil
}

// Appointments returns a copy of the current appointments.
func (m *MemoryStore) Appointments() []models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.snap).Appointments
}

func copySnapshot(s models.Snapshot) models.Snapshot {
	out := models.Snapshot{
		Appointments: make([]models.Appointment, len(s.Appointments)),
		Doctors:      make([]models.Doctor, len(s.Doctors)),
	}
	copy(out.Appointments, s.Appointments)
	copy(out.Doctors, s.Doctors)
	return out
}

// MemoryLocker is an in-process stand-in for RedisLocker. Names that are already held fail
// immediately with ErrLockUnavailable.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool

	// Acquired records every name set passed to a successful Acquire.
	Acquired [][]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(_ context.Context, doctorNames []string) (func(), error) {
	names := uniqueSorted(doctorNames)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range names {
		if l.held[n] {
			return nil, fmt.Errorf("lock %q: %w", n, ErrLockUnavailable)
		}
	}
	for _, n := range names {
		l.held[n] = true
	}
	l.Acquired = append(l.Acquired, names)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, n := range names {
			delete(l.held, n)
		}
	}, nil
}

// Hold marks a doctor as locked by someone else.
func (l *MemoryLocker) Hold(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[name] = true
}
