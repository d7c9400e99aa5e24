package sequencing

import (
	"fmt"

	"dispatch-workers/internal/models"
)

// Assign moves an appointment to the end of doctorName's visit list. An empty doctorName
// unassigns. Assigning to the doctor that already holds the appointment changes nothing.
func Assign(snap *models.Snapshot, appointmentID, doctorName string) (Plan, error) {
	target, ok := snap.FindAppointment(appointmentID)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	if doctorName == "" {
		return Unassign(snap, appointmentID)
	}
	if _, ok := snap.FindDoctor(doctorName); !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorName)
	}

	plan := newPlan(OpAssign, doctorName, target.DoctorName)
	if target.DoctorName == doctorName {
		return plan, nil
	}

	maxOrder := 0
	for _, a := range snap.Appointments {
		if a.DoctorName == doctorName && a.OrderNumber > maxOrder {
			maxOrder = a.OrderNumber
		}
	}
	plan.Patches = append(plan.Patches, models.AssignPatch(target.ID, doctorName, maxOrder+1))

	if target.DoctorName != "" {
		plan.Patches = append(plan.Patches, closeGap(snap.Appointments, target.DoctorName, target.ID, target.OrderNumber)...)
	}
	return plan, nil
}

// Unassign clears an appointment and closes the gap it leaves in its doctor's list.
func Unassign(snap *models.Snapshot, appointmentID string) (Plan, error) {
	target, ok := snap.FindAppointment(appointmentID)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}

	plan := newPlan(OpUnassign, target.DoctorName)
	plan.Patches = append(plan.Patches, models.ClearPatch(target.ID))
	if target.DoctorName != "" {
		plan.Patches = append(plan.Patches, closeGap(snap.Appointments, target.DoctorName, target.ID, target.OrderNumber)...)
	}
	return plan, nil
}

// Reorder moves an appointment to newOrder (1-based) within doctorName's list and renumbers the
// list densely. Only appointments whose order changes get a patch.
func Reorder(snap *models.Snapshot, doctorName, appointmentID string, newOrder int) (Plan, error) {
	if _, ok := snap.FindDoctor(doctorName); !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorName)
	}
	target, ok := snap.FindAppointment(appointmentID)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	if target.DoctorName != doctorName {
		return Plan{}, fmt.Errorf("%w: %s is not in %s's list", ErrNotAssignedToDoctor, appointmentID, doctorName)
	}

	list := visitList(snap.Appointments, doctorName)
	if newOrder < 1 || newOrder > len(list) {
		return Plan{}, fmt.Errorf("%w: %d not in [1, %d]", ErrOrderOutOfRange, newOrder, len(list))
	}

	idx := 0
	for i, a := range list {
		if a.ID == appointmentID {
			idx = i
			break
		}
	}

	moved := list[idx]
	reordered := make([]models.Appointment, 0, len(list))
	reordered = append(reordered, list[:idx]...)
	reordered = append(reordered, list[idx+1:]...)
	reordered = append(reordered[:newOrder-1], append([]models.Appointment{moved}, reordered[newOrder-1:]...)...)

	plan := newPlan(OpReorder, doctorName)
	for i, a := range reordered {
		if a.OrderNumber != i+1 {
			plan.Patches = append(plan.Patches, models.RenumberPatch(a.ID, i+1))
		}
	}
	return plan, nil
}

// Release clears every appointment of doctorName in visit order, for example when the doctor is
// taken off the roster.
func Release(snap *models.Snapshot, doctorName string) (Plan, error) {
	if _, ok := snap.FindDoctor(doctorName); !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorName)
	}

	plan := newPlan(OpRelease, doctorName)
	for _, a := range visitList(snap.Appointments, doctorName) {
		plan.Patches = append(plan.Patches, models.ClearPatch(a.ID))
	}
	return plan, nil
}
