// Package sequencing plans changes to doctors' visit orders. Every function reads a snapshot and
// returns the patches a store must apply, in order, to reach the new state. Nothing is mutated.
package sequencing

import (
	"errors"
	"sort"

	"dispatch-workers/internal/models"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrNotAssignedToDoctor = errors.New("appointment is not assigned to doctor")
	ErrOrderOutOfRange     = errors.New("order out of range")
)

type Operation string

const (
	OpAssign   Operation = "assign"
	OpUnassign Operation = "unassign"
	OpReorder  Operation = "reorder"
	OpRelease  Operation = "release"
)

// Plan is the outcome of one sequencing operation.
type Plan struct {
	Operation       Operation      `json:"operation"`
	Patches         []models.Patch `json:"patches"`
	AffectedDoctors []string       `json:"affectedDoctors"`
}

func (p Plan) IsEmpty() bool {
	return len(p.Patches) == 0
}

// AssignedOrder returns the order number set by the plan's assign patch, if it has one.
func (p Plan) AssignedOrder() (int, bool) {
	for _, patch := range p.Patches {
		if patch.Kind == models.PatchAssign {
			return patch.OrderNumber, true
		}
	}
	return 0, false
}

func newPlan(op Operation, doctors ...string) Plan {
	seen := make(map[string]struct{}, len(doctors))
	affected := make([]string, 0, len(doctors))
	for _, d := range doctors {
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		affected = append(affected, d)
	}
	sort.Strings(affected)
	return Plan{Operation: op, Patches: []models.Patch{}, AffectedDoctors: affected}
}

// visitList returns the appointments assigned to doctorName sorted by order number. Ties keep
// snapshot order.
func visitList(appointments []models.Appointment, doctorName string) []models.Appointment {
	var list []models.Appointment
	for _, a := range appointments {
		if a.DoctorName == doctorName {
			list = append(list, a)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].OrderNumber < list[j].OrderNumber
	})
	return list
}

// closeGap decrements every appointment of doctorName ordered after removedOrder.
func closeGap(appointments []models.Appointment, doctorName, removedID string, removedOrder int) []models.Patch {
	var patches []models.Patch
	for _, a := range visitList(appointments, doctorName) {
		if a.ID == removedID || a.OrderNumber <= removedOrder {
			continue
		}
		patches = append(patches, models.RenumberPatch(a.ID, a.OrderNumber-1))
	}
	return patches
}
