package sequencing

import (
	"errors"
	"fmt"
	"sort"

	"dispatch-workers/internal/models"
)

var ErrSequenceInvariant = errors.New("sequence invariant violated")

type Violation struct {
	DoctorName    string `json:"doctorName,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
	Reason        string `json:"reason"`
}

func (v Violation) String() string {
	switch {
	case v.AppointmentID != "":
		return fmt.Sprintf("appointment %s: %s", v.AppointmentID, v.Reason)
	default:
		return fmt.Sprintf("doctor %s: %s", v.DoctorName, v.Reason)
	}
}

// Apply returns a copy of appointments with patches applied in order.
func Apply(appointments []models.Appointment, patches []models.Patch) ([]models.Appointment, error) {
	out := make([]models.Appointment, len(appointments))
	copy(out, appointments)

	index := make(map[string]int, len(out))
	for i, a := range out {
		index[a.ID] = i
	}

	for _, p := range patches {
		i, ok := index[p.AppointmentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, p.AppointmentID)
		}
		out[i] = p.ApplyTo(out[i])
	}
	return out, nil
}

// Violations lists every broken ordering rule: each doctor's orders must be exactly 1..n and an
// appointment has a doctor iff it has an order. When doctors is non-empty only those doctors'
// lists are checked.
func Violations(appointments []models.Appointment, doctors ...string) []Violation {
	scoped := len(doctors) > 0
	inScope := make(map[string]bool, len(doctors))
	for _, d := range doctors {
		inScope[d] = true
	}

	var violations []Violation
	orders := make(map[string][]int)
	var names []string

	for _, a := range appointments {
		if a.DoctorName == "" {
			if a.OrderNumber != 0 && !scoped {
				violations = append(violations, Violation{AppointmentID: a.ID, Reason: fmt.Sprintf("order %d without doctor", a.OrderNumber)})
			}
			continue
		}
		if scoped && !inScope[a.DoctorName] {
			continue
		}
		if a.OrderNumber <= 0 {
			violations = append(violations, Violation{DoctorName: a.DoctorName, AppointmentID: a.ID, Reason: "assigned without order"})
		}
		if _, ok := orders[a.DoctorName]; !ok {
			names = append(names, a.DoctorName)
		}
		orders[a.DoctorName] = append(orders[a.DoctorName], a.OrderNumber)
	}

	sort.Strings(names)
	for _, name := range names {
		got := orders[name]
		sort.Ints(got)
		for i, o := range got {
			if o != i+1 {
				violations = append(violations, Violation{DoctorName: name, Reason: fmt.Sprintf("orders %v are not 1..%d", got, len(got))})
				break
			}
		}
	}
	return violations
}

// CheckSequence returns ErrSequenceInvariant describing the first violation, if any.
func CheckSequence(appointments []models.Appointment, doctors ...string) error {
	violations := Violations(appointments, doctors...)
	if len(violations) == 0 {
		return nil
	}
	if len(violations) == 1 {
		return fmt.Errorf("%w: %s", ErrSequenceInvariant, violations[0])
	}
	return fmt.Errorf("%w: %s (and %d more)", ErrSequenceInvariant, violations[0], len(violations)-1)
}
