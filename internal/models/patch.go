// internal/models/patch.go
package models

type PatchKind string

const (
	// PatchAssign sets both doctorName and orderNumber.
	PatchAssign PatchKind = "assign"
	// PatchClear removes doctorName and orderNumber.
	PatchClear PatchKind = "clear"
	// PatchRenumber sets orderNumber only.
	PatchRenumber PatchKind = "renumber"
)

// Patch is a single field update the store must apply to one appointment. Patches of one
// operation are applied in the order they were emitted.
type Patch struct {
	AppointmentID string    `json:"appointmentId"`
	Kind          PatchKind `json:"kind"`
	DoctorName    string    `json:"doctorName,omitempty"`
	OrderNumber   int       `json:"orderNumber,omitempty"`
}

func AssignPatch(appointmentID, doctorName string, order int) Patch {
	return Patch{AppointmentID: appointmentID, Kind: PatchAssign, DoctorName: doctorName, OrderNumber: order}
}

func ClearPatch(appointmentID string) Patch {
	return Patch{AppointmentID: appointmentID, Kind: PatchClear}
}

func RenumberPatch(appointmentID string, order int) Patch {
	return Patch{AppointmentID: appointmentID, Kind: PatchRenumber, OrderNumber: order}
}

// ApplyTo returns a copy of a with the patch applied.
func (p Patch) ApplyTo(a Appointment) Appointment {
	switch p.Kind {
	case PatchAssign:
		a.DoctorName = p.DoctorName
		a.OrderNumber = p.OrderNumber
	case PatchClear:
		a.DoctorName = ""
		a.OrderNumber = 0
	case PatchRenumber:
		a.OrderNumber = p.OrderNumber
	}
	return a
}
