// internal/models/snapshot.go
package models

// Snapshot is the full set of appointments and doctors an operation is planned against.
type Snapshot struct {
	Appointments []Appointment `json:"appointments"`
	Doctors      []Doctor      `json:"doctors"`
}

func (s *Snapshot) FindAppointment(id string) (Appointment, bool) {
	for _, a := range s.Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return Appointment{}, false
}

func (s *Snapshot) FindDoctor(name string) (Doctor, bool) {
	for _, d := range s.Doctors {
		if d.Name == name {
			return d, true
		}
	}
	return Doctor{}, false
}

// DoctorNames returns roster names in snapshot order.
func (s *Snapshot) DoctorNames() []string {
	names := make([]string, 0, len(s.Doctors))
	for _, d := range s.Doctors {
		names = append(names, d.Name)
	}
	return names
}

// AssignmentCounts returns how many appointments are assigned and unassigned.
func (s *Snapshot) AssignmentCounts() (assigned, unassigned int) {
	for _, a := range s.Appointments {
		if a.IsAssigned() {
			assigned++
		} else {
			unassigned++
		}
	}
	return assigned, unassigned
}
