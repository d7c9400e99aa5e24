// internal/models/appointment.go
package models

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// Appointment is a scheduled visit. DoctorName and OrderNumber are the only fields the dispatch
// core ever changes; an empty DoctorName with a zero OrderNumber means unassigned.
type Appointment struct {
	ID           string            `json:"id"`
	CustomerName string            `json:"customerName,omitempty"`
	PetType      string            `json:"petType"`
	Issue        string            `json:"issue"`
	Location     string            `json:"location,omitempty"`
	VisitDate    string            `json:"visitDate"`
	VisitTime    string            `json:"visitTime,omitempty"`
	Status       AppointmentStatus `json:"status"`
	DoctorName   string            `json:"doctorName,omitempty"`
	OrderNumber  int               `json:"orderNumber,omitempty"`
	Latitude     *float64          `json:"latitude,omitempty"`
	Longitude    *float64          `json:"longitude,omitempty"`
}

func (a Appointment) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

func (a Appointment) IsAssigned() bool {
	return a.DoctorName != ""
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
