package notifydoctor

import "time"

const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
)

type Input struct {
	AppointmentID string `json:"appointmentId"`
}

type Output struct {
	NotificationID string    `json:"notificationId"`
	MessageID      string    `json:"messageId,omitempty"`
	Status         string    `json:"status"`
	DoctorName     string    `json:"doctorName"`
	OrderNumber    int       `json:"orderNumber"`
	SentAt         time.Time `json:"sentAt"`
}
