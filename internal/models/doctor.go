// internal/models/doctor.go
package models

// DefaultDoctorColor is used for doctors that are not part of the roster palette.
const DefaultDoctorColor = "#3b82f6"

var doctorPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308",
	"#84cc16", "#22c55e", "#10b981", "#14b8a6",
	"#06b6d4", "#0ea5e9", "#3b82f6", "#6366f1",
	"#8b5cf6", "#a855f7", "#d946ef", "#ec4899",
}

// Doctor is a mobile provider. Appointments link to doctors by Name, so the store is expected to
// keep names unique.
type Doctor struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Color         string   `json:"color,omitempty"`
	Specialty     string   `json:"specialty,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	StartLocation string   `json:"startLocation,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

func (d Doctor) HasCoordinates() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// PaletteColor picks a stable colour for name based on its position in names.
func PaletteColor(name string, names []string) string {
	for i, n := range names {
		if n == name {
			return doctorPalette[i%len(doctorPalette)]
		}
	}
	return DefaultDoctorColor
}
