// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dispatch-workers/internal/common/database"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/metrics"
	"dispatch-workers/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrUnknownPatch    = errors.New("unknown patch kind")
	ErrPatchNoRowMatch = errors.New("patch matched no appointment")
)

const appointmentColumns = `id, customer_name, pet_type, issue, location, visit_date::text, visit_time,
		       status, doctor_name, order_number, latitude, longitude`

// PostgresStore reads snapshots from and writes patches to the appointments and doctors tables.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

// LoadSnapshot reads every appointment and doctor.
func (s *PostgresStore) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	appointments, err := s.loadAppointments(ctx)
	if err != nil {
		return nil, err
	}
	doctors, err := s.loadDoctors(ctx)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{Appointments: appointments, Doctors: doctors}
	assigned, unassigned := snap.AssignmentCounts()
	s.logger.Debug("snapshot loaded", map[string]interface{}{
		"appointments": len(appointments),
		"doctors":      len(doctors),
		"assigned":     assigned,
		"unassigned":   unassigned,
	})
	return snap, nil
}

// LoadAppointment reads one appointment. It returns ErrNotFound when the id is unknown.
func (s *PostgresStore) LoadAppointment(ctx context.Context, id string) (models.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, fmt.Errorf("load appointment %s: %w", id, err)
	}
	return a, nil
}

func (s *PostgresStore) loadAppointments(ctx context.Context) ([]models.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY visit_date, id`)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appointments, nil
}

func (s *PostgresStore) loadDoctors(ctx context.Context) ([]models.Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, specialty, phone, start_location, latitude, longitude
		FROM doctors
		ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]models.Doctor, 0)
	for rows.Next() {
		var (
			d                                 models.Doctor
			color, specialty, phone, startLoc sql.NullString
			lat, lng                          sql.NullFloat64
		)
		if err := rows.Scan(&d.ID, &d.Name, &color, &specialty, &phone, &startLoc, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		d.Color = color.String
		d.Specialty = specialty.String
		d.Phone = phone.String
		d.StartLocation = startLoc.String
		d.Latitude = nullFloat(lat)
		d.Longitude = nullFloat(lng)
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}
	return doctors, nil
}

// ApplyPatches writes patches in emission order inside one transaction. Nothing is written when
// any patch fails.
func (s *PostgresStore) ApplyPatches(ctx context.Context, patches []models.Patch) error {
	if len(patches) == 0 {
		return nil
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for i, p := range patches {
			if err := applyPatch(ctx, tx, p); err != nil {
				return fmt.Errorf("patch %d (%s %s): %w", i, p.Kind, p.AppointmentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range patches {
		metrics.DispatchPatchesApplied.WithLabelValues(string(p.Kind)).Inc()
	}
	s.logger.Debug("patches applied", map[string]interface{}{"count": len(patches)})
	return nil
}

func applyPatch(ctx context.Context, tx *sql.Tx, p models.Patch) error {
	var (
		res sql.Result
		err error
	)
	switch p.Kind {
	case models.PatchAssign:
		res, err = tx.ExecContext(ctx,
			`UPDATE appointments SET doctor_name = $1, order_number = $2, updated_at = now() WHERE id = $3`,
			p.DoctorName, p.OrderNumber, p.AppointmentID)
	case models.PatchClear:
		res, err = tx.ExecContext(ctx,
			`UPDATE appointments SET doctor_name = NULL, order_number = NULL, updated_at = now() WHERE id = $1`,
			p.AppointmentID)
	case models.PatchRenumber:
		res, err = tx.ExecContext(ctx,
			`UPDATE appointments SET order_number = $1, updated_at = now() WHERE id = $2`,
			p.OrderNumber, p.AppointmentID)
	default:
		return ErrUnknownPatch
	}
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPatchNoRowMatch
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(r rowScanner) (models.Appointment, error) {
	var (
		a                                    models.Appointment
		customer, location, visitTime, docNm sql.NullString
		status                               string
		order                                sql.NullInt64
		lat, lng                             sql.NullFloat64
	)
	err := r.Scan(&a.ID, &customer, &a.PetType, &a.Issue, &location, &a.VisitDate, &visitTime,
		&status, &docNm, &order, &lat, &lng)
	if err != nil {
		return models.Appointment{}, err
	}

	a.CustomerName = customer.String
	a.Location = location.String
	a.VisitTime = visitTime.String
	a.Status = models.AppointmentStatus(status)
	a.DoctorName = docNm.String
	if order.Valid {
		a.OrderNumber = int(order.Int64)
	}
	a.Latitude = nullFloat(lat)
	a.Longitude = nullFloat(lng)
	return a, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
