package dispatch

import (
	"context"

	commonerrors "dispatch-workers/internal/common/errors"
	"dispatch-workers/internal/common/metrics"
	"dispatch-workers/internal/dispatch/geo"
	"dispatch-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Visit is one stop of a doctor's day. The leg runs from the previous stop, or from the doctor's
// start location for the first one. HasLeg is false when either end has no coordinates.
type Visit struct {
	Appointment   models.Appointment `json:"appointment"`
	HasLeg        bool               `json:"hasLeg"`
	LegDistanceKm float64            `json:"legDistanceKm"`
	LegMinutes    int                `json:"legMinutes"`
}

type Schedule struct {
	Doctor          models.Doctor `json:"doctor"`
	Color           string        `json:"color"`
	Visits          []Visit       `json:"visits"`
	TotalDistanceKm float64       `json:"totalDistanceKm"`
	TotalMinutes    int           `json:"totalMinutes"`
}

// Schedule returns doctorName's visit list in order, optionally restricted to one visit date.
func (d *Dispatcher) Schedule(ctx context.Context, doctorName, visitDate string) (*Schedule, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.schedule", trace.WithAttributes(
		attribute.String("doctor.name", doctorName),
	))
	defer span.End()

	snap, err := d.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, d.fail(span, "schedule", commonerrors.NewSnapshotLoadFailedError(err))
	}

	doctor, ok := snap.FindDoctor(doctorName)
	if !ok {
		return nil, d.fail(span, "schedule", commonerrors.NewDoctorNotFoundError(doctorName))
	}
	sched := buildSchedule(snap, doctor, visitDate)
	span.SetAttributes(attribute.Int("visits", len(sched.Visits)))
	metrics.DispatchOperations.WithLabelValues("schedule", "ok").Inc()
	return sched, nil
}

func buildSchedule(snap *models.Snapshot, doctor models.Doctor, visitDate string) *Schedule {
	color := doctor.Color
	if color == "" {
		color = models.PaletteColor(doctor.Name, snap.DoctorNames())
	}

	res := &Result{Appointments: snap.Appointments}
	sched := &Schedule{Doctor: doctor, Color: color, Visits: []Visit{}}

	prevLat, prevLng, havePrev := 0.0, 0.0, false
	if doctor.HasCoordinates() {
		prevLat, prevLng, havePrev = *doctor.Latitude, *doctor.Longitude, true
	}

	for _, a := range res.VisitList(doctor.Name) {
		if visitDate != "" && a.VisitDate != visitDate {
			continue
		}

		v := Visit{Appointment: a}
		if a.HasCoordinates() {
			if havePrev {
				v.HasLeg = true
				v.LegDistanceKm = geo.DistanceKm(prevLat, prevLng, *a.Latitude, *a.Longitude)
				v.LegMinutes = geo.EstimateMinutes(v.LegDistanceKm)
				sched.TotalDistanceKm += v.LegDistanceKm
				sched.TotalMinutes += v.LegMinutes
			}
			prevLat, prevLng, havePrev = *a.Latitude, *a.Longitude, true
		} else {
			havePrev = false
		}
		sched.Visits = append(sched.Visits, v)
	}
	return sched
}
