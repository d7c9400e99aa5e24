// Package dispatch runs scoring and sequencing against the stored appointments. Every mutating
// operation locks the doctors it touches, reloads the snapshot under the lock, plans, verifies the
// visit lists and persists the patches in one batch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dispatch-workers/internal/audit"
	commonerrors "dispatch-workers/internal/common/errors"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/metrics"
	"dispatch-workers/internal/dispatch/scoring"
	"dispatch-workers/internal/dispatch/sequencing"
	"dispatch-workers/internal/models"
	"dispatch-workers/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ReasonNoCoordinates = "no suggestions available, add location data"
	ReasonNoDoctors     = "no doctors available"
)

type Store interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
	LoadAppointment(ctx context.Context, id string) (models.Appointment, error)
	ApplyPatches(ctx context.Context, patches []models.Patch) error
}

// Locker serialises operations per doctor. The returned func releases every lock taken.
type Locker interface {
	Acquire(ctx context.Context, doctorNames []string) (func(), error)
}

type Options struct {
	Weights     scoring.Weights
	TopK        int
	Performance scoring.PerformanceRater
	Recorder    audit.Recorder
	Tracer      trace.Tracer
}

type Dispatcher struct {
	store    Store
	locker   Locker
	recorder audit.Recorder
	tracer   trace.Tracer
	logger   logger.Logger

	weights     scoring.Weights
	topK        int
	performance scoring.PerformanceRater
}

func New(st Store, locker Locker, log logger.Logger, opts Options) *Dispatcher {
	d := &Dispatcher{
		store:       st,
		locker:      locker,
		recorder:    opts.Recorder,
		tracer:      opts.Tracer,
		logger:      log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		weights:     opts.Weights,
		topK:        opts.TopK,
		performance: opts.Performance,
	}
	if d.recorder == nil {
		d.recorder = audit.NoopRecorder{}
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer("dispatch-workers/dispatch")
	}
	if d.weights == (scoring.Weights{}) {
		d.weights = scoring.DefaultWeights()
	}
	return d
}

// Result describes a mutating operation. Appointments is the full appointment list after the
// patches were applied.
type Result struct {
	Plan         sequencing.Plan
	Previous     models.Appointment
	Appointments []models.Appointment
}

// VisitList returns doctorName's appointments after the operation, in visit order.
func (r *Result) VisitList(doctorName string) []models.Appointment {
	list := make([]models.Appointment, 0)
	for _, a := range r.Appointments {
		if a.DoctorName == doctorName {
			list = append(list, a)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].OrderNumber < list[j].OrderNumber })
	return list
}

type SuggestResult struct {
	Appointment models.Appointment
	Suggestions []scoring.DoctorScore
	// Reason explains an empty suggestion list.
	Reason string
}

// Suggest ranks every doctor for an appointment. topK <= 0 uses the configured default. It never
// fails for a missing location or an empty roster; the result carries a Reason instead.
func (d *Dispatcher) Suggest(ctx context.Context, appointmentID string, topK int, overrides *scoring.WeightOverrides) (*SuggestResult, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.suggest", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
	))
	defer span.End()

	snap, err := d.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, d.fail(span, "suggest", commonerrors.NewSnapshotLoadFailedError(err))
	}
	res, err := d.suggest(snap, appointmentID, topK, overrides)
	if err != nil {
		return nil, d.fail(span, "suggest", err)
	}

	span.SetAttributes(attribute.Int("suggestions", len(res.Suggestions)))
	metrics.DispatchSuggestions.Observe(float64(len(res.Suggestions)))
	metrics.DispatchOperations.WithLabelValues("suggest", "ok").Inc()
	return res, nil
}

func (d *Dispatcher) suggest(snap *models.Snapshot, appointmentID string, topK int, overrides *scoring.WeightOverrides) (*SuggestResult, error) {
	target, ok := snap.FindAppointment(appointmentID)
	if !ok {
		return nil, commonerrors.NewAppointmentNotFoundError(appointmentID)
	}

	res := &SuggestResult{Appointment: target, Suggestions: []scoring.DoctorScore{}}
	switch {
	case !target.HasCoordinates():
		res.Reason = ReasonNoCoordinates
		return res, nil
	case len(snap.Doctors) == 0:
		res.Reason = ReasonNoDoctors
		return res, nil
	}

	if topK <= 0 {
		topK = d.topK
	}
	ranker := scoring.NewRanker(scoring.NewScorer(overrides.Apply(d.weights), d.performance))
	res.Suggestions = ranker.Rank(target, snap.Doctors, snap.Appointments, topK)
	if len(res.Suggestions) == 0 {
		res.Reason = ReasonNoDoctors
	}
	return res, nil
}

// Assign appends an appointment to doctorName's visit list, moving it off its current doctor.
// An empty doctorName unassigns.
func (d *Dispatcher) Assign(ctx context.Context, appointmentID, doctorName string) (*Result, error) {
	return d.assign(ctx, appointmentID, doctorName, audit.Decision{})
}

// AutoAssign assigns the appointment to the best suggested doctor.
func (d *Dispatcher) AutoAssign(ctx context.Context, appointmentID string, overrides *scoring.WeightOverrides) (*Result, *scoring.DoctorScore, error) {
	suggested, err := d.Suggest(ctx, appointmentID, 1, overrides)
	if err != nil {
		return nil, nil, err
	}
	if len(suggested.Suggestions) == 0 {
		return nil, nil, commonerrors.NewNoSuggestionsError(appointmentID, suggested.Reason)
	}

	best := suggested.Suggestions[0]
	res, err := d.assign(ctx, appointmentID, best.Doctor.Name, audit.Decision{
		TopScore: best.TotalScore,
		Reason:   best.Details.Reason,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, &best, nil
}

func (d *Dispatcher) assign(ctx context.Context, appointmentID, doctorName string, decision audit.Decision) (*Result, error) {
	current, err := d.preRead(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	decision.AppointmentID = appointmentID
	decision.DoctorName = doctorName
	return d.mutate(ctx, sequencing.OpAssign, []string{doctorName, current.DoctorName}, decision,
		func(snap *models.Snapshot) (sequencing.Plan, error) {
			return sequencing.Assign(snap, appointmentID, doctorName)
		})
}

// Unassign clears an appointment and closes the gap in its doctor's list.
func (d *Dispatcher) Unassign(ctx context.Context, appointmentID string) (*Result, error) {
	current, err := d.preRead(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	return d.mutate(ctx, sequencing.OpUnassign, []string{current.DoctorName},
		audit.Decision{AppointmentID: appointmentID, DoctorName: current.DoctorName},
		func(snap *models.Snapshot) (sequencing.Plan, error) {
			return sequencing.Unassign(snap, appointmentID)
		})
}

// Reorder moves an appointment to newOrder within doctorName's visit list.
func (d *Dispatcher) Reorder(ctx context.Context, doctorName, appointmentID string, newOrder int) (*Result, error) {
	return d.mutate(ctx, sequencing.OpReorder, []string{doctorName},
		audit.Decision{AppointmentID: appointmentID, DoctorName: doctorName},
		func(snap *models.Snapshot) (sequencing.Plan, error) {
			return sequencing.Reorder(snap, doctorName, appointmentID, newOrder)
		})
}

// Release unassigns every appointment of doctorName.
func (d *Dispatcher) Release(ctx context.Context, doctorName string) (*Result, error) {
	return d.mutate(ctx, sequencing.OpRelease, []string{doctorName},
		audit.Decision{DoctorName: doctorName},
		func(snap *models.Snapshot) (sequencing.Plan, error) {
			return sequencing.Release(snap, doctorName)
		})
}

// preRead finds the doctor currently holding an appointment so the right locks can be taken.
func (d *Dispatcher) preRead(ctx context.Context, appointmentID string) (models.Appointment, error) {
	a, err := d.store.LoadAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Appointment{}, commonerrors.NewAppointmentNotFoundError(appointmentID)
		}
		return models.Appointment{}, commonerrors.NewSnapshotLoadFailedError(err)
	}
	return a, nil
}

type planFunc func(snap *models.Snapshot) (sequencing.Plan, error)

func (d *Dispatcher) mutate(ctx context.Context, op sequencing.Operation, lockNames []string, decision audit.Decision, plan planFunc) (*Result, error) {
	opName := string(op)
	ctx, span := d.tracer.Start(ctx, "dispatch."+opName, trace.WithAttributes(
		attribute.String("appointment.id", decision.AppointmentID),
		attribute.String("doctor.name", decision.DoctorName),
	))
	defer span.End()

	decision.Operation = opName
	decision.TraceID = traceID(span)
	locked := nonEmpty(lockNames)

	release, err := d.locker.Acquire(ctx, locked)
	if err != nil {
		return nil, d.reject(ctx, span, decision, lockError(locked, err))
	}
	defer release()

	snap, err := d.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, d.reject(ctx, span, decision, commonerrors.NewSnapshotLoadFailedError(err))
	}

	var previous models.Appointment
	if decision.AppointmentID != "" {
		previous, _ = snap.FindAppointment(decision.AppointmentID)
	}

	p, err := plan(snap)
	if err != nil {
		return nil, d.reject(ctx, span, decision, planError(err, decision.AppointmentID, decision.DoctorName))
	}
	decision.AffectedDoctors = p.AffectedDoctors
	decision.Patches = p.Patches

	if missing := notLocked(p.AffectedDoctors, locked); len(missing) > 0 {
		return nil, d.reject(ctx, span, decision, commonerrors.NewAssignmentConflictError(
			fmt.Sprintf("appointment %s moved to %s while the operation was waiting", decision.AppointmentID, strings.Join(missing, ", "))))
	}

	after, err := sequencing.Apply(snap.Appointments, p.Patches)
	if err != nil {
		return nil, d.reject(ctx, span, decision, commonerrors.NewInternalError(err))
	}
	if verr := d.verify(snap.Appointments, after, p.AffectedDoctors); verr != nil {
		return nil, d.reject(ctx, span, decision, verr)
	}

	res := &Result{Plan: p, Previous: previous, Appointments: after}
	if p.IsEmpty() {
		decision.Outcome = audit.OutcomeNoop
		d.record(ctx, decision)
		metrics.DispatchOperations.WithLabelValues(opName, audit.OutcomeNoop).Inc()
		return res, nil
	}

	if err := d.store.ApplyPatches(ctx, p.Patches); err != nil {
		return nil, d.reject(ctx, span, decision, commonerrors.NewPatchApplyFailedError(err))
	}

	decision.Outcome = audit.OutcomeApplied
	d.record(ctx, decision)
	metrics.DispatchOperations.WithLabelValues(opName, audit.OutcomeApplied).Inc()
	span.SetAttributes(attribute.Int("patches", len(p.Patches)))

	d.logger.Info("dispatch operation applied", map[string]interface{}{
		"operation":       opName,
		"appointmentId":   decision.AppointmentID,
		"doctorName":      decision.DoctorName,
		"affectedDoctors": p.AffectedDoctors,
		"patches":         len(p.Patches),
		"traceId":         decision.TraceID,
	})
	return res, nil
}

// verify rejects plans that leave an affected doctor's list broken. Lists that were already
// broken before the plan are only reported, so bad legacy data does not block every operation.
func (d *Dispatcher) verify(before, after []models.Appointment, doctors []string) *commonerrors.StandardError {
	if len(doctors) == 0 {
		return nil
	}
	if err := sequencing.CheckSequence(before, doctors...); err != nil {
		d.logger.Warn("visit list already inconsistent before operation", map[string]interface{}{
			"doctors": doctors,
			"error":   err.Error(),
		})
		return nil
	}
	if err := sequencing.CheckSequence(after, doctors...); err != nil {
		return commonerrors.NewSequenceInvariantError(err)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, decision audit.Decision) {
	if err := d.recorder.Record(ctx, decision); err != nil {
		d.logger.Warn("failed to record dispatch decision", map[string]interface{}{
			"operation": decision.Operation,
			"traceId":   decision.TraceID,
			"error":     err.Error(),
		})
	}
}

func (d *Dispatcher) reject(ctx context.Context, span trace.Span, decision audit.Decision, err *commonerrors.StandardError) error {
	err.WithMetadata("operation", decision.Operation)
	if decision.TraceID != "" {
		err.WithMetadata("traceId", decision.TraceID)
	}
	decision.Outcome = audit.OutcomeRejected
	decision.Error = string(err.Code)
	d.record(ctx, decision)
	return d.fail(span, decision.Operation, err)
}

func (d *Dispatcher) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.DispatchOperations.WithLabelValues(op, "error").Inc()
	return err
}

// traceID is empty when no SDK tracer provider is installed.
func traceID(span trace.Span) string {
	sc := span.SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func lockError(names []string, err error) *commonerrors.StandardError {
	if errors.Is(err, context.DeadlineExceeded) {
		return commonerrors.NewTimeoutError("redis", err)
	}
	return commonerrors.NewLockUnavailableError(strings.Join(names, ", "), err)
}

func planError(err error, appointmentID, doctorName string) *commonerrors.StandardError {
	switch {
	case errors.Is(err, sequencing.ErrAppointmentNotFound):
		return commonerrors.NewAppointmentNotFoundError(appointmentID)
	case errors.Is(err, sequencing.ErrDoctorNotFound):
		return commonerrors.NewDoctorNotFoundError(doctorName)
	case errors.Is(err, sequencing.ErrNotAssignedToDoctor):
		return commonerrors.NewAppointmentNotAssignedError(appointmentID, doctorName)
	case errors.Is(err, sequencing.ErrOrderOutOfRange):
		return commonerrors.NewOrderOutOfRangeError(err.Error())
	case errors.Is(err, scoring.ErrMissingCoordinates):
		return commonerrors.NewMissingCoordinatesError(appointmentID)
	}
	return commonerrors.NewInternalError(err)
}

func nonEmpty(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func notLocked(affected, locked []string) []string {
	held := make(map[string]bool, len(locked))
	for _, n := range locked {
		held[n] = true
	}
	var missing []string
	for _, n := range affected {
		if !held[n] {
			missing = append(missing, n)
		}
	}
	return missing
}
