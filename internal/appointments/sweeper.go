package appointments

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shabbeerali786/Online-Medical-Consultation/internal/observability/metrics"
	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

// sweepBatchLimit caps how many candidates each scan processes per tick.
const sweepBatchLimit = 200

// sweepLockKey guards against concurrent sweeps across replicas.
const sweepLockKey = "telemed:auto-cancel:lock"

// No-show cancellation reasons. The UI surfaces these verbatim.
const (
	ReasonNotConfirmed = "Patient did not confirm within the required time."
	ReasonNoCheckin    = "Patient didn't check in before the session start time."
)

// SystemNotifier receives system-generated notices when an appointment is
// auto-cancelled. Failures are logged, never retried within the tick.
type SystemNotifier interface {
	SendSystemNotice(ctx context.Context, appointmentID, fromUserID, toUserID uuid.UUID, text string) error
}

// SweepStore is the slice of the appointment store the sweeper needs.
type SweepStore interface {
	ListUnconfirmedOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Appointment, error)
	ListCheckinOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Appointment, error)
	MarkNoShow(ctx context.Context, id uuid.UUID, at time.Time, reason string, fromStatuses []Status) (bool, error)
}

// Sweeper periodically cancels appointments whose confirmation or check-in
// deadline has passed, and notifies both parties through the messaging inbox.
type Sweeper struct {
	store    SweepStore
	notifier SystemNotifier
	doctors  DoctorDirectory
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics

	interval           time.Duration
	confirmationWindow time.Duration
	checkinGrace       time.Duration

	// redis is optional: when set, a SET NX lease makes sure only one
	// replica sweeps per tick. The in-process flag skips a tick while the
	// previous one is still running.
	redis   *redis.Client
	running atomic.Bool

	tracer trace.Tracer
	now    func() time.Time
}

// SweeperConfig wires a Sweeper.
type SweeperConfig struct {
	Store              SweepStore
	Notifier           SystemNotifier
	Doctors            DoctorDirectory
	Logger             *logging.Logger
	Metrics            *metrics.SchedulingMetrics
	Redis              *redis.Client
	Interval           time.Duration
	ConfirmationWindow time.Duration
	CheckinGrace       time.Duration
}

// NewSweeper creates an auto-cancellation sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Store == nil {
		panic("appointments: sweeper store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	window := cfg.ConfirmationWindow
	if window <= 0 {
		window = 60 * time.Minute
	}
	grace := cfg.CheckinGrace
	if grace < 0 {
		grace = 0
	}
	return &Sweeper{
		store:              cfg.Store,
		notifier:           cfg.Notifier,
		doctors:            cfg.Doctors,
		logger:             logger,
		metrics:            cfg.Metrics,
		redis:              cfg.Redis,
		interval:           interval,
		confirmationWindow: window,
		checkinGrace:       grace,
		tracer:             otel.Tracer("telemed.internal.appointments.sweeper"),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the sweeper until the context is cancelled. It sweeps once
// immediately, then on every tick. A failed run never stops the loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("auto-cancellation sweeper started",
		"interval", s.interval.String(),
		"confirmation_window", s.confirmationWindow.String(),
		"checkin_grace", s.checkinGrace.String(),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-cancellation sweeper shutting down")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	if !s.acquireLease(ctx) {
		s.logger.Debug("sweep lease held elsewhere, skipping tick")
		return
	}

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("sweep run failed", "error", err)
	}
}

// acquireLease takes the cross-replica sweep lease. Without redis it always
// succeeds; the per-process guard alone then serializes sweeps.
func (s *Sweeper) acquireLease(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.SetNX(ctx, sweepLockKey, "1", s.interval).Result()
	if err != nil {
		// A broken lock backend should not stop deadline enforcement.
		s.logger.Warn("sweep lease check failed, proceeding without it", "error", err)
		return true
	}
	return ok
}

// RunOnce performs one sweep: overdue-unconfirmed first, then
// overdue-unchecked-in. Each scan is capped; a failure on one candidate
// never aborts the rest of the batch.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "appointments.sweep")
	defer span.End()

	now := s.now()
	s.metrics.ObserveSweep()

	confirmCutoff := now.Add(-s.confirmationWindow)
	unconfirmed, err := s.store.ListUnconfirmedOverdue(ctx, confirmCutoff, sweepBatchLimit)
	if err != nil {
		return err
	}
	for i := range unconfirmed {
		s.processNoShow(ctx, &unconfirmed[i], ReasonNotConfirmed, "not_confirmed", []Status{StatusScheduled})
	}

	checkinCutoff := now.Add(-s.checkinGrace)
	unchecked, err := s.store.ListCheckinOverdue(ctx, checkinCutoff, sweepBatchLimit)
	if err != nil {
		return err
	}
	for i := range unchecked {
		s.processNoShow(ctx, &unchecked[i], ReasonNoCheckin, "no_checkin", []Status{StatusScheduled, StatusConfirmed})
	}

	span.SetAttributes(
		attribute.Int("telemed.sweep.unconfirmed", len(unconfirmed)),
		attribute.Int("telemed.sweep.unchecked", len(unchecked)),
	)
	if n := len(unconfirmed) + len(unchecked); n > 0 {
		s.logger.Info("sweep completed", "candidates", n)
	}
	return nil
}

// processNoShow applies the no-show transition to one candidate. The
// conditional update only wins while the status is still in fromStatuses, so
// a candidate already handled (by the first scan or another sweeper) is
// skipped silently.
func (s *Sweeper) processNoShow(ctx context.Context, appt *Appointment, reason, cause string, fromStatuses []Status) {
	won, err := s.store.MarkNoShow(ctx, appt.ID, s.now(), reason, fromStatuses)
	if err != nil {
		s.logger.Error("no-show cancellation failed", "id", appt.ID, "error", err)
		return
	}
	if !won {
		return
	}

	s.metrics.ObserveNoShow(cause)
	s.logger.Info("appointment cancelled for no-show", "id", appt.ID, "cause", cause)
	s.notifyNoShow(ctx, appt, reason)
}

// notifyNoShow emits the two symmetric system notices (doctor→patient and
// patient→doctor). Best effort: failures are logged and do not undo the
// cancellation.
func (s *Sweeper) notifyNoShow(ctx context.Context, appt *Appointment, reason string) {
	if s.notifier == nil {
		return
	}

	doctorUserID, err := s.doctorUserID(ctx, appt.DoctorID)
	if err != nil {
		s.metrics.ObserveNoticeFailure()
		s.logger.Error("no-show notice skipped, doctor lookup failed", "id", appt.ID, "error", err)
		return
	}

	content := "Appointment cancelled – Patient No Show. " + reason
	pairs := []struct{ from, to uuid.UUID }{
		{doctorUserID, appt.PatientID},
		{appt.PatientID, doctorUserID},
	}
	for _, p := range pairs {
		if err := s.notifier.SendSystemNotice(ctx, appt.ID, p.from, p.to, content); err != nil {
			s.metrics.ObserveNoticeFailure()
			s.logger.Error("no-show notice failed", "id", appt.ID, "to", p.to, "error", err)
		}
	}
}

func (s *Sweeper) doctorUserID(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error) {
	if s.doctors == nil {
		return uuid.Nil, errors.New("appointments: doctor directory not configured")
	}
	doc, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		return uuid.Nil, err
	}
	return doc.UserID, nil
}
