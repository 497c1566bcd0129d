package scheduler

import (
	"context"
	"errors"
	"time"

	"smart-parking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	sweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_sweep_expired_total",
		Help: "Unpaid bookings expired by the sweep worker.",
	})
	sweepCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_sweep_completed_total",
		Help: "Paid bookings completed by the sweep worker after their slot ended.",
	})
	sweepErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_sweep_errors_total",
		Help: "Sweep failures by phase.",
	}, []string{"phase"})
)

// BookingFinder lists the bookings due for a time-driven transition.
type BookingFinder interface {
	FindExpiredUnpaid(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
	FindEndedConfirmed(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
}

// Lifecycle applies the transitions. Both calls re-check the booking, so a stale
// candidate is skipped rather than forced.
type Lifecycle interface {
	ExpireUnpaidBooking(ctx context.Context, bookingID uuid.UUID) (bool, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
}

// WorkerConfig defines tunables for the sweep worker.
type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Worker periodically expires unpaid bookings past their payment deadline and closes paid
// bookings whose slot is over.
type Worker struct {
	finder    BookingFinder
	lifecycle Lifecycle
	now       func() time.Time
	logger    *zap.Logger
	cfg       WorkerConfig
}

func NewWorker(finder BookingFinder, lifecycle Lifecycle, now func() time.Time, logger *zap.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		finder:    finder,
		lifecycle: lifecycle,
		now:       now,
		logger:    logger.With(zap.String("worker", "booking-sweep")),
		cfg:       cfg,
	}
}

// Run sweeps once immediately and then on every tick until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.finder == nil || w.lifecycle == nil {
		return errors.New("sweep worker requires a booking finder and lifecycle")
	}

	w.logger.Info("Sweep worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("batch_size", w.cfg.BatchSize),
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		w.Sweep(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("Sweep worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass and reports how many bookings it moved. Failures on single
// bookings are logged and the pass continues.
func (w *Worker) Sweep(ctx context.Context) (expired, completed int) {
	now := w.now()

	due, err := w.finder.FindExpiredUnpaid(ctx, now, w.cfg.BatchSize)
	if err != nil && !errors.Is(err, context.Canceled) {
		sweepErrorsTotal.WithLabelValues("find_expired").Inc()
		w.logger.Error("Failed to load overdue bookings", zap.Error(err))
	}
	for _, b := range due {
		ok, err := w.lifecycle.ExpireUnpaidBooking(ctx, b.ID)
		if err != nil {
			sweepErrorsTotal.WithLabelValues("expire").Inc()
			w.logger.Error("Failed to expire booking", zap.Error(err), zap.String("booking_id", b.ID.String()))
			continue
		}
		if ok {
			expired++
			sweepExpiredTotal.Inc()
		}
	}

	ended, err := w.finder.FindEndedConfirmed(ctx, now, w.cfg.BatchSize)
	if err != nil && !errors.Is(err, context.Canceled) {
		sweepErrorsTotal.WithLabelValues("find_ended").Inc()
		w.logger.Error("Failed to load ended bookings", zap.Error(err))
	}
	for _, b := range ended {
		if _, err := w.lifecycle.CompleteBooking(ctx, b.ID); err != nil {
			sweepErrorsTotal.WithLabelValues("complete").Inc()
			w.logger.Warn("Failed to complete booking", zap.Error(err), zap.String("booking_id", b.ID.String()))
			continue
		}
		completed++
		sweepCompletedTotal.Inc()
	}

	if expired > 0 || completed > 0 {
		w.logger.Info("Sweep finished", zap.Int("expired", expired), zap.Int("completed", completed))
	}
	return expired, completed
}
