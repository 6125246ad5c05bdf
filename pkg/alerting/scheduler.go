package alerting

import (
	"context"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/observability/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultScanInterval = 60 * time.Second

// Scanner is what the scheduler drives; satisfied by *Detector.
type Scanner interface {
	Detect(ctx context.Context, patientID uuid.UUID) (int, error)
}

// Locker serializes scans per patient so a slow scan is never re-entered
// by the next tick.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, 1, ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// PatientLister feeds the sweep loop; satisfied by *adherence.Repository.
type PatientLister interface {
	ListPatientIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Scheduler triggers periodic missed-dose scans for one patient session.
type Scheduler struct {
	scanner  Scanner
	locker   Locker
	interval time.Duration
}

func NewScheduler(scanner Scanner, locker Locker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Scheduler{scanner: scanner, locker: locker, interval: interval}
}

// Run scans immediately, then on every tick until ctx is cancelled.
// Cancellation stops the timer only; in-flight sends complete and log
// normally.
func (s *Scheduler) Run(ctx context.Context, patientID uuid.UUID) {
	s.scan(ctx, patientID)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.WithField("patient_id", patientID).Info("Scan scheduler stopped")
			return
		case <-ticker.C:
			s.scan(ctx, patientID)
		}
	}
}

// RunAll sweeps every known patient on each tick. The per-patient lock
// still applies, so a sweep can overlap a session-driven Run without
// double-scanning anyone.
func (s *Scheduler) RunAll(ctx context.Context, patients PatientLister) {
	s.sweep(ctx, patients)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Scan sweep stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, patients)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context, patients PatientLister) {
	ids, err := patients.ListPatientIDs(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list patients for scan sweep")
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.scan(ctx, id)
	}
}

func (s *Scheduler) scan(ctx context.Context, patientID uuid.UUID) {
	key := "alerts:scan:" + patientID.String()

	// The lock TTL backstops a crashed scan; Release clears it on the
	// normal path.
	acquired, err := s.locker.Acquire(ctx, key, s.interval)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("Failed to acquire scan lock")
		return
	}
	if !acquired {
		metrics.IncSchedulerSkip()
		logger.Log.WithField("patient_id", patientID).Debug("Scan already in flight, skipping tick")
		return
	}
	defer func() {
		if err := s.locker.Release(ctx, key); err != nil {
			logger.Log.WithError(err).WithField("patient_id", patientID).Debug("Failed to release scan lock")
		}
	}()

	count, err := s.scanner.Detect(ctx, patientID)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("Missed-dose scan failed")
		return
	}
	if count > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"patient_id": patientID,
			"new_alerts": count,
		}).Info("Missed-dose scan fired alerts")
	}
}
