package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Service struct {
	store    Store
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService wires the feed store with an optional redis badge cache.
// A nil cache client disables caching.
func NewService(store Store, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{store: store, cache: cache, cacheTTL: cacheTTL}
}

func badgeKey(patientID uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s", patientID)
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Notification, error) {
	return s.store.ListByPatient(ctx, patientID, limit)
}

// MarkRead is a no-op in effect for already-read or unknown notifications.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, patientID uuid.UUID) error {
	if err := s.store.MarkRead(ctx, id); err != nil {
		return err
	}
	s.invalidateBadge(ctx, patientID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, patientID uuid.UUID) error {
	if err := s.store.MarkAllRead(ctx, patientID); err != nil {
		return err
	}
	s.invalidateBadge(ctx, patientID)
	return nil
}

// ClearAll hard-deletes the patient's feed. The alert audit log is not
// touched; the feed is transient, the audit trail permanent.
func (s *Service) ClearAll(ctx context.Context, patientID uuid.UUID) error {
	if err := s.store.ClearAll(ctx, patientID); err != nil {
		return err
	}
	s.invalidateBadge(ctx, patientID)
	return nil
}

// UnreadCount serves the dashboard badge, cached in redis.
func (s *Service) UnreadCount(ctx context.Context, patientID uuid.UUID) (int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, badgeKey(patientID)).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	count, err := s.store.CountUnread(ctx, patientID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, badgeKey(patientID), count, s.cacheTTL).Err(); err != nil {
			logger.Log.WithError(err).Debug("Failed to cache unread count")
		}
	}
	return count, nil
}

func (s *Service) invalidateBadge(ctx context.Context, patientID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, badgeKey(patientID)).Err(); err != nil {
		logger.Log.WithError(err).Debug("Failed to invalidate badge cache")
	}
}

// HandleAlertEvent keeps the badge cache honest while the alert service
// appends feed entries out of band. Registered as the kafka consumer
// handler for the alerts topic.
func (s *Service) HandleAlertEvent(ctx context.Context, event models.Event) error {
	raw, ok := event.Data["patient_id"].(string)
	if !ok {
		logger.Log.WithField("event_id", event.ID).Warn("Alert event missing patient_id")
		return nil
	}
	patientID, err := uuid.Parse(raw)
	if err != nil {
		logger.Log.WithField("event_id", event.ID).Warn("Alert event carries invalid patient_id")
		return nil
	}
	s.invalidateBadge(ctx, patientID)
	return nil
}
