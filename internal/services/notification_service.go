package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"healthcrm/internal/caching"
	"healthcrm/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxToasts = 20

// NotificationService queues transient toasts per user. Drain returns and
// clears the queue.
type NotificationService interface {
	Push(ctx context.Context, userID uuid.UUID, level models.ToastLevel, title, message string)
	Drain(ctx context.Context, userID uuid.UUID) ([]models.Toast, error)
}

type notificationService struct {
	mu    sync.Mutex
	store caching.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewNotificationService(store caching.Store, log *zap.Logger) NotificationService {
	return &notificationService{store: store, log: log, now: time.Now}
}

func toastKey(userID uuid.UUID) string {
	return "toasts:" + userID.String()
}

func (s *notificationService) load(ctx context.Context, userID uuid.UUID) ([]models.Toast, error) {
	var toasts []models.Toast
	if err := caching.GetJSON(ctx, s.store, toastKey(userID), &toasts); err != nil && !errors.Is(err, caching.ErrMiss) {
		return nil, err
	}
	return toasts, nil
}

// Push never fails the caller; a toast that cannot be stored is logged and dropped.
func (s *notificationService) Push(ctx context.Context, userID uuid.UUID, level models.ToastLevel, title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	toasts, err := s.load(ctx, userID)
	if err == nil {
		toasts = append(toasts, models.Toast{Level: level, Title: title, Message: message, CreatedAt: s.now().UTC()})
		if len(toasts) > maxToasts {
			toasts = toasts[len(toasts)-maxToasts:]
		}
		err = caching.SetJSON(ctx, s.store, toastKey(userID), toasts, 24*time.Hour)
	}
	if err != nil {
		s.log.Warn("failed to queue toast", zap.Stringer("user_id", userID), zap.String("title", title), zap.Error(err))
	}
}

func (s *notificationService) Drain(ctx context.Context, userID uuid.UUID) ([]models.Toast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	toasts, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, toastKey(userID)); err != nil {
		return nil, err
	}
	if toasts == nil {
		toasts = make([]models.Toast, 0)
	}
	return toasts, nil
}
